package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/events"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/enrollment-service/internal/services"
	"github.com/SAP-F-2025/enrollment-service/internal/utils"
	"github.com/SAP-F-2025/enrollment-service/internal/validator"
)

const testSecret = "handlers-test-secret-0123456789abcdef"

type testServer struct {
	router    *gin.Engine
	db        *gorm.DB
	publisher *events.MockEventPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Enrollment{}, &models.Progress{}, &models.Certificate{}))

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(slogger)
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})

	serviceManager := services.NewDefaultServiceManager(repo, publisher, slogger, validator.New(), "https://example.com/certs")
	require.NoError(t, serviceManager.Initialize(context.Background()))

	verifier, err := auth.NewTokenVerifier(testSecret)
	require.NoError(t, err)

	log := utils.NewSlogLogger(slogger)
	router := gin.New()
	SetupMiddleware(router, log, MiddlewareConfig{})
	NewHandlerManager(serviceManager, verifier, log).SetupRoutes(router)

	return &testServer{router: router, db: db, publisher: publisher}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, userID, role string) string {
	return signToken(t, jwt.MapClaims{"id": userID, "role": role})
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	header := ""
	if token != "" {
		header = "Bearer " + token
	}
	return s.doRaw(t, method, path, header, body)
}

// doRaw sends the Authorization header verbatim
func (s *testServer) doRaw(t *testing.T, method, path, authorization string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func (s *testServer) enroll(t *testing.T, token string, courseID uint) models.Enrollment {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/enrollments", token, map[string]uint{"courseId": courseID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Enrollment](t, w)
}
