package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
)

const (
	// SubjectClaim names the claim carrying the user id issued by the identity service.
	SubjectClaim = "id"
	// RoleClaim names the optional role claim.
	RoleClaim = "role"

	minSecretLength = 32
)

var (
	// ErrInvalidCredential indicates the bearer token failed verification.
	ErrInvalidCredential = errors.New("invalid credential")

	errWeakSecret = fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
)

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// VerifiedToken is the result of a successful verification. SubjectID is empty
// when the token carried no subject claim.
type VerifiedToken struct {
	SubjectID string
	Role      string
	Claims    jwt.MapClaims
}

// HasSubject reports whether the token identified a user.
func (t *VerifiedToken) HasSubject() bool {
	return t.SubjectID != ""
}

// Authority returns the role label for the token, e.g. ROLE_ADMIN.
func (t *VerifiedToken) Authority() string {
	return authorityFor(t.Role)
}

// Identity converts the token into a request identity. Tokens without a
// subject yield the anonymous identity.
func (t *VerifiedToken) Identity() Identity {
	if !t.HasSubject() {
		return Anonymous()
	}
	return Identity{UserID: t.SubjectID, Authorities: []string{t.Authority()}}
}

type VerifierOption func(*TokenVerifier)

// WithLeeway allows for clock skew when checking time based claims.
func WithLeeway(leeway time.Duration) VerifierOption {
	return func(v *TokenVerifier) {
		v.leeway = leeway
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *TokenVerifier) {
		v.now = now
	}
}

// TokenVerifier validates HMAC signed bearer tokens with a pre-shared secret.
type TokenVerifier struct {
	key    []byte
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenVerifier creates a verifier for tokens signed with secret, taken as
// UTF-8 bytes.
func NewTokenVerifier(secret string, opts ...VerifierOption) (*TokenVerifier, error) {
	if len(secret) < minSecretLength {
		return nil, errWeakSecret
	}

	v := &TokenVerifier{
		key: []byte(secret),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.parser = jwt.NewParser(
		jwt.WithValidMethods(hmacMethods),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)

	return v, nil
}

// Verify parses and validates token. Every failure is reported as
// ErrInvalidCredential.
func (v *TokenVerifier) Verify(token string) (*VerifiedToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: token is not valid", ErrInvalidCredential)
	}

	role := claimString(claims[RoleClaim])
	if role == "" {
		role = models.RoleUser.String()
	}

	return &VerifiedToken{
		SubjectID: claimString(claims[SubjectClaim]),
		Role:      role,
		Claims:    claims,
	}, nil
}

// ExtractBearerToken returns the token from an Authorization header value when
// it uses the bearer scheme.
func ExtractBearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func claimString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
