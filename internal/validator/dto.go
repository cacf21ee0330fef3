package validator

// EnrollRequest is the body of an enrollment request
type EnrollRequest struct {
	CourseID uint `json:"courseId" validate:"required,gt=0"`
}

// ExportEnrollmentsQuery narrows a course enrollment export
type ExportEnrollmentsQuery struct {
	Status string `form:"status" json:"status" validate:"omitempty,enrollment_status"`
}
