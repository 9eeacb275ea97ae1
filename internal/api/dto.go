package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/devtally/internal/models"
	"github.com/starford/devtally/internal/report"
)

// RecordRequest is the request body for POST /api/tallies/{handle}/{kind}.
type RecordRequest struct {
	N    *int   `json:"n" example:"2"`
	Note string `json:"note,omitempty" example:"fixed the login bug"`
}

// Validate implements validation.Validatable.
func (r RecordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.N, validation.NotNil),
	)
}

// TallyListResponse wraps the ranked rows.
type TallyListResponse struct {
	Tallies []report.Row `json:"tallies"`
	Total   int          `json:"total" example:"3"`
}

// UserResponse is a single user's record.
type UserResponse struct {
	Handle string `json:"handle" example:"ali"`
	models.UserRecord
}
