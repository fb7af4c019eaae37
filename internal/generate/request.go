package generate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultCompanyName = "JobFit Pro"
	DefaultJobTitle    = "Candidate Application"
)

// Request is one generation: the target role plus the uploaded résumé.
// UserID and UserEmail come from the verified token and may be empty.
type Request struct {
	CompanyName    string
	JobTitle       string
	JobDescription string `validate:"required"`
	FileName       string
	Document       []byte `validate:"required,min=1"`

	UserID    string
	UserEmail string
}

// ValidationError rejects a request before any processing happens.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Err }

var errMissingInput = &ValidationError{Message: "Missing job description or resume file"}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (r *Request) normalize() {
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	if r.CompanyName == "" {
		r.CompanyName = DefaultCompanyName
	}
	r.JobTitle = strings.TrimSpace(r.JobTitle)
	if r.JobTitle == "" {
		r.JobTitle = DefaultJobTitle
	}
	r.JobDescription = strings.TrimSpace(r.JobDescription)
	r.FileName = strings.TrimSpace(r.FileName)
	if r.FileName == "" {
		r.FileName = "resume.docx"
	}
}

// Validate applies defaults and checks the required fields.
func (r *Request) Validate() error {
	r.normalize()
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &ValidationError{Message: errMissingInput.Message, Err: err}
		}
		return err
	}
	return nil
}
