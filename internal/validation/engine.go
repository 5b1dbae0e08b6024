// Package validation holds the stateless field and record validators for
// every entity type. Validators never touch persistence, the audit log, or
// the concurrency manager; they are pure functions over the candidate record
// and the snapshot passed to them.
package validation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/config"
)

var nameRe = regexp.MustCompile(`^[\p{L}][\p{L} '-]{0,48}[\p{L}]$`)

// Engine evaluates declarative field rules. It carries only configuration;
// calling it repeatedly has no side effects.
type Engine struct {
	validate *validator.Validate
	absences config.AbsenceConfig
	imports  config.ImportConfig
	now      func() time.Time
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs the validation engine.
func NewEngine(absences config.AbsenceConfig, imports config.ImportConfig, opts ...Option) *Engine {
	v := validator.New()
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return nameRe.MatchString(fl.Field().String())
	})

	e := &Engine{
		validate: v,
		absences: absences,
		imports:  imports,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// studentFields carries the struct-tag layer of the student rules.
type studentFields struct {
	ExternalCode    string  `validate:"required,alphanum,min=6,max=12"`
	Name            string  `validate:"required,personname,min=2,max=50"`
	Email           string  `validate:"required,email"`
	GroupID         string  `validate:"required"`
	DisciplineScore float64 `validate:"gte=0,lte=20"`
}

// groupFields carries the struct-tag layer of the group rules.
type groupFields struct {
	Name      string `validate:"required,min=2,max=20"`
	ProgramID string `validate:"required"`
}

var fieldMessages = map[string]string{
	"required":   "is required",
	"alphanum":   "must contain only letters and digits",
	"personname": "must contain only letters, spaces, hyphens and apostrophes",
	"min":        "is too short",
	"max":        "is too long",
	"email":      "must be a valid email address",
	"gte":        "is below the allowed minimum",
	"lte":        "is above the allowed maximum",
}

func (e *Engine) structErrors(candidate interface{}, fieldNames map[string]string) []models.FieldError {
	err := e.validate.Struct(candidate)
	if err == nil {
		return nil
	}
	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return []models.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]models.FieldError, 0, len(invalid))
	for _, fe := range invalid {
		field := fieldNames[fe.StructField()]
		if field == "" {
			field = fe.StructField()
		}
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed rule %q", fe.Tag())
		}
		out = append(out, models.FieldError{Field: field, Message: msg, Value: fe.Value()})
	}
	return out
}
