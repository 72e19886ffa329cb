// Package validation wraps go-playground/validator with user-facing field messages.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/useradmin/internal/shared"
)

// TagBasicEmail validates the local@domain.tld shape accepted by the admin client.
const TagBasicEmail = "basic_email"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Messages maps "field.tag" (JSON field name, slice indexes stripped) to a message.
type Messages map[string]string

// Validator validates DTOs and reports failures as *shared.ValidationError.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with JSON field names and custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation(TagBasicEmail, func(fl validator.FieldLevel) bool {
		return IsBasicEmail(fl.Field().String())
	})
	return &Validator{validate: v}
}

// IsBasicEmail reports whether s has a local@domain.tld shape.
func IsBasicEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Struct validates s. The first failing rule per field wins.
func (v *Validator) Struct(s any, msgs Messages) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.Internal(err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := baseField(fe.Field())
		if _, seen := fields[field]; seen {
			continue
		}
		if msg, ok := msgs[field+"."+fe.Tag()]; ok {
			fields[field] = msg
			continue
		}
		fields[field] = field + " is invalid"
	}
	return shared.NewValidationError(fields)
}

func baseField(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}
