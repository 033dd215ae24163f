// Package validation wraps go-playground/validator and turns its failures into
// per-field messages suitable for re-rendering HTML forms.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

var validate *validator.Validate

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report errors under the form field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// Struct validates s and returns an *errorutil.ValidationError keyed by form field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return errorutil.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", param)
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", param)
	case "oneof":
		return "Select a valid choice."
	case "eqfield":
		return "The two password fields didn't match."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return fmt.Sprintf("Failed validation for '%s'.", fe.Tag())
	}
}
