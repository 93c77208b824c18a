// Package validation wraps go-playground/validator with the rules and
// client-facing messages shared by the auth and task packages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"taskd/internal/apperr"
	"taskd/internal/models"
)

// DateLayouts are the accepted formats for optional date fields.
var DateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Validator validates request structs and converts failures to apperr
// validation errors keyed by JSON field name.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the custom task rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("taskchars", func(fl validator.FieldLevel) bool {
		return models.ValidTitleChars(fl.Field().String())
	})
	_ = v.RegisterValidation("taskdate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return &Validator{validate: v}
}

// Struct validates s. It returns nil or an *apperr.Error with code
// CodeValidation.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}
	return apperr.Validation(fields)
}

// ParseDate parses s using the first matching layout in DateLayouts.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func message(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "min":
		if isString(fe) {
			return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	case "max":
		if isString(fe) {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s does not match.", field)
	case "taskchars":
		return fmt.Sprintf("The %s field contains invalid characters.", field)
	case "maxbytes":
		return fmt.Sprintf("The %s field must not be greater than %s bytes.", field, fe.Param())
	case "taskdate":
		return fmt.Sprintf("The %s field must be a valid date.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}

func isString(fe validator.FieldError) bool {
	k := fe.Kind()
	if k == reflect.Ptr {
		k = fe.Type().Elem().Kind()
	}
	return k == reflect.String
}
