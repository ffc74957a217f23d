// Package request defines the input shapes accepted by every endpoint and
// the echo Validator that checks them. Field names in errors are the JSON
// names and messages use "The <field> field ..." wording.
package request

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/finance-tracker/internal/model"
)

// ValidationError maps field names to human readable messages. Fields keeps
// the order in which problems were found.
type ValidationError struct {
	Fields []string
	Errors map[string][]string
}

// NewValidationError returns an error carrying a single field message.
func NewValidationError(field, msg string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}

func (e *ValidationError) Add(field, msg string) {
	if e.Errors == nil {
		e.Errors = map[string][]string{}
	}
	if _, ok := e.Errors[field]; !ok {
		e.Fields = append(e.Fields, field)
	}
	e.Errors[field] = append(e.Errors[field], msg)
}

// Message summarises the error: the first message plus how many follow.
func (e *ValidationError) Message() string {
	if len(e.Fields) == 0 {
		return "The given data was invalid."
	}
	first := e.Errors[e.Fields[0]][0]
	rest := -1
	for _, msgs := range e.Errors {
		rest += len(msgs)
	}
	switch {
	case rest == 1:
		return first + " (and 1 more error)"
	case rest > 1:
		return fmt.Sprintf("%s (and %d more errors)", first, rest)
	}
	return first
}

func (e *ValidationError) Error() string { return e.Message() }

// AsValidation unwraps a *ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// Validator implements echo.Validator on top of validator/v10.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("decimal_min", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		if err != nil {
			return false
		}
		return d.GreaterThanOrEqual(decimal.RequireFromString(fl.Param()))
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := model.ParseRole(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("boolean", func(fl validator.FieldLevel) bool {
		_, ok := Field(fl.Field().String()).Bool()
		return ok
	})
	return &Validator{v: v}
}

// Validate checks i and returns a *ValidationError describing every field
// that failed.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	attr := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("The %s field is required.", attr)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", attr)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", attr, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", attr, fe.Param())
	case "numeric":
		return fmt.Sprintf("The %s field must be a number.", attr)
	case "number":
		return fmt.Sprintf("The %s field must be an integer.", attr)
	case "decimal_min":
		return fmt.Sprintf("The %s field must be at least %s.", attr, fe.Param())
	case "date":
		return fmt.Sprintf("The %s field must be a valid date.", attr)
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", attr)
	case "role":
		return fmt.Sprintf("The selected %s is invalid.", attr)
	case "boolean":
		return fmt.Sprintf("The %s field must be true or false.", attr)
	}
	return fmt.Sprintf("The %s field is invalid.", attr)
}

// Bind decodes the request into dst and validates it. Decoding failures
// are reported as echo 400 errors.
func Bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	return c.Validate(dst)
}
