package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts go-playground/validator to echo.Validator. Field
// names in errors use the json tag so clients see the names they sent.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a RequestValidator
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// bindAndValidate decodes the body into req and runs struct validation. On
// failure it writes the problem response and returns ok=false.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, NewValidationError(c, "Invalid request body", nil)
	}

	var err error
	if c.Echo().Validator != nil {
		err = c.Validate(req)
	} else {
		err = defaultValidator.Validate(req)
	}
	if err == nil {
		return true, nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, NewValidationError(c, "Invalid request body", nil)
	}
	fields := make([]ValidationError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, ValidationError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	return false, NewValidationError(c, "Validation failed", fields)
}

var defaultValidator = NewRequestValidator()

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("Must be %s characters or less", fe.Param())
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "numeric":
		return "Must be a valid decimal number"
	case "datetime":
		return "Must be a date in " + fe.Param() + " format"
	}
	return "Invalid value"
}
