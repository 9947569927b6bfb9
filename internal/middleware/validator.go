package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo. Field names in messages
// use the json tag so they match what the client sent.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	problems := make([]string, 0, len(ves))
	for _, fe := range ves {
		problems = append(problems, describe(fe))
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " is not a valid address"
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD form"
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
