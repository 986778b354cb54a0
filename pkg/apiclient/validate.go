package apiclient

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	apperrors "GuardianAngel/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks struct tags on a request payload before it goes on the wire.
// The first failing field becomes a validation error naming the json field.
func Validate(v interface{}) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apperrors.Validation(err.Error())
	}
	fe := verrs[0]
	return apperrors.Validation(fieldMessage(fe)).WithContext("field", fe.Field())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s entries", fe.Field(), fe.Param())
	case "latitude", "longitude":
		return fmt.Sprintf("%s must be a valid %s", fe.Field(), fe.Tag())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// RequireToken returns the acting identity's token or a not-authenticated validation error.
func RequireToken(ts TokenSource) (string, error) {
	if ts == nil {
		return "", apperrors.Validationf(apperrors.CodeNotAuthenticated, "not authenticated")
	}
	tok := ts.AuthToken()
	if tok == "" {
		return "", apperrors.Validationf(apperrors.CodeNotAuthenticated, "not authenticated")
	}
	return tok, nil
}
