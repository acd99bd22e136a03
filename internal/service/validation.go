package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

var (
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// NewValidator returns a validator with the custom tags used by request payloads.
func NewValidator() *validator.Validate {
	v := validator.New()
	registerValidations(v)
	return v
}

func registerValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return CheckPasswordStrength(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidID(fl.Field().String())
	})
}

// CheckPasswordStrength reports the first unmet strength rule.
func CheckPasswordStrength(password string) error {
	switch {
	case utf8.RuneCountInString(password) < 8:
		return errors.New("Password must be at least 8 characters long")
	case !upperPattern.MatchString(password):
		return errors.New("Password must contain at least one uppercase letter")
	case !digitPattern.MatchString(password):
		return errors.New("Password must contain at least one number")
	case !specialPattern.MatchString(password):
		return errors.New(`Password must contain at least one special character (!@#$%^&*(),.?":{}|<>)`)
	}
	return nil
}

// IsValidID reports whether id is a well-formed store identifier.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validationError converts a validator failure into a 400 with a readable detail.
func validationError(err error) *appErrors.Error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}
	fe := fieldErrs[0]
	if fe.Tag() == "strongpassword" {
		if pwd, ok := fe.Value().(string); ok {
			if weak := CheckPasswordStrength(pwd); weak != nil {
				return appErrors.Clone(appErrors.ErrWeakPassword, weak.Error())
			}
		}
		return appErrors.Clone(appErrors.ErrWeakPassword, "")
	}
	field := strings.ToLower(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "email":
		msg = fmt.Sprintf("%s must be a valid email address", field)
	case "objectid", "uuid":
		msg = fmt.Sprintf("Invalid %s", field)
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min", "max":
		msg = fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
}
