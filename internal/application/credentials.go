package application

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	errInvalidInput = errors.New("invalid input")
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	validate        = newValidator()
)

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// registerInput mirrors the server's account rules so obvious mistakes fail
// before a round trip.
type registerInput struct {
	Username string `validate:"required,min=3,max=30,username"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("username", validateUsername); err != nil {
		panic(fmt.Sprintf("register username validation: %v", err))
	}

	return v
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		problems = append(problems, describeFieldError(fieldErr))
	}

	return fmt.Errorf("%w: %s", errInvalidInput, strings.Join(problems, "; "))
}

func describeFieldError(fieldErr validator.FieldError) string {
	field := strings.ToLower(fieldErr.Field())

	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	case "username":
		return "username may only contain letters, digits and underscores"
	default:
		return field + " is invalid"
	}
}
