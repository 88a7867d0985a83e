package web

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Initialize the validator with custom rules
func init() {
	validate = validator.New()
	validate.RegisterValidation("no_sql_phrases", containsNoRestrictedSQL)
	validate.RegisterTagNameFunc(jsonFieldName)
}

// containsNoRestrictedSQL validates that the input does not contain SQL injection phrases
func containsNoRestrictedSQL(fl validator.FieldLevel) bool {
	restrictedPhrases := []string{"DROP DATABASE", "DROP TABLE", "DELETE FROM", "INSERT INTO", "UPDATE ", "ALTER TABLE"}
	value := strings.ToUpper(fl.Field().String())
	for _, phrase := range restrictedPhrases {
		if strings.Contains(value, phrase) {
			return false
		}
	}
	return true
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// FieldErrors maps a payload field to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// validateStruct runs the struct's validate tags and turns failures into
// field messages. Any other error is returned as is.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "no_sql_phrases":
		return "Contains restricted phrases"
	}
	return "Invalid value"
}

// ValidateLoginRequest validates the sign-in form before any backend call.
func ValidateLoginRequest(req *models.LoginRequest) error {
	return validateStruct(req)
}

// ValidateInput validates an entity payload. A user created without a
// password is rejected; updates may leave it empty to keep the current one.
func ValidateInput(input any, create bool) error {
	err := validateStruct(input)

	var fields FieldErrors
	switch {
	case err == nil:
		fields = FieldErrors{}
	case errors.As(err, &fields):
	default:
		return err
	}

	if u, ok := input.(*models.UserInput); ok && create && u.Password == "" {
		fields["password"] = "This field is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
