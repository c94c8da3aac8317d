package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gatherly/pkg/locale"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields maps each failing field to its message, for AppError details.
func (v ValidationErrors) Fields() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

// New builds a validator with the domain tags registered and JSON field names
// reported in errors.
func New(log *logger.Logger) *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	tags := map[string]validator.Func{
		"timezone":     validateTimezone,
		"promo_code":   validatePromoCode,
		"ticket_types": validateTicketTypes,
		"permissions":  validatePermissions,
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	return v
}

func validateTimezone(fl validator.FieldLevel) bool {
	return locale.IsValidTimezone(fl.Field().String())
}

func validatePromoCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) < 3 || len(code) > 32 {
		return false
	}
	return sanitizer.NormalizePromoCode(code) == code
}

// validateTicketTypes rejects duplicate names, compared case-insensitively.
func validateTicketTypes(fl validator.FieldLevel) bool {
	types, ok := fl.Field().Interface().([]model.TicketType)
	if !ok {
		return false
	}
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		key := strings.ToLower(strings.TrimSpace(t.Name))
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

func validatePermissions(fl validator.FieldLevel) bool {
	perms, ok := fl.Field().Interface().([]model.Permission)
	if !ok {
		return false
	}
	for _, p := range perms {
		if !p.Valid() {
			return false
		}
	}
	return true
}

// Struct validates s and translates failures into ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Translate(validationErrs)
		}
		return err
	}
	return nil
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid ID", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be a valid phone number", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "timezone":
			message = fmt.Sprintf("%s must be a valid IANA time zone", err.Field())
		case "promo_code":
			message = "code must be 3-32 characters of A-Z, 0-9, '-' or '_'"
		case "ticket_types":
			message = "ticket type names must be unique"
		case "permissions":
			message = fmt.Sprintf("%s contains an unknown permission", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
