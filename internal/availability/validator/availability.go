package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"smstudio/pkg/logger"
	"smstudio/pkg/model"
	"smstudio/pkg/timeslot"
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

type AvailabilityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	v := validator.New()

	if err := v.RegisterValidation("iso_date", validateISODate); err != nil {
		log.Fatal("Failed to register 'iso_date' validator", "error", err)
	}
	if err := v.RegisterValidation("slot_time", validateSlotTime); err != nil {
		log.Fatal("Failed to register 'slot_time' validator", "error", err)
	}

	log.Info("Availability validator initialized successfully")

	return &AvailabilityValidator{
		validate: v,
		logger:   log,
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := timeslot.ParseDate(fl.Field().String())
	return err == nil
}

// validateSlotTime accepts any time NormalizeTime can pad, e.g. "9:5".
func validateSlotTime(fl validator.FieldLevel) bool {
	_, err := timeslot.NormalizeTime(fl.Field().String())
	return err == nil
}

// Validate checks any of the availability request types.
func (v *AvailabilityValidator) Validate(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *AvailabilityValidator) ValidateDay(day *model.AvailabilityDay) error {
	return v.Validate(day)
}

func (v *AvailabilityValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must contain at least %s item(s)", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "iso_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "slot_time":
			message = fmt.Sprintf("%s must be a time in HH:MM format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
