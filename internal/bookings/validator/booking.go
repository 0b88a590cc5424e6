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

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	custom := map[string]validator.Func{
		"iso_date":       validateISODate,
		"slot_time":      validateSlotTime,
		"service_type":   validateServiceType,
		"booking_status": validateBookingStatus,
		"payment_status": validatePaymentStatus,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register booking validator",
				"tag", tag,
				"error", err,
			)
		}
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := timeslot.ParseDate(fl.Field().String())
	return err == nil
}

func validateSlotTime(fl validator.FieldLevel) bool {
	_, err := timeslot.NormalizeTime(fl.Field().String())
	return err == nil
}

func validateServiceType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case model.ServiceHomeService, model.ServiceStudio:
		return true
	}
	return false
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	return model.BookingState(fl.Field().String()).Valid()
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	return model.PaymentStatus(fl.Field().String()).Valid()
}

// Validate checks a booking before it is written. Money fields are checked
// here because the struct tags cannot see inside decimal values.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.Struct(booking); err != nil {
		return err
	}

	var errs ValidationErrors
	if booking.Amount.IsNegative() {
		errs = append(errs, ValidationError{Field: "Amount", Message: "amount must not be negative"})
	}
	if booking.DiscountAmount.IsNegative() {
		errs = append(errs, ValidationError{Field: "DiscountAmount", Message: "discount_amount must not be negative"})
	}
	if err := booking.Tax.Validate(); err != nil {
		errs = append(errs, ValidationError{Field: "Tax", Message: err.Error()})
	}
	for i, a := range booking.SelectedAddOns {
		if a.Price.IsNegative() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("SelectedAddOns[%d].Price", i),
				Message: "add-on price must not be negative",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Struct validates any request type carrying booking tags.
func (v *BookingValidator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "iso_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "slot_time":
			message = fmt.Sprintf("%s must be a time in HH:MM format", err.Field())
		case "service_type":
			message = fmt.Sprintf("%s must be one of: %s %s", err.Field(), model.ServiceHomeService, model.ServiceStudio)
		case "booking_status":
			message = fmt.Sprintf("%s is not a known booking status", err.Field())
		case "payment_status":
			message = fmt.Sprintf("%s is not a known payment status", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
