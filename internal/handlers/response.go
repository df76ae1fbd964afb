// Package handlers exposes the services over HTTP with Fiber.
package handlers

import (
	"errors"
	"fmt"
	"time"
	"unicode"

	"cinema/internal/apperr"
	"cinema/internal/logging"
	"cinema/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var errInvalidBody = apperr.New(fiber.StatusBadRequest, "Invalid request body", nil)

// validationFailure carries per-field validator messages.
type validationFailure struct {
	fields map[string]string
}

func (e *validationFailure) Error() string {
	return fmt.Sprintf("validation failed on %d fields", len(e.fields))
}

// NewValidator returns a validator with the custom tags used by request bodies.
func NewValidator() *validator.Validate {
	v := validator.New()
	// Registering a static tag only fails on an empty name.
	_ = v.RegisterValidation("strongpassword", strongPassword)
	return v
}

// strongPassword requires at least 8 characters with an upper case letter, a
// lower case letter, a digit and a special character.
func strongPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func check(v *validator.Validate, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return &validationFailure{fields: fields}
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, v *validator.Validate, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errInvalidBody.With(err)
	}
	return check(v, req)
}

// writeError renders err. Application errors keep their status and message;
// anything else is logged and hidden behind a generic 500.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var failure *validationFailure
	if errors.As(err, &failure) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  failure.fields,
		})
	}

	if appErr, ok := apperr.From(err); ok {
		if appErr.Code >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String(logging.RequestIDKey, logging.RequestID(c)),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(appErr.Code).JSON(fiber.Map{"message": appErr.Message})
	}

	log.Error("Unhandled error",
		zap.String(logging.RequestIDKey, logging.RequestID(c)),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}

// listQuery holds the pagination and date filters shared by list endpoints.
type listQuery struct {
	Skip      int    `query:"skip" validate:"gte=0"`
	Limit     int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	Status    string `query:"status"`
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func parseList(c *fiber.Ctx, v *validator.Validate) (listQuery, services.ListParams, error) {
	var q listQuery
	if err := c.QueryParser(&q); err != nil {
		return q, services.ListParams{}, apperr.ErrValidation.With(err)
	}
	if err := check(v, q); err != nil {
		return q, services.ListParams{}, err
	}

	params := services.ListParams{Skip: q.Skip, Limit: q.Limit}
	if q.StartDate != "" {
		params.StartDate, _ = time.Parse(dateLayout, q.StartDate)
	}
	if q.EndDate != "" {
		end, _ := time.Parse(dateLayout, q.EndDate)
		// the end date is inclusive
		params.EndDate = end.Add(24*time.Hour - time.Nanosecond)
	}
	return q, params, nil
}

// page is the body of every list response.
func page(total int64, key string, items interface{}) fiber.Map {
	return fiber.Map{"total": total, key: items}
}
