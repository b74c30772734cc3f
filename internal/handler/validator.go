package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
)

// RequestValidator plugs go-playground/validator into echo.Context.Validate.
type RequestValidator struct {
	v *validator.Validate
}

// NewValidator returns the validator registered on the echo instance. On
// top of the built-in rules it knows "clock", a time of day in HH:MM or
// HH:MM:SS form.
func NewValidator() *RequestValidator {
	v := validator.New()
	if err := v.RegisterValidation("clock", validClock); err != nil {
		panic(err)
	}
	return &RequestValidator{v: v}
}

func validClock(fl validator.FieldLevel) bool {
	_, err := calendar.ParseClock(fl.Field().String())
	return err == nil
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

var _ echo.Validator = (*RequestValidator)(nil)

// bindAndValidate binds the request into dst and runs its validate tags.
func bindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}
