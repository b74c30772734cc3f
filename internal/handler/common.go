package handler // handler holds the echo HTTP handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-availability/internal/middleware"
)

// getUserID returns the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

func getRole(c echo.Context) string {
	r, _ := c.Get(middleware.CtxRole).(string)
	return r
}

// uintParam parses a positive integer path parameter.
func uintParam(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
