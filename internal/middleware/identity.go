package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// callerKey identifies the authenticated caller for rate limiting and
// cache partitioning. Unauthenticated requests share "anon".
func callerKey(c echo.Context) string {
	id, ok := c.Get(CtxUserID).(uint64)
	if !ok || id == 0 {
		return "anon"
	}
	role, _ := c.Get(CtxRole).(string)
	if role == "" {
		return strconv.FormatUint(id, 10)
	}
	return role + "-" + strconv.FormatUint(id, 10)
}
