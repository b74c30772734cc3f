package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-availability/internal/availability"
	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/middleware"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// AvailabilityHandler serves the window endpoints for one access mode. The
// self-service and elevated route groups each get their own instance.
type AvailabilityHandler struct {
	svc  *availability.Service
	mode availability.Mode
	log  *zap.Logger
}

// NewAvailabilityHandler panics if svc is nil.
func NewAvailabilityHandler(svc *availability.Service, mode availability.Mode, log *zap.Logger) *AvailabilityHandler {
	if svc == nil {
		panic("nil service passed to NewAvailabilityHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AvailabilityHandler{svc: svc, mode: mode, log: log}
}

// windowReq is the body of create and edit.
type windowReq struct {
	DateStart string `json:"date_start" validate:"required,datetime=2006-01-02"`
	DateEnd   string `json:"date_end" validate:"required,datetime=2006-01-02"`
	TimeStart string `json:"time_start" validate:"required,clock"`
	TimeEnd   string `json:"time_end" validate:"required,clock"`
}

func (r windowReq) bounds() (model.Bounds, error) {
	var (
		b   model.Bounds
		err error
	)
	if b.DateStart, err = calendar.ParseDate(r.DateStart); err != nil {
		return b, err
	}
	if b.DateEnd, err = calendar.ParseDate(r.DateEnd); err != nil {
		return b, err
	}
	if b.TimeStart, err = calendar.ParseClock(r.TimeStart); err != nil {
		return b, err
	}
	if b.TimeEnd, err = calendar.ParseClock(r.TimeEnd); err != nil {
		return b, err
	}
	return b, nil
}

// deleteReq optionally narrows a delete to a date sub-range. It is read
// from the JSON body or from ?start=&end=.
type deleteReq struct {
	Start string `json:"start" query:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end" query:"end" validate:"omitempty,datetime=2006-01-02"`
}

func (r deleteReq) request() (availability.DeleteRequest, error) {
	switch {
	case r.Start == "" && r.End == "":
		return availability.DeleteWhole{}, nil
	case r.Start == "" || r.End == "":
		return nil, errors.New("start and end must be given together")
	}
	start, err := calendar.ParseDate(r.Start)
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseDate(r.End)
	if err != nil {
		return nil, err
	}
	return availability.DeleteRange{Start: start, End: end}, nil
}

func (h *AvailabilityHandler) actor(c echo.Context) (availability.Actor, error) {
	uid, err := getUserID(c)
	if err != nil {
		return availability.Actor{}, err
	}
	return availability.Actor{
		Principal: availability.Principal{ID: uid, Role: getRole(c)},
		Mode:      h.mode,
	}, nil
}

// scope resolves the caller and the path's vendor id and runs the access
// guard, writing the error response itself when the request must stop.
// It runs before any body or window id is read, so a caller without
// access gets 403 whatever else is wrong with the request.
func (h *AvailabilityHandler) scope(c echo.Context) (availability.Actor, uint64, bool, error) {
	a, err := h.actor(c)
	if err != nil {
		return a, 0, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	vendorID, parsed := uintParam(c, "vendor_id")
	if err := h.svc.Authorize(a, vendorID); err != nil {
		// An administrator may address any vendor, so a malformed id is
		// only a bad request for them.
		if !parsed && h.mode == availability.ModeElevated && a.Role == model.RoleAdmin {
			return a, 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vendor_id"})
		}
		return a, 0, false, h.fail(c, err)
	}
	return a, vendorID, true, nil
}

// Create handles POST .../vendors/:vendor_id/availability.
func (h *AvailabilityHandler) Create(c echo.Context) error {
	a, vendorID, ok, err := h.scope(c)
	if !ok {
		return err
	}
	var req windowReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := req.bounds()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	w, err := h.svc.Create(c.Request().Context(), a, vendorID, b)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, w)
}

// List handles GET .../vendors/:vendor_id/availability.
func (h *AvailabilityHandler) List(c echo.Context) error {
	a, vendorID, ok, err := h.scope(c)
	if !ok {
		return err
	}
	ws, err := h.svc.List(c.Request().Context(), a, vendorID)
	if err != nil {
		return h.fail(c, err)
	}
	if ws == nil {
		ws = []model.Window{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": ws})
}

// Get handles GET .../vendors/:vendor_id/availability/:id.
func (h *AvailabilityHandler) Get(c echo.Context) error {
	a, vendorID, ok, err := h.scope(c)
	if !ok {
		return err
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	w, err := h.svc.Get(c.Request().Context(), a, vendorID, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

// Edit handles PUT and PATCH .../vendors/:vendor_id/availability/:id. The
// body always carries the full set of bounds.
func (h *AvailabilityHandler) Edit(c echo.Context) error {
	a, vendorID, ok, err := h.scope(c)
	if !ok {
		return err
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req windowReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := req.bounds()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	res, err := h.svc.Edit(c.Request().Context(), a, vendorID, id, b)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res.Window)
}

// Delete handles DELETE .../vendors/:vendor_id/availability/:id. Without
// a range the whole window goes; with one it is trimmed or split.
func (h *AvailabilityHandler) Delete(c echo.Context) error {
	a, vendorID, ok, err := h.scope(c)
	if !ok {
		return err
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req deleteReq
	if err := bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	dr, err := req.request()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	res, err := h.svc.Delete(c.Request().Context(), a, vendorID, id, dr)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// fail maps service errors onto HTTP responses.
func (h *AvailabilityHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, availability.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, availability.ErrUnknownVendor):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "vendor not found"})
	case errors.Is(err, availability.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "availability window not found"})
	case errors.Is(err, availability.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, availability.ErrOverlap):
		return c.JSON(http.StatusConflict, echo.Map{"error": availability.ErrOverlap.Error()})
	case errors.Is(err, availability.ErrBookingConflict):
		dates, _ := availability.ConflictDates(err)
		if dates == nil {
			dates = []calendar.Date{}
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "bookings exist in the affected range", "dates": dates})
	case errors.Is(err, availability.ErrTransient):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": availability.ErrTransient.Error()})
	}
	middleware.LoggerFrom(c, h.log).Error("availability request failed",
		zap.String("mode", h.mode.String()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
