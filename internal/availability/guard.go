package availability

import (
	"fmt"

	"github.com/iliyamo/marketplace-availability/internal/model"
)

// Mode selects the authorization predicate applied to a request.
type Mode int

const (
	// ModeSelf lets a vendor act only on its own windows.
	ModeSelf Mode = iota
	// ModeElevated lets an administrator act on any vendor.
	ModeElevated
)

func (m Mode) String() string {
	if m == ModeElevated {
		return "elevated"
	}
	return "self"
}

// Principal is the authenticated caller as established by the JWT
// middleware.
type Principal struct {
	ID   uint64
	Role string
}

// Actor is a principal acting in a given mode.
type Actor struct {
	Principal
	Mode Mode
}

// Guard decides whether an actor may touch a vendor's windows. It runs
// before any lookup so a refusal is never reported as a missing window.
type Guard struct{}

// Authorize returns nil or an error matching ErrForbidden.
func (Guard) Authorize(a Actor, vendorID uint64) error {
	if vendorID == 0 {
		return fmt.Errorf("%w: vendor id is required", ErrForbidden)
	}
	switch a.Mode {
	case ModeSelf:
		if a.Role != model.RoleVendor {
			return fmt.Errorf("%w: vendor role required", ErrForbidden)
		}
		if a.ID == 0 || a.ID != vendorID {
			return fmt.Errorf("%w: vendor %d cannot manage vendor %d", ErrForbidden, a.ID, vendorID)
		}
		return nil
	case ModeElevated:
		if a.Role != model.RoleAdmin {
			return fmt.Errorf("%w: administrator role required", ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown mode", ErrForbidden)
}
