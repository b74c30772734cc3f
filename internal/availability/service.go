package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// Service is the window mutator. Every mutation runs under a per-vendor
// lock and inside one store transaction: the snapshot read, the booking
// and overlap checks and all writes commit together or not at all.
type Service struct {
	store    Store
	locks    Locker
	guard    Guard
	notifier Notifier
	vendors  VendorDirectory
	log      *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithVendorDirectory makes elevated requests for ids that are not vendor
// accounts fail with ErrUnknownVendor.
func WithVendorDirectory(d VendorDirectory) Option {
	return func(s *Service) { s.vendors = d }
}

// NewService wires the service. notifier and log may be nil.
func NewService(store Store, locks Locker, notifier Notifier, log *zap.Logger, opts ...Option) *Service {
	if store == nil || locks == nil {
		panic("nil store or locker passed to NewService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: store, locks: locks, notifier: notifier, log: log.Named("availability")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize applies the access guard alone. Handlers call it before
// looking at the request so an unauthorised caller is refused the same
// way whatever it sent.
func (s *Service) Authorize(a Actor, vendorID uint64) error {
	return s.guard.Authorize(a, vendorID)
}

// admit runs the guard and, in elevated mode, confirms the vendor exists.
// A self-service caller is the vendor, so no lookup is needed.
func (s *Service) admit(ctx context.Context, a Actor, vendorID uint64) error {
	if err := s.guard.Authorize(a, vendorID); err != nil {
		return err
	}
	if a.Mode != ModeElevated || s.vendors == nil {
		return nil
	}
	ok, err := s.vendors.VendorExists(ctx, vendorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownVendor
	}
	return nil
}

// EditResult reports the window after an edit and whether anything was
// written.
type EditResult struct {
	Window  model.Window
	Changed bool
}

// DeleteResult reports what a delete left behind. Window is the trimmed
// window or the left fragment of a split; Sibling is the right fragment.
type DeleteResult struct {
	Kind      DeleteKind    `json:"result"`
	DeletedID uint64        `json:"deleted_id,omitempty"`
	Window    *model.Window `json:"window,omitempty"`
	Sibling   *model.Window `json:"sibling,omitempty"`
}

// Create adds a window for vendorID unless it overlaps an existing one.
func (s *Service) Create(ctx context.Context, a Actor, vendorID uint64, b model.Bounds) (model.Window, error) {
	if err := s.admit(ctx, a, vendorID); err != nil {
		return model.Window{}, err
	}
	if err := ValidateBounds(b); err != nil {
		return model.Window{}, err
	}
	w := model.Window{VendorID: vendorID}.WithBounds(b)
	err := s.mutate(ctx, vendorID, func(ctx context.Context, tx Tx) error {
		existing, err := tx.LoadWindows(ctx, vendorID)
		if err != nil {
			return err
		}
		if hit, ok := firstOverlap(existing, b, 0); ok {
			s.log.Debug("create rejected: overlap",
				zap.Uint64("vendor_id", vendorID), zap.Uint64("overlaps_window_id", hit.ID))
			return ErrOverlap
		}
		return tx.InsertWindow(ctx, &w)
	})
	if err != nil {
		return model.Window{}, err
	}
	s.log.Info("window created", zap.Uint64("vendor_id", vendorID), zap.Uint64("window_id", w.ID),
		zap.Stringer("mode", a.Mode), zap.Uint64("actor_id", a.ID))
	s.notify(ctx, Change{Kind: ChangeCreated, VendorID: vendorID, ActorID: a.ID, Mode: a.Mode, WindowID: w.ID, Windows: []model.Window{w}})
	return w, nil
}

// List returns the vendor's windows ordered by date_start.
func (s *Service) List(ctx context.Context, a Actor, vendorID uint64) ([]model.Window, error) {
	if err := s.admit(ctx, a, vendorID); err != nil {
		return nil, err
	}
	ws, err := s.store.ReadWindows(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	sortWindows(ws)
	return ws, nil
}

// Get returns one window of the vendor.
func (s *Service) Get(ctx context.Context, a Actor, vendorID, windowID uint64) (model.Window, error) {
	if err := s.admit(ctx, a, vendorID); err != nil {
		return model.Window{}, err
	}
	ws, err := s.store.ReadWindows(ctx, vendorID)
	if err != nil {
		return model.Window{}, err
	}
	return findWindow(ws, windowID)
}

// Edit replaces the bounds of a window. It refuses to move any occupying
// booking out of the window's date range and refuses to overlap a
// sibling. Editing a window to its current bounds succeeds without a
// write.
func (s *Service) Edit(ctx context.Context, a Actor, vendorID, windowID uint64, b model.Bounds) (EditResult, error) {
	if err := s.admit(ctx, a, vendorID); err != nil {
		return EditResult{}, err
	}
	if err := ValidateBounds(b); err != nil {
		return EditResult{}, err
	}
	var res EditResult
	err := s.mutate(ctx, vendorID, func(ctx context.Context, tx Tx) error {
		windows, err := tx.LoadWindows(ctx, vendorID)
		if err != nil {
			return err
		}
		cur, err := findWindow(windows, windowID)
		if err != nil {
			return err
		}
		if cur.Bounds() == b {
			res = EditResult{Window: cur}
			return nil
		}
		booked, err := tx.OccupyingDates(ctx, vendorID, cur.DateStart, cur.DateEnd)
		if err != nil {
			return err
		}
		var orphaned []calendar.Date
		for _, d := range booked {
			if !d.InRange(b.DateStart, b.DateEnd) {
				orphaned = append(orphaned, d)
			}
		}
		if len(orphaned) > 0 {
			return &BookingConflictError{Dates: orphaned}
		}
		if hit, ok := firstOverlap(windows, b, cur.ID); ok {
			s.log.Debug("edit rejected: overlap", zap.Uint64("window_id", cur.ID), zap.Uint64("overlaps_window_id", hit.ID))
			return ErrOverlap
		}
		next := cur.WithBounds(b)
		if err := tx.UpdateWindow(ctx, &next); err != nil {
			return err
		}
		res = EditResult{Window: next, Changed: true}
		return nil
	})
	if err != nil {
		return EditResult{}, err
	}
	if res.Changed {
		s.log.Info("window updated", zap.Uint64("vendor_id", vendorID), zap.Uint64("window_id", windowID),
			zap.Stringer("mode", a.Mode), zap.Uint64("actor_id", a.ID))
		s.notify(ctx, Change{Kind: ChangeUpdated, VendorID: vendorID, ActorID: a.ID, Mode: a.Mode, WindowID: windowID, Windows: []model.Window{res.Window}})
	}
	return res, nil
}

// Delete removes a window or a sub-range of it, trimming or splitting the
// window as needed. Any occupying booking inside the removed range blocks
// the whole request.
func (s *Service) Delete(ctx context.Context, a Actor, vendorID, windowID uint64, req DeleteRequest) (DeleteResult, error) {
	if err := s.admit(ctx, a, vendorID); err != nil {
		return DeleteResult{}, err
	}
	var res DeleteResult
	err := s.mutate(ctx, vendorID, func(ctx context.Context, tx Tx) error {
		windows, err := tx.LoadWindows(ctx, vendorID)
		if err != nil {
			return err
		}
		cur, err := findWindow(windows, windowID)
		if err != nil {
			return err
		}
		plan, err := PlanDelete(cur, req)
		if err != nil {
			return err
		}
		booked, err := tx.OccupyingDates(ctx, vendorID, plan.RemovedFrom, plan.RemovedTo)
		if err != nil {
			return err
		}
		if len(booked) > 0 {
			return &BookingConflictError{Dates: booked}
		}
		res, err = applyPlan(ctx, tx, plan)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.log.Info("window "+string(res.Kind), zap.Uint64("vendor_id", vendorID), zap.Uint64("window_id", windowID),
		zap.Stringer("mode", a.Mode), zap.Uint64("actor_id", a.ID))
	change := Change{Kind: ChangeKind(res.Kind), VendorID: vendorID, ActorID: a.ID, Mode: a.Mode, WindowID: windowID}
	if res.Kind == DeleteKindWhole {
		change.Kind = ChangeDeleted
	}
	for _, w := range []*model.Window{res.Window, res.Sibling} {
		if w != nil {
			change.Windows = append(change.Windows, *w)
		}
	}
	s.notify(ctx, change)
	return res, nil
}

// applyPlan writes a delete plan. The caller's transaction makes the
// shrink and the insert of a split a single unit.
func applyPlan(ctx context.Context, tx Tx, p Plan) (DeleteResult, error) {
	res := DeleteResult{Kind: p.Kind}
	if p.DeleteID != 0 {
		if err := tx.DeleteWindow(ctx, p.DeleteID); err != nil {
			return DeleteResult{}, err
		}
		res.DeletedID = p.DeleteID
	}
	if p.Update != nil {
		w := *p.Update
		if err := tx.UpdateWindow(ctx, &w); err != nil {
			return DeleteResult{}, err
		}
		res.Window = &w
	}
	if p.Insert != nil {
		w := *p.Insert
		if err := tx.InsertWindow(ctx, &w); err != nil {
			return DeleteResult{}, err
		}
		res.Sibling = &w
	}
	return res, nil
}

func (s *Service) mutate(ctx context.Context, vendorID uint64, fn func(ctx context.Context, tx Tx) error) error {
	release, err := s.locks.Acquire(ctx, LockKey(vendorID))
	if err != nil {
		s.log.Warn("vendor lock not acquired", zap.Uint64("vendor_id", vendorID), zap.Error(err))
		if errors.Is(err, ErrTransient) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer release()
	return s.store.InTx(ctx, fn)
}

func (s *Service) notify(ctx context.Context, c Change) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.WindowsChanged(ctx, c); err != nil {
		s.log.Warn("change notification failed", zap.String("kind", string(c.Kind)),
			zap.Uint64("vendor_id", c.VendorID), zap.Error(err))
	}
}

// LockKey is the lock name guarding one vendor's windows.
func LockKey(vendorID uint64) string {
	return "vendor:" + strconv.FormatUint(vendorID, 10)
}

func findWindow(ws []model.Window, id uint64) (model.Window, error) {
	for _, w := range ws {
		if w.ID == id {
			return w, nil
		}
	}
	return model.Window{}, ErrNotFound
}

func sortWindows(ws []model.Window) {
	sort.SliceStable(ws, func(i, j int) bool {
		if c := ws[i].DateStart.Compare(ws[j].DateStart); c != 0 {
			return c < 0
		}
		if ws[i].TimeStart != ws[j].TimeStart {
			return ws[i].TimeStart < ws[j].TimeStart
		}
		return ws[i].ID < ws[j].ID
	})
}
