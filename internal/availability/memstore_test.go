package availability

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// memStore is a copy-on-write in-memory Store used by the service tests.
// A transaction works on a clone that replaces the committed state only
// when fn succeeds.
type memStore struct {
	mu         sync.Mutex
	windows    map[uint64]model.Window
	bookings   []model.Booking
	nextID     uint64
	failInsert error
	writes     int
}

func newMemStore() *memStore {
	return &memStore{windows: map[uint64]model.Window{}, nextID: 1}
}

func (m *memStore) seed(w model.Window) model.Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = m.nextID
	m.nextID++
	w.CreatedAt = time.Unix(0, 0).UTC()
	w.UpdatedAt = w.CreatedAt
	m.windows[w.ID] = w
	return w
}

func (m *memStore) book(vendorID uint64, date, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, model.Booking{
		ID:          uint64(len(m.bookings) + 1),
		VendorID:    vendorID,
		BookingDate: calendar.MustParseDate(date),
		Status:      status,
	})
}

func (m *memStore) snapshot(vendorID uint64) []model.Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Window
	for _, w := range m.windows {
		if w.VendorID == vendorID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ReadWindows(_ context.Context, vendorID uint64) ([]model.Window, error) {
	return m.snapshot(vendorID), nil
}

func (m *memStore) InTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	m.mu.Lock()
	tx := &memTx{parent: m, windows: make(map[uint64]model.Window, len(m.windows)), nextID: m.nextID,
		bookings: append([]model.Booking(nil), m.bookings...)}
	for id, w := range m.windows {
		tx.windows[id] = w
	}
	m.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = tx.windows
	m.nextID = tx.nextID
	m.writes += tx.writes
	return nil
}

type memTx struct {
	parent   *memStore
	windows  map[uint64]model.Window
	bookings []model.Booking
	nextID   uint64
	writes   int
}

func (t *memTx) LoadWindows(_ context.Context, vendorID uint64) ([]model.Window, error) {
	var out []model.Window
	for _, w := range t.windows {
		if w.VendorID == vendorID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertWindow(_ context.Context, w *model.Window) error {
	if t.parent.failInsert != nil {
		return t.parent.failInsert
	}
	w.ID = t.nextID
	t.nextID++
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	t.windows[w.ID] = *w
	t.writes++
	return nil
}

func (t *memTx) UpdateWindow(_ context.Context, w *model.Window) error {
	cur, ok := t.windows[w.ID]
	if !ok {
		return ErrNotFound
	}
	w.VendorID = cur.VendorID
	w.CreatedAt = cur.CreatedAt
	w.UpdatedAt = time.Now().UTC()
	t.windows[w.ID] = *w
	t.writes++
	return nil
}

func (t *memTx) DeleteWindow(_ context.Context, id uint64) error {
	if _, ok := t.windows[id]; !ok {
		return ErrNotFound
	}
	delete(t.windows, id)
	t.writes++
	return nil
}

func (t *memTx) OccupyingDates(_ context.Context, vendorID uint64, from, to calendar.Date) ([]calendar.Date, error) {
	seen := map[calendar.Date]bool{}
	var out []calendar.Date
	for _, b := range t.bookings {
		if b.VendorID != vendorID || !b.Occupying() || !b.BookingDate.InRange(from, to) || seen[b.BookingDate] {
			continue
		}
		seen[b.BookingDate] = true
		out = append(out, b.BookingDate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// nopLocker always grants the lock.
type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

// busyLocker never grants the lock.
type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New("lock wait timed out")
}

type recordingNotifier struct {
	changes []Change
	err     error
}

func (r *recordingNotifier) WindowsChanged(_ context.Context, c Change) error {
	r.changes = append(r.changes, c)
	return r.err
}
