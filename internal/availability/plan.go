package availability

import (
	"fmt"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// DeleteRequest is either DeleteWhole or DeleteRange. The HTTP layer
// resolves which one a request means; the service never guesses from
// missing fields.
type DeleteRequest interface {
	isDeleteRequest()
}

// DeleteWhole removes the entire window.
type DeleteWhole struct{}

// DeleteRange removes the closed sub-range [Start, End] of a window.
type DeleteRange struct {
	Start calendar.Date
	End   calendar.Date
}

func (DeleteWhole) isDeleteRequest() {}
func (DeleteRange) isDeleteRequest() {}

// DeleteKind names the outcome of a delete.
type DeleteKind string

const (
	DeleteKindWhole   DeleteKind = "deleted"
	DeleteKindTrimmed DeleteKind = "trimmed"
	DeleteKindSplit   DeleteKind = "split"
)

// Plan is the replacement set a delete produces, computed from an
// immutable snapshot of the target window before anything is written.
//
// Exactly one shape is populated:
//
//	whole:   DeleteID
//	trimmed: Update
//	split:   Update (left fragment, original ID) + Insert (right fragment)
type Plan struct {
	Kind        DeleteKind
	RemovedFrom calendar.Date
	RemovedTo   calendar.Date
	DeleteID    uint64
	Update      *model.Window
	Insert      *model.Window
}

// PlanDelete computes what deleting req from w leaves behind. On a split
// the original window keeps its ID and becomes the left fragment; the
// right fragment is a new window with the same vendor and time bounds.
func PlanDelete(w model.Window, req DeleteRequest) (Plan, error) {
	s, e := w.DateStart, w.DateEnd
	var ds, de calendar.Date
	switch r := req.(type) {
	case DeleteWhole:
		ds, de = s, e
	case DeleteRange:
		ds, de = r.Start, r.End
	case nil:
		return Plan{}, fmt.Errorf("%w: delete request is required", ErrInvalidRange)
	default:
		return Plan{}, fmt.Errorf("%w: unsupported delete request %T", ErrInvalidRange, req)
	}
	if ds.IsZero() || de.IsZero() {
		return Plan{}, fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	if ds.After(de) {
		return Plan{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, ds, de)
	}
	if ds.Before(s) || de.After(e) {
		return Plan{}, fmt.Errorf("%w: %s..%s is outside window %s..%s", ErrInvalidRange, ds, de, s, e)
	}

	p := Plan{RemovedFrom: ds, RemovedTo: de}
	switch {
	case ds.Equal(s) && de.Equal(e):
		p.Kind = DeleteKindWhole
		p.DeleteID = w.ID
	case ds.Equal(s):
		left := w
		left.DateStart = de.AddDays(1)
		p.Kind = DeleteKindTrimmed
		p.Update = &left
	case de.Equal(e):
		left := w
		left.DateEnd = ds.AddDays(-1)
		p.Kind = DeleteKindTrimmed
		p.Update = &left
	default:
		left := w
		left.DateEnd = ds.AddDays(-1)
		right := model.Window{
			VendorID:  w.VendorID,
			DateStart: de.AddDays(1),
			DateEnd:   e,
			TimeStart: w.TimeStart,
			TimeEnd:   w.TimeEnd,
		}
		p.Kind = DeleteKindSplit
		p.Update = &left
		p.Insert = &right
	}
	if err := p.check(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// check guards against a plan that would write an empty or inverted range.
func (p Plan) check() error {
	for _, w := range []*model.Window{p.Update, p.Insert} {
		if w != nil && w.DateStart.After(w.DateEnd) {
			return fmt.Errorf("availability: delete plan produced inverted range %s..%s", w.DateStart, w.DateEnd)
		}
	}
	return nil
}
