package availability

import (
	"errors"
	"testing"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

func window(id uint64, ds, de string) model.Window {
	return model.Window{ID: id, VendorID: 7}.WithBounds(bounds(ds, de, "09:00", "17:00"))
}

func rng(s, e string) DeleteRange {
	return DeleteRange{Start: calendar.MustParseDate(s), End: calendar.MustParseDate(e)}
}

func TestPlanDeleteSplit(t *testing.T) {
	p, err := PlanDelete(window(3, "2024-01-01", "2024-01-10"), rng("2024-01-05", "2024-01-07"))
	if err != nil {
		t.Fatalf("PlanDelete: %v", err)
	}
	if p.Kind != DeleteKindSplit || p.DeleteID != 0 || p.Update == nil || p.Insert == nil {
		t.Fatalf("unexpected plan %+v", p)
	}
	if p.Update.ID != 3 || p.Update.DateStart.String() != "2024-01-01" || p.Update.DateEnd.String() != "2024-01-04" {
		t.Fatalf("left fragment wrong: %+v", p.Update)
	}
	if p.Insert.ID != 0 || p.Insert.DateStart.String() != "2024-01-08" || p.Insert.DateEnd.String() != "2024-01-10" {
		t.Fatalf("right fragment wrong: %+v", p.Insert)
	}
	for _, w := range []*model.Window{p.Update, p.Insert} {
		if w.VendorID != 7 || w.TimeStart != calendar.MustParseClock("09:00") || w.TimeEnd != calendar.MustParseClock("17:00") {
			t.Fatalf("fragment lost vendor or time bounds: %+v", w)
		}
	}
}

func TestPlanDeleteBranches(t *testing.T) {
	w := window(1, "2024-01-01", "2024-01-10")
	cases := []struct {
		name       string
		req        DeleteRequest
		kind       DeleteKind
		start, end string
	}{
		{"whole", DeleteWhole{}, DeleteKindWhole, "", ""},
		{"exact range is whole", rng("2024-01-01", "2024-01-10"), DeleteKindWhole, "", ""},
		{"head trim", rng("2024-01-01", "2024-01-03"), DeleteKindTrimmed, "2024-01-04", "2024-01-10"},
		{"tail trim", rng("2024-01-08", "2024-01-10"), DeleteKindTrimmed, "2024-01-01", "2024-01-07"},
		{"single interior day", rng("2024-01-05", "2024-01-05"), DeleteKindSplit, "2024-01-01", "2024-01-04"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PlanDelete(w, tc.req)
			if err != nil {
				t.Fatalf("PlanDelete: %v", err)
			}
			if p.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", p.Kind, tc.kind)
			}
			if tc.kind == DeleteKindWhole {
				if p.DeleteID != 1 || p.Update != nil || p.Insert != nil {
					t.Fatalf("whole delete plan wrong: %+v", p)
				}
				return
			}
			if p.Update.DateStart.String() != tc.start || p.Update.DateEnd.String() != tc.end {
				t.Fatalf("updated range %s..%s, want %s..%s", p.Update.DateStart, p.Update.DateEnd, tc.start, tc.end)
			}
		})
	}
}

func TestPlanDeleteTrimToPointIsWhole(t *testing.T) {
	w := window(9, "2024-03-15", "2024-03-15")
	p, err := PlanDelete(w, rng("2024-03-15", "2024-03-15"))
	if err != nil {
		t.Fatalf("PlanDelete: %v", err)
	}
	if p.Kind != DeleteKindWhole || p.DeleteID != 9 {
		t.Fatalf("expected whole delete, got %+v", p)
	}
}

func TestPlanDeleteAcrossMonthBoundary(t *testing.T) {
	p, err := PlanDelete(window(2, "2024-02-20", "2024-03-10"), rng("2024-02-29", "2024-03-01"))
	if err != nil {
		t.Fatalf("PlanDelete: %v", err)
	}
	if p.Update.DateEnd.String() != "2024-02-28" || p.Insert.DateStart.String() != "2024-03-02" {
		t.Fatalf("unexpected fragments %s / %s", p.Update.DateEnd, p.Insert.DateStart)
	}
}

func TestPlanDeleteRejectsBadRanges(t *testing.T) {
	w := window(1, "2024-01-01", "2024-01-10")
	bad := []DeleteRequest{
		nil,
		rng("2023-12-31", "2024-01-02"),
		rng("2024-01-09", "2024-01-11"),
		rng("2024-01-06", "2024-01-05"),
		DeleteRange{},
	}
	for i, req := range bad {
		if _, err := PlanDelete(w, req); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("case %d: expected ErrInvalidRange, got %v", i, err)
		}
	}
}
