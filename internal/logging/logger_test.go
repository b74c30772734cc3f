package logging

import "testing"

func TestNewBuildsBothModes(t *testing.T) {
	for _, prod := range []bool{true, false} {
		l, err := New(prod)
		if err != nil {
			t.Fatalf("New(%v): %v", prod, err)
		}
		if prod && l.Core().Enabled(-1) {
			t.Fatal("production logger must not emit debug")
		}
		if !prod && !l.Core().Enabled(-1) {
			t.Fatal("development logger must emit debug")
		}
		_ = l.Sync()
	}
}
