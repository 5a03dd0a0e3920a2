package idgen_test

import (
	"testing"

	"github.com/artpar/botgate/adapters/idgen"
)

func TestUUID(t *testing.T) {
	g := idgen.UUID{}

	a, b := g.New(), g.New()
	if a == b {
		t.Error("two generated IDs are identical")
	}
	if len(a) != 36 {
		t.Errorf("len = %d, want 36", len(a))
	}
}

func TestSequential(t *testing.T) {
	g := idgen.NewSequential("evt_")

	if got := g.New(); got != "evt_1" {
		t.Errorf("first = %q, want evt_1", got)
	}
	if got := g.New(); got != "evt_2" {
		t.Errorf("second = %q, want evt_2", got)
	}

	g.Reset()
	if got := g.New(); got != "evt_1" {
		t.Errorf("after reset = %q, want evt_1", got)
	}
}
