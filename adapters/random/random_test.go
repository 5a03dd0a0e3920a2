package random_test

import (
	"bytes"
	"testing"

	"github.com/artpar/botgate/adapters/random"
)

func TestReal_Bytes(t *testing.T) {
	r := random.Real{}

	a, err := r.Bytes(32)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("len = %d, want 32", len(a))
	}

	b, _ := r.Bytes(32)
	if bytes.Equal(a, b) {
		t.Error("two 32-byte draws are identical")
	}
}

func TestReal_Between(t *testing.T) {
	r := random.Real{}

	for i := 0; i < 200; i++ {
		v, err := r.Between(1, 15)
		if err != nil {
			t.Fatalf("Between: %v", err)
		}
		if v < 1 || v > 15 {
			t.Fatalf("Between(1, 15) = %d, out of range", v)
		}
	}

	v, err := r.Between(3, 3)
	if err != nil || v != 3 {
		t.Errorf("Between(3, 3) = %d, %v; want 3, nil", v, err)
	}

	if _, err := r.Between(5, 1); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestFake_Between(t *testing.T) {
	f := random.NewFake().WithDraws(7, 99, -2)

	if v, _ := f.Between(1, 15); v != 7 {
		t.Errorf("first draw = %d, want 7", v)
	}
	if v, _ := f.Between(1, 15); v != 15 {
		t.Errorf("second draw = %d, want clamped 15", v)
	}
	if v, _ := f.Between(1, 15); v != 1 {
		t.Errorf("third draw = %d, want clamped 1", v)
	}
	// Draws exhausted: falls back to min.
	if v, _ := f.Between(4, 15); v != 4 {
		t.Errorf("exhausted draw = %d, want 4", v)
	}
}

func TestFake_BytesDeterministic(t *testing.T) {
	a, _ := random.NewFake().Bytes(8)
	b, _ := random.NewFake().Bytes(8)
	if !bytes.Equal(a, b) {
		t.Error("fresh fakes must produce identical bytes")
	}
}
