package matfile

import (
	"errors"
	"testing"

	"harvest/internal/testsupport"
)

func TestDecodeStopsAtInflateBudget(t *testing.T) {
	// 4096 zero doubles compress to a few hundred bytes.
	zeros := testsupport.MATVariable{Name: "x", Value: testsupport.MATColumns(make([]float64, 4096))}
	data := testsupport.EncodeMAT(true, zeros)

	if _, err := decode(data, 1024); !errors.Is(err, ErrInflateLimit) {
		t.Fatalf("expected inflate limit error, got %v", err)
	}
	if _, err := decode(data, 64<<10); err != nil {
		t.Fatalf("decode within budget: %v", err)
	}
}

func TestInflateBudgetIsSharedAcrossElements(t *testing.T) {
	a := testsupport.MATVariable{Name: "a", Value: testsupport.MATColumns(make([]float64, 2048))}
	b := testsupport.MATVariable{Name: "b", Value: testsupport.MATColumns(make([]float64, 2048))}
	data := testsupport.EncodeMAT(true, a, b)

	// Each variable inflates to a little over 16 KiB on its own.
	if _, err := decode(data, 24<<10); !errors.Is(err, ErrInflateLimit) {
		t.Fatalf("expected inflate limit error, got %v", err)
	}
	file, err := decode(data, 40<<10)
	if err != nil {
		t.Fatalf("decode within budget: %v", err)
	}
	if len(file.Variables) != 2 {
		t.Fatalf("decoded %d variables, want 2", len(file.Variables))
	}
}
