package tokenizer

import (
	"errors"
	"testing"
)

func TestEstimator_Count(t *testing.T) {
	var e Estimator

	n, err := e.Count("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("empty text: expected 0 tokens, got %d", n)
	}

	// 6 words at ~1.33 tokens/word -> 7.
	n, err = e.Count("the quick brown fox jumps high")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 tokens, got %d", n)
	}

	// A single short word still counts as at least one token.
	n, _ = e.Count("x")
	if n < 1 {
		t.Errorf("expected at least 1 token, got %d", n)
	}
}

func TestEstimator_EncodeDecodeNotSupported(t *testing.T) {
	var e Estimator
	if _, err := e.Encode("text"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Encode: expected ErrNotSupported, got %v", err)
	}
	if _, err := e.Decode([]int{1, 2}); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Decode: expected ErrNotSupported, got %v", err)
	}
}
