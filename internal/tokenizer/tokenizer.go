// Package tokenizer wraps token encoding for chunk length accounting.
//
// The primary implementation is tiktoken's cl100k_base encoding (the same
// encoding the filings were originally measured with). A deterministic
// word-count estimator is available for environments where the BPE assets
// cannot be loaded, and for tests.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// ErrNotSupported is returned by implementations that can count tokens but
// cannot round-trip text through a token sequence.
var ErrNotSupported = errors.New("tokenizer: encode/decode not supported")

// Tokenizer converts text to and from integer token sequences. Count is the
// only operation the structure-aware splitter needs; Encode and Decode are
// used by the legacy flat window mode.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
	Count(text string) (int, error)
}

// Tiktoken adapts the cl100k_base BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the cl100k_base encoding.
func NewTiktoken() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Encode(text string) ([]int, error) {
	return t.enc.Encode(text, nil, nil), nil
}

func (t *Tiktoken) Decode(tokens []int) (string, error) {
	return t.enc.Decode(tokens), nil
}

func (t *Tiktoken) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Estimator counts tokens with the ~1.33 tokens/word heuristic. It is
// deterministic and needs no model assets. Encode and Decode report
// ErrNotSupported; callers needing the flat window mode fall back to word
// windows.
type Estimator struct{}

func (Estimator) Encode(string) ([]int, error) { return nil, ErrNotSupported }
func (Estimator) Decode([]int) (string, error) { return "", ErrNotSupported }

func (Estimator) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	words := len(strings.Fields(text))
	n := int(float64(words) * 1.33)
	if n < 1 {
		n = 1
	}
	return n, nil
}
