package echo

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// DecodePolicy selects what happens to bytes that are not valid UTF-8.
type DecodePolicy int

const (
	// DecodeReplace substitutes U+FFFD for invalid sequences and echoes the
	// result.
	DecodeReplace DecodePolicy = iota
	// DecodeSkip drops the cycle without writing anything back.
	DecodeSkip
)

func (p DecodePolicy) String() string {
	switch p {
	case DecodeReplace:
		return "replace"
	case DecodeSkip:
		return "skip"
	default:
		return fmt.Sprintf("DecodePolicy(%d)", int(p))
	}
}

// ParseDecodePolicy parses "replace" or "skip".
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace":
		return DecodeReplace, nil
	case "skip":
		return DecodeSkip, nil
	default:
		return DecodeReplace, fmt.Errorf("unknown decode policy %q: expected replace or skip", s)
	}
}

// decode returns b as text. A multi-byte character split across two polls is
// invalid in both halves and is handled by the policy like any other bad input.
func decode(b []byte, policy DecodePolicy) (text string, replaced bool, err error) {
	if utf8.Valid(b) {
		return string(b), false, nil
	}
	if policy == DecodeSkip {
		return "", false, ErrInvalidUTF8
	}

	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return "", false, err
	}
	return string(out), true, nil
}
