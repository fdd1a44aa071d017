package board

import (
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// DecodeShiftJIS decodes a legacy Shift_JIS byte stream with lossy fallback.
// Undecodable byte sequences are dropped rather than aborting the parse, and
// the count of dropped sequences is returned so callers (and tests) can see
// how much data was lost.
func DecodeShiftJIS(b []byte) (string, int) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
	if err != nil {
		// The decoder substitutes rather than fails; this path guards
		// against transform-level errors on pathological input.
		out = []byte(strings.ToValidUTF8(string(b), ""))
	}

	s := string(out)
	dropped := strings.Count(s, "�")
	if dropped > 0 {
		s = strings.ReplaceAll(s, "�", "")
	}
	return s, dropped
}
