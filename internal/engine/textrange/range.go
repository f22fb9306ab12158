package textrange

import (
	"fmt"
	"unicode/utf8"
)

// Range represents a byte range in a document.
// Start is inclusive, End is exclusive: [Start, End).
type Range struct {
	Start int `json:"start" yaml:"start"` // Inclusive start offset
	End   int `json:"end" yaml:"end"`     // Exclusive end offset
}

// NewRange creates a new Range from start and end offsets.
func NewRange(start, end int) Range {
	return Range{Start: start, End: end}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in bytes.
func (r Range) Len() int {
	return r.End - r.Start
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// IsValid returns true if the range is valid (0 <= Start <= End).
func (r Range) IsValid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

// Within reports whether the range fits inside a document of n bytes.
func (r Range) Within(n int) bool {
	return r.IsValid() && r.End <= n
}

// Contains returns true if the given offset is within the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Shift returns a new range shifted by the given delta.
func (r Range) Shift(delta int) Range {
	return Range{
		Start: r.Start + delta,
		End:   r.End + delta,
	}
}

// Text returns the slice of src covered by the range.
func (r Range) Text(src string) string {
	return src[r.Start:r.End]
}

// Replace splices replacement into src in place of r.
//
// The range must have been computed against this exact src value; nothing
// beyond Go's slice bounds checks validates it.
func Replace(src string, r Range, replacement string) string {
	return src[:r.Start] + replacement + src[r.End:]
}

// UTF16 converts a byte range into UTF-16 code unit offsets of src,
// the coordinate system browser editors use.
func UTF16(src string, r Range) Range {
	return Range{
		Start: utf16Len(src[:r.Start]),
		End:   utf16Len(src[:r.End]),
	}
}

func utf16Len(s string) int {
	n := 0
	for _, c := range s {
		if c >= 0x10000 && c <= utf8.MaxRune {
			n += 2
		} else {
			n++
		}
	}
	return n
}
