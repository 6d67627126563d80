package augment

import "github.com/dshills/rangebuf/internal/engine/rangetree"

// Summary holds aggregated metrics for a text span.
type Summary struct {
	// Bytes is the byte count.
	Bytes uint64

	// Runes is the number of UTF-8 sequence starts.
	Runes uint64

	// UTF16Units is the UTF-16 code unit count (for LSP compatibility).
	UTF16Units uint64

	// Lines is the number of newline characters.
	Lines uint32

	// LongestLine is the byte length of the longest line.
	LongestLine uint32

	// FirstLineLen is the byte length of the first line (excluding newline).
	FirstLineLen uint32

	// LastLineLen is the byte length of the last line (excluding newline).
	LastLineLen uint32

	// Flags indicate text properties for fast paths.
	Flags Flags
}

// Flags indicate text properties for optimization fast paths.
type Flags uint8

const (
	// FlagASCII indicates all bytes are ASCII (< 128).
	FlagASCII Flags = 1 << iota

	// FlagHasNewlines indicates the text contains newline characters.
	FlagHasNewlines

	// FlagHasTabs indicates the text contains tab characters.
	FlagHasTabs
)

// Add combines two summaries, s first.
func (s Summary) Add(other Summary) Summary {
	if s.Bytes == 0 {
		return other
	}
	if other.Bytes == 0 {
		return s
	}

	result := Summary{
		Bytes:      s.Bytes + other.Bytes,
		Runes:      s.Runes + other.Runes,
		UTF16Units: s.UTF16Units + other.UTF16Units,
		Lines:      s.Lines + other.Lines,
		Flags:      (s.Flags & other.Flags & FlagASCII) | ((s.Flags | other.Flags) &^ FlagASCII),
	}

	if other.Lines > 0 {
		// The join point closes s's last line.
		result.LongestLine = max(s.LongestLine, other.LongestLine, s.LastLineLen+other.FirstLineLen)
		result.LastLineLen = other.LastLineLen
	} else {
		result.LongestLine = max(s.LongestLine, s.LastLineLen+other.LastLineLen)
		result.LastLineLen = s.LastLineLen + other.LastLineLen
	}
	if s.Lines == 0 {
		result.FirstLineLen = s.FirstLineLen + other.FirstLineLen
	} else {
		result.FirstLineLen = s.FirstLineLen
	}

	return result
}

// Compute calculates metrics for a byte slice.
func Compute(b []byte) Summary {
	sum := Summary{Bytes: uint64(len(b)), Flags: FlagASCII}
	var lineLen uint32

	for _, c := range b {
		switch {
		case c < 0x80:
			sum.Runes++
			sum.UTF16Units++
		case c&0xC0 == 0x80:
			// Continuation byte.
			sum.Flags &^= FlagASCII
		case c >= 0xF0:
			sum.Runes++
			sum.UTF16Units += 2 // Surrogate pair
			sum.Flags &^= FlagASCII
		default:
			sum.Runes++
			sum.UTF16Units++
			sum.Flags &^= FlagASCII
		}

		if c == '\n' {
			if sum.Lines == 0 {
				sum.FirstLineLen = lineLen
			}
			sum.Lines++
			sum.LongestLine = max(sum.LongestLine, lineLen)
			sum.Flags |= FlagHasNewlines
			lineLen = 0
			continue
		}
		lineLen++
		if c == '\t' {
			sum.Flags |= FlagHasTabs
		}
	}

	sum.LastLineLen = lineLen
	sum.LongestLine = max(sum.LongestLine, lineLen)
	if sum.Lines == 0 {
		sum.FirstLineLen = lineLen
	}
	return sum
}

// Lines is the rangetree augmentation maintaining a Summary per node.
type Lines struct{}

// Zero returns the empty summary.
func (Lines) Zero() Summary {
	return Summary{Flags: FlagASCII}
}

// Measure reads a leaf's bytes and summarizes them.
func (Lines) Measure(leaf *rangetree.Node[Summary]) Summary {
	b, release := leaf.Materialize()
	defer release()
	return Compute(b)
}

// Combine adds two adjacent summaries.
func (Lines) Combine(left, right Summary) Summary {
	return left.Add(right)
}
