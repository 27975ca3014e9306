package blob

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
)

// SpanSequence commits to a blob by its position in the original data
// square (ODS). The DA node reports positions in the extended square, so
// indexes must be converted with square.EDSShareToODS before building one.
type SpanSequence struct {
	// Height is the block height.
	Height uint64
	// Start is the ODS index of the first share of the blob.
	Start uint32
	// Size is the number of shares of the blob, ignoring parity shares.
	Size uint32
}

// EndIndexODS returns the ODS index of the first share after the blob.
func (s SpanSequence) EndIndexODS() (uint32, error) {
	if s.Size == 0 {
		return 0, errorsmod.Wrapf(ErrEmptySpanSequence, "%s", s)
	}
	if s.Start > math.MaxUint32-s.Size {
		return 0, errorsmod.Wrapf(ErrSpanSequenceOverflow, "%s", s)
	}
	return s.Start + s.Size, nil
}

// String returns the height:start:size form.
func (s SpanSequence) String() string {
	return fmt.Sprintf("%d:%d:%d", s.Height, s.Start, s.Size)
}

// ParseSpanSequence parses the height:start:size form.
func ParseSpanSequence(text string) (SpanSequence, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return SpanSequence{}, errorsmod.Wrapf(ErrInvalidSpanSequence, "expected format height:start:size, got %q", text)
	}

	height, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return SpanSequence{}, errorsmod.Wrapf(ErrInvalidSpanSequence, "invalid height %q", parts[0])
	}
	start, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return SpanSequence{}, errorsmod.Wrapf(ErrInvalidSpanSequence, "invalid start %q", parts[1])
	}
	size, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return SpanSequence{}, errorsmod.Wrapf(ErrInvalidSpanSequence, "invalid size %q", parts[2])
	}

	return SpanSequence{Height: height, Start: uint32(start), Size: uint32(size)}, nil
}

// Set implements pflag.Value.
func (s *SpanSequence) Set(text string) error {
	parsed, err := ParseSpanSequence(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Type implements pflag.Value.
func (s *SpanSequence) Type() string {
	return "height:start:size"
}

// MarshalText implements encoding.TextMarshaler.
func (s SpanSequence) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SpanSequence) UnmarshalText(text []byte) error {
	return s.Set(string(text))
}
