// Package segment turns ffmpeg silencedetect output into the ordered list of
// non-silent spans to keep.
package segment

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/silencecut/internal/format"
)

// MinDuration is the shortest span worth extracting. Shorter spans are dropped.
const MinDuration = 10 * time.Millisecond

// Descriptor is one non-silent span of the input, in playback order.
type Descriptor struct {
	Ordinal  uint          // 1-based position in playback order.
	Start    time.Duration // Offset of the span in the input.
	Duration time.Duration // Length of the span; zero when ToEnd is set.
	Path     string        // Artifact path derived from Ordinal.
	ToEnd    bool          // Span runs to end of media of unknown length.
}

// End returns the offset where the span stops, or -1 when it runs to end of media.
func (d Descriptor) End() time.Duration {
	if d.ToEnd {
		return -1
	}
	return d.Start + d.Duration
}

// String returns a human-readable representation for logs.
func (d Descriptor) String() string {
	if d.ToEnd {
		return fmt.Sprintf("segment %d [%s - end]", d.Ordinal, format.Timestamp(d.Start))
	}
	return fmt.Sprintf("segment %d [%s - %s]", d.Ordinal,
		format.Timestamp(d.Start), format.Timestamp(d.End()))
}

// Namer derives artifact paths from ordinals: <Dir>/00001.<Ext>.
// Ordinals beyond 99999 simply widen.
type Namer struct {
	Dir string
	Ext string
}

// Path returns the artifact path for ordinal.
func (n Namer) Path(ordinal uint) string {
	ext := strings.TrimPrefix(n.Ext, ".")
	return filepath.Join(n.Dir, fmt.Sprintf("%05d.%s", ordinal, ext))
}

// Sequence hands out 1-based ordinals. Each parse pass owns its own.
type Sequence struct {
	last uint
}

// Next returns the next ordinal.
func (s *Sequence) Next() uint {
	s.last++
	return s.last
}
