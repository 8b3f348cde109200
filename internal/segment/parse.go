package segment

import (
	"iter"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	silenceStartRe  = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe    = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
	mediaDurationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
)

type parseConfig struct {
	dropTrailing bool
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

// WithDropTrailing discards a non-silent span that runs to end of media
// without a closing silence_start. By default it is kept.
func WithDropTrailing() ParseOption {
	return func(c *parseConfig) { c.dropTrailing = true }
}

// Parse returns the non-silent spans described by a silencedetect log.
//
// A silence_end marks where a kept span begins; the next silence_start marks
// where it stops. Spans shorter than MinDuration are dropped without
// consuming an ordinal. Audio before the first silence_end is never kept.
//
// The sequence is lazy and restartable: every range rescans log from the
// top with fresh ordinals. Malformed or empty logs yield nothing.
func Parse(log string, namer Namer, opts ...ParseOption) iter.Seq[Descriptor] {
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(yield func(Descriptor) bool) {
		var seq Sequence
		var pendingEnd time.Duration
		hasEnd := false

		emit := func(start, dur time.Duration, toEnd bool) bool {
			n := seq.Next()
			return yield(Descriptor{
				Ordinal:  n,
				Start:    start,
				Duration: dur,
				Path:     namer.Path(n),
				ToEnd:    toEnd,
			})
		}

		for line := range strings.SplitSeq(log, "\n") {
			if !hasEnd {
				if v, ok := matchSeconds(silenceEndRe, line); ok {
					pendingEnd = v
					hasEnd = true
				}
			}
			if !hasEnd {
				continue
			}
			v, ok := matchSeconds(silenceStartRe, line)
			if !ok {
				continue
			}
			start := pendingEnd
			hasEnd = false
			if d := v - start; d >= MinDuration {
				if !emit(start, d, false) {
					return
				}
			}
		}

		if !hasEnd || cfg.dropTrailing {
			return
		}
		media, ok := mediaDuration(log)
		if !ok {
			emit(pendingEnd, 0, true)
			return
		}
		if d := media - pendingEnd; d >= MinDuration {
			emit(pendingEnd, d, false)
		}
	}
}

// Collect drains seq into a slice.
func Collect(seq iter.Seq[Descriptor]) []Descriptor {
	var out []Descriptor
	for d := range seq {
		out = append(out, d)
	}
	return out
}

// matchSeconds extracts a seconds value captured by re from line.
func matchSeconds(re *regexp.Regexp, line string) (time.Duration, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parseSeconds(m[1])
}

// parseSeconds converts a decimal seconds token to a Duration rounded to the
// nanosecond, so 0.01 compares equal to MinDuration.
func parseSeconds(s string) (time.Duration, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return time.Duration(math.Round(v * float64(time.Second))), true
}

// mediaDuration reads the input's length from the "Duration: HH:MM:SS.xx"
// header ffmpeg prints before processing.
func mediaDuration(log string) (time.Duration, bool) {
	m := mediaDurationRe.FindStringSubmatch(log)
	if m == nil {
		return 0, false
	}
	return parseTimeComponents(m[1], m[2], m[3], m[4])
}

// parseTimeComponents converts HH:MM:SS.frac strings to a Duration.
// The fractional part may have any number of digits.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, bool) {
	h, errH := strconv.Atoi(hours)
	m, errM := strconv.Atoi(minutes)
	s, errS := strconv.Atoi(seconds)
	if errH != nil || errM != nil || errS != nil {
		return 0, false
	}
	frac, ok := parseSeconds("0." + fractional)
	if !ok {
		return 0, false
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		frac, true
}
