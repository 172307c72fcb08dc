package sla

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidCounter is returned when a counter text cannot be parsed
var ErrInvalidCounter = goerr.New("invalid counter format")

const day = 24 * time.Hour

// FormatCounter renders d as "[-]D.HH:MM:SS[.fffffffff]". The fraction is printed only when
// d has sub-second precision, with trailing zeros removed.
func FormatCounter(d time.Duration) string {
	var b strings.Builder

	mag := uint64(d)
	if d < 0 {
		b.WriteByte('-')
		mag = uint64(-(d + 1)) + 1
	}

	days := mag / uint64(day)
	mag %= uint64(day)
	hours := mag / uint64(time.Hour)
	mag %= uint64(time.Hour)
	minutes := mag / uint64(time.Minute)
	mag %= uint64(time.Minute)
	seconds := mag / uint64(time.Second)
	nanos := mag % uint64(time.Second)

	b.WriteString(strconv.FormatUint(days, 10))
	b.WriteByte('.')
	writeTwo(&b, hours)
	b.WriteByte(':')
	writeTwo(&b, minutes)
	b.WriteByte(':')
	writeTwo(&b, seconds)

	if nanos > 0 {
		frac := strconv.FormatUint(nanos, 10)
		frac = strings.Repeat("0", 9-len(frac)) + frac
		b.WriteByte('.')
		b.WriteString(strings.TrimRight(frac, "0"))
	}

	return b.String()
}

func writeTwo(b *strings.Builder, v uint64) {
	if v < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatUint(v, 10))
}

// ParseCounter is the inverse of FormatCounter. The day component may be omitted
// ("HH:MM:SS") for compatibility with values shorter than one day.
func ParseCounter(s string) (time.Duration, error) {
	raw := s
	invalid := func(reason string) error {
		return goerr.Wrap(ErrInvalidCounter, reason, goerr.V("value", raw))
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	var days uint64
	clock := s
	if d, rest, found := strings.Cut(s, "."); found && !strings.Contains(d, ":") {
		v, err := strconv.ParseUint(d, 10, 64)
		if err != nil || d == "" {
			return 0, invalid("bad day component")
		}
		days = v
		clock = rest
	}

	var nanos uint64
	if c, frac, found := strings.Cut(clock, "."); found {
		if frac == "" || len(frac) > 9 {
			return 0, invalid("bad fraction")
		}
		v, err := strconv.ParseUint(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil {
			return 0, invalid("bad fraction")
		}
		nanos = v
		clock = c
	}

	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, invalid("expected HH:MM:SS")
	}
	limits := []uint64{24, 60, 60}
	values := make([]uint64, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, invalid("clock components must have two digits")
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil || v >= limits[i] {
			return 0, invalid("clock component out of range")
		}
		values[i] = v
	}

	if days > uint64(math.MaxInt64)/uint64(day)+1 {
		return 0, invalid("counter overflows duration")
	}
	mag := days*uint64(day) +
		values[0]*uint64(time.Hour) +
		values[1]*uint64(time.Minute) +
		values[2]*uint64(time.Second) +
		nanos
	if mag < days*uint64(day) {
		return 0, invalid("counter overflows duration")
	}

	if negative {
		if mag > uint64(math.MaxInt64)+1 {
			return 0, invalid("counter overflows duration")
		}
		return time.Duration(-int64(mag-1) - 1), nil
	}
	if mag > uint64(math.MaxInt64) {
		return 0, invalid("counter overflows duration")
	}
	return time.Duration(mag), nil
}
