package fix

import (
	"strconv"
	"time"
)

// FastTimestamp caches the "YYYYMMDD-" UTC day prefix and only recomputes
// it when the UTC day rolls over, since most FIX timestamp fields (e.g.
// SendingTime, tag 52) share the same day prefix for long stretches and
// recomputing it from scratch on every message is wasted work on the hot
// path.
type FastTimestamp struct {
	day    int
	prefix []byte
}

// Format appends "YYYYMMDD-HH:MM:SS.sss" for t (UTC) to dst.
func (f *FastTimestamp) Format(dst []byte, t time.Time) []byte {
	t = t.UTC()
	day := t.Year()*10000 + int(t.Month())*100 + t.Day()
	if day != f.day {
		f.day = day
		f.prefix = f.prefix[:0]
		f.prefix = appendPadded(f.prefix, t.Year(), 4)
		f.prefix = appendPadded(f.prefix, int(t.Month()), 2)
		f.prefix = appendPadded(f.prefix, t.Day(), 2)
		f.prefix = append(f.prefix, '-')
	}
	dst = append(dst, f.prefix...)
	dst = appendPadded(dst, t.Hour(), 2)
	dst = append(dst, ':')
	dst = appendPadded(dst, t.Minute(), 2)
	dst = append(dst, ':')
	dst = appendPadded(dst, t.Second(), 2)
	dst = append(dst, '.')
	dst = appendPadded(dst, t.Nanosecond()/1e6, 3)
	return dst
}

func appendPadded(dst []byte, v int, width int) []byte {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return append(dst, s...)
}
