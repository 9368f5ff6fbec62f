// Package isoduration implements arithmetic over ISO-8601 duration strings
// ("PT0S", "P1DT2H", "-PT30M") used as scene-relative timestamps.
package isoduration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sosodev/duration"
)

// Zero is the canonical zero duration and the timestamp of the scene start.
const Zero = "PT0S"

const day = 24 * time.Hour

// Parse converts an ISO-8601 duration string into a time.Duration.
// A leading '-' marks a negative duration.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	td := d.ToTimeDuration()
	if negative {
		td = -td
	}
	return td, nil
}

// Format renders d in canonical form: days, then hours, minutes and seconds.
func Format(d time.Duration) string {
	if d == 0 {
		return Zero
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')
	if days := d / day; days > 0 {
		fmt.Fprintf(&b, "%dD", days)
		d -= days * day
	}
	if d > 0 {
		b.WriteByte('T')
		if h := d / time.Hour; h > 0 {
			fmt.Fprintf(&b, "%dH", h)
			d -= h * time.Hour
		}
		if m := d / time.Minute; m > 0 {
			fmt.Fprintf(&b, "%dM", m)
			d -= m * time.Minute
		}
		if d > 0 {
			b.WriteString(strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
			b.WriteByte('S')
		}
	}
	return b.String()
}

// Add returns a+b. With clampNonNegative the result is floored at zero.
func Add(a, b string, clampNonNegative bool) (string, error) {
	da, err := Parse(a)
	if err != nil {
		return "", err
	}
	db, err := Parse(b)
	if err != nil {
		return "", err
	}
	sum := da + db
	if clampNonNegative && sum < 0 {
		sum = 0
	}
	return Format(sum), nil
}

// Sub returns a-b.
func Sub(a, b string) (string, error) {
	da, err := Parse(a)
	if err != nil {
		return "", err
	}
	db, err := Parse(b)
	if err != nil {
		return "", err
	}
	return Format(da - db), nil
}

// Negate flips the sign of s.
func Negate(s string) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(-d), nil
}

// Compare returns -1, 0 or 1 depending on whether a is shorter than, equal
// to or longer than b.
func Compare(a, b string) (int, error) {
	da, err := Parse(a)
	if err != nil {
		return 0, err
	}
	db, err := Parse(b)
	if err != nil {
		return 0, err
	}
	switch {
	case da < db:
		return -1, nil
	case da > db:
		return 1, nil
	}
	return 0, nil
}

// DiffToHuman describes how long before reference the moment ts happened,
// e.g. "5 minutes ago". Malformed input yields an empty string.
func DiffToHuman(reference, ts string) string {
	if reference == "" || ts == "" {
		return ""
	}
	ref, err := Parse(reference)
	if err != nil {
		return ""
	}
	at, err := Parse(ts)
	if err != nil {
		return ""
	}
	if ref == at {
		return "Recently"
	}
	base := time.Unix(0, 0).UTC()
	return humanize.RelTime(base.Add(at), base.Add(ref), "ago", "from now")
}
