package template

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultDateFormat = "YYYY-MM-DD"
	DefaultTimeFormat = "HH:mm:ss"
)

// dateTokens is ordered longest first so that at each position the longest
// token wins.
var dateTokens = []string{
	"YYYY", "MMMM", "dddd",
	"MMM", "ddd",
	"YY", "MM", "DD", "Do", "HH", "hh", "mm", "ss",
	"M", "D", "H", "h", "m", "s", "A", "a",
}

// FormatDate renders t with a moment-style format string. Text inside square
// brackets is copied literally; characters that start no token pass through.
func FormatDate(t time.Time, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '[' {
			if end := strings.IndexByte(format[i+1:], ']'); end >= 0 {
				b.WriteString(format[i+1 : i+1+end])
				i += end + 2
				continue
			}
		}
		token := matchToken(format[i:])
		if token == "" {
			b.WriteByte(format[i])
			i++
			continue
		}
		b.WriteString(formatToken(t, token))
		i += len(token)
	}
	return b.String()
}

// FormatSeconds renders a playback position, in seconds, with a date format.
// Hours wrap at 24.
func FormatSeconds(seconds float64, format string) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	return FormatDate(time.Unix(0, 0).UTC().Add(d), format)
}

func matchToken(s string) string {
	for _, token := range dateTokens {
		if strings.HasPrefix(s, token) {
			return token
		}
	}
	return ""
}

func formatToken(t time.Time, token string) string {
	switch token {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return fmt.Sprint(int(t.Month()))
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "D":
		return fmt.Sprint(t.Day())
	case "Do":
		return ordinal(t.Day())
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return fmt.Sprint(t.Hour())
	case "hh":
		return fmt.Sprintf("%02d", twelveHour(t.Hour()))
	case "h":
		return fmt.Sprint(twelveHour(t.Hour()))
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "m":
		return fmt.Sprint(t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return fmt.Sprint(t.Second())
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "a":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	}
	return token
}

func twelveHour(h int) int {
	h %= 12
	if h == 0 {
		return 12
	}
	return h
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
