package parsing

import (
	"regexp"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// ISOMillisUTC is the normalized timestamp layout used across the engine.
// Rendered from a UTC instant it always carries the "Z" suffix.
const ISOMillisUTC = "2006-01-02T15:04:05.000Z07:00"

const (
	isoSource    = `(\d{4})-(\d{2})-(\d{2})[ T](\d{2}):(\d{2}):(\d{2})(?:[.,](\d{1,9}))?`
	syslogSource = `(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{1,2})\s+(\d{2}):(\d{2}):(\d{2})(?:[.,](\d{1,9}))?`
)

var (
	isoPattern    = regexp.MustCompile(isoSource)
	syslogPattern = regexp.MustCompile(syslogSource)

	// Anchored variants used when deciding whether a line *begins* with a
	// timestamp (possibly bracket-wrapped).
	isoStartPattern    = regexp.MustCompile(`^\[?` + isoSource)
	syslogStartPattern = regexp.MustCompile(`^\[?` + syslogSource)

	timestampPrefix = regexp.MustCompile(`^\s*\[?(?:` + isoSource + `|` + syslogSource + `)\]?[:\s]*`)

	zoneSuffix = regexp.MustCompile(`(?:Z|[+-]\d{2}:?\d{2})$`)

	exceptionHead = regexp.MustCompile(`^\w+(?:Error|Exception):`)

	tracebackHeader = regexp.MustCompile(`^\s*Traceback \(most recent call last\):`)
	pythonFrame     = regexp.MustCompile(`^\s+File ".*", line \d+`)
	indentedError   = regexp.MustCompile(`^\s+\w+(?:Error|Exception):`)
	stackFrame      = regexp.MustCompile(`^\s+at .+`)
)

var monthsByName = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// levelHints is the detection vocabulary in priority order; first substring
// hit wins. WARN canonicalizes to WARNING.
var levelHints = []string{
	models.LevelDebug, models.LevelInfo, "WARN", models.LevelWarning,
	models.LevelError, models.LevelCritical, models.LevelFatal,
}

// DetectLevel guesses a severity level from a raw line. Returns "" when no
// hint is present.
func DetectLevel(line string) string {
	upper := strings.ToUpper(line)
	for _, hint := range levelHints {
		if strings.Contains(upper, hint) {
			return models.CanonicalLevel(hint)
		}
	}
	return ""
}

// DetectTimestamp extracts the first recognizable timestamp from a line and
// returns it normalized to an ISO-8601 UTC string, or "" when nothing
// parses. Zoneless stamps are read as local wall-clock time.
func DetectTimestamp(line string) string {
	if m := isoPattern.FindStringSubmatch(line); m != nil {
		if t, ok := isoComponents(m); ok {
			return t.UTC().Format(ISOMillisUTC)
		}
	}
	if m := syslogPattern.FindStringSubmatch(line); m != nil {
		if t, ok := syslogComponents(m); ok {
			return t.UTC().Format(ISOMillisUTC)
		}
	}
	return ""
}

// NormalizeTimestamp converts an arbitrary candidate timestamp string to
// the normalized ISO-8601 UTC form. Strings carrying an explicit zone
// marker go through zoned parsing; zoneless strings get the same
// local-time interpretation as DetectTimestamp; anything else falls back
// to a generic layout sweep. Returns "" on total failure.
func NormalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if zoneSuffix.MatchString(s) {
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(ISOMillisUTC)
			}
		}
	}

	if m := isoPattern.FindStringSubmatch(s); m != nil && isoPattern.FindStringIndex(s)[0] == 0 {
		if t, ok := isoComponents(m); ok {
			return t.UTC().Format(ISOMillisUTC)
		}
	}
	if m := syslogPattern.FindStringSubmatch(s); m != nil {
		if t, ok := syslogComponents(m); ok {
			return t.UTC().Format(ISOMillisUTC)
		}
	}

	// Last resort: sweep common layouts, zoneless ones in local time.
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC().Format(ISOMillisUTC)
		}
	}
	return ""
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.000Z07:00",
	"2006-01-02T15:04:05.000Z0700",
	"02/Jan/2006:15:04:05 -0700",
}

var fallbackLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02",
	"Jan _2 15:04:05",
	"Jan 02 2006 15:04:05",
}

// isoComponents builds a local-time instant from an ISO pattern match,
// rejecting dates the calendar normalizes away (e.g. Feb 30).
func isoComponents(m []string) (time.Time, bool) {
	year := atoi(m[1])
	month := atoi(m[2])
	day := atoi(m[3])
	hour, minute, sec := atoi(m[4]), atoi(m[5]), atoi(m[6])
	t := time.Date(year, time.Month(month), day, hour, minute, sec, fractionNanos(m[7]), time.Local)
	if int(t.Month()) != month || t.Day() != day || t.Year() != year {
		return time.Time{}, false
	}
	if hour > 23 || minute > 59 || sec > 60 {
		return time.Time{}, false
	}
	return t, true
}

// syslogComponents builds an instant from a "Mon DD HH:MM:SS" match. The
// year is taken as the current one, except that a month chronologically
// after the current month is read as last year (year-end log rotation).
func syslogComponents(m []string) (time.Time, bool) {
	month, ok := monthsByName[m[1]]
	if !ok {
		return time.Time{}, false
	}
	now := time.Now()
	year := now.Year()
	if month > now.Month() {
		year--
	}
	day := atoi(m[2])
	hour, minute, sec := atoi(m[3]), atoi(m[4]), atoi(m[5])
	t := time.Date(year, month, day, hour, minute, sec, fractionNanos(m[6]), time.Local)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	if hour > 23 || minute > 59 || sec > 60 {
		return time.Time{}, false
	}
	return t, true
}

// fractionNanos converts a captured fractional-seconds string (treated as
// milliseconds when three or fewer digits) into nanoseconds.
func fractionNanos(frac string) int {
	if frac == "" {
		return 0
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	n := atoi(frac)
	for i := len(frac); i < 9; i++ {
		n *= 10
	}
	return n
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// StripTimestampPrefix removes a leading, optionally bracket-wrapped
// timestamp (and surrounding whitespace) from the start of a line. The
// line comes back unchanged when neither pattern matches at the start.
func StripTimestampPrefix(line string) string {
	if loc := timestampPrefix.FindStringIndex(line); loc != nil {
		return line[loc[1]:]
	}
	return line
}

// IsExceptionStart reports whether a line is an unindented exception
// header, which must begin a new entry rather than continue the prior one.
func IsExceptionStart(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(strings.ToLower(trimmed), "exception in thread") {
		return true
	}
	if len(line) > 0 && line[0] != ' ' && line[0] != '\t' {
		return exceptionHead.MatchString(line)
	}
	return false
}

// IsContinuationLine decides whether a line belongs to the body of the
// preceding entry. The final catch-all (any leading whitespace with
// non-empty content) is intentionally permissive.
func IsContinuationLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if isoStartPattern.MatchString(line) || syslogStartPattern.MatchString(line) {
		return false
	}
	if IsExceptionStart(line) {
		return false
	}
	switch {
	case tracebackHeader.MatchString(line):
		return true
	case pythonFrame.MatchString(line):
		return true
	case indentedError.MatchString(line):
		return true
	case stackFrame.MatchString(line):
		return true
	}
	if len(line) >= 2 && isSpace(line[0]) && isSpace(line[1]) {
		return true
	}
	return isSpace(line[0])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
