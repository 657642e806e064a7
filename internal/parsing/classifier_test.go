package parsing

import (
	"testing"
	"time"
)

func TestDetectLevel(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"2023-01-01 10:00:00 ERROR something broke", "ERROR"},
		{"warn: disk almost full", "WARNING"},
		{"WARNING: disk almost full", "WARNING"},
		{"plain text with no hint", ""},
		{"debug trace enabled", "DEBUG"},
		{"CRITICAL failure in pump", "CRITICAL"},
		{"fatal: cannot continue", "FATAL"},
		// DEBUG wins over ERROR because detection order is fixed.
		{"DEBUG dumping ERROR counters", "DEBUG"},
	}
	for _, tc := range cases {
		if got := DetectLevel(tc.line); got != tc.want {
			t.Errorf("DetectLevel(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestDetectTimestampISO(t *testing.T) {
	want := time.Date(2023, 1, 1, 10, 0, 0, 0, time.Local).UTC().Format(ISOMillisUTC)
	got := DetectTimestamp("2023-01-01 10:00:00 INFO started")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	withFrac := time.Date(2023, 1, 1, 10, 0, 0, 345*int(time.Millisecond), time.Local).UTC().Format(ISOMillisUTC)
	if got := DetectTimestamp("2023-01-01T10:00:00.345 INFO started"); got != withFrac {
		t.Errorf("got %q, want %q", got, withFrac)
	}
}

func TestDetectTimestampSyslog(t *testing.T) {
	got := DetectTimestamp("Mar 15 08:30:00 host sshd[123]: accepted")
	if got == "" {
		t.Fatal("expected a timestamp for syslog line")
	}
	// Year inference: a month after the current month belongs to last year.
	now := time.Now()
	year := now.Year()
	if time.March > now.Month() {
		year--
	}
	want := time.Date(year, time.March, 15, 8, 30, 0, 0, time.Local).UTC().Format(ISOMillisUTC)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDetectTimestampInvalid(t *testing.T) {
	if got := DetectTimestamp("no timestamp here"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := DetectTimestamp("2023-02-30 10:00:00 impossible date"); got != "" {
		t.Errorf("expected empty for Feb 30, got %q", got)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	// Zoned input goes through standard parsing.
	if got := NormalizeTimestamp("2025-11-13T10:30:20.345Z"); got != "2025-11-13T10:30:20.345Z" {
		t.Errorf("zoned: got %q", got)
	}
	if got := NormalizeTimestamp("2025-11-13T10:30:20+02:00"); got != "2025-11-13T08:30:20.000Z" {
		t.Errorf("offset: got %q", got)
	}

	// Zoneless input is local wall-clock time, and deterministic.
	naive := NormalizeTimestamp("2025-11-13 10:30:20.345")
	want := time.Date(2025, 11, 13, 10, 30, 20, 345*int(time.Millisecond), time.Local).UTC().Format(ISOMillisUTC)
	if naive != want {
		t.Errorf("naive: got %q, want %q", naive, want)
	}
	if again := NormalizeTimestamp("2025-11-13 10:30:20.345"); again != naive {
		t.Errorf("not deterministic: %q vs %q", again, naive)
	}

	if got := NormalizeTimestamp("not a date"); got != "" {
		t.Errorf("garbage: got %q", got)
	}
	if got := NormalizeTimestamp(""); got != "" {
		t.Errorf("empty: got %q", got)
	}
}

func TestStripTimestampPrefix(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"2023-01-01 10:00:00 INFO started", "INFO started"},
		{"[2023-01-01 10:00:00] INFO started", "INFO started"},
		{"Mar 15 08:30:00 host message", "host message"},
		{"no prefix at all", "no prefix at all"},
		{"middle 2023-01-01 10:00:00 stays", "middle 2023-01-01 10:00:00 stays"},
	}
	for _, tc := range cases {
		if got := StripTimestampPrefix(tc.line); got != tc.want {
			t.Errorf("StripTimestampPrefix(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestIsExceptionStart(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"Exception in thread \"main\" java.lang.NullPointerException", true},
		{"exception in thread worker-1", true},
		{"ValueError: invalid literal", true},
		{"CustomException: boom", true},
		{"  ValueError: indented detail", false},
		{"ordinary line", false},
	}
	for _, tc := range cases {
		if got := IsExceptionStart(tc.line); got != tc.want {
			t.Errorf("IsExceptionStart(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestIsContinuationLine(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"2023-01-01 10:00:00 INFO new entry", false},
		{"[2023-01-01 10:00:00] bracketed new entry", false},
		{"Mar 15 08:30:00 syslog new entry", false},
		{"Exception in thread \"main\" boom", false},
		{"ValueError: unindented header", false},
		{"Traceback (most recent call last):", true},
		{"  File \"app.py\", line 42", true},
		{"  ValueError: indented detail", true},
		{"    at com.example.Main.run(Main.java:10)", true},
		{"\tat Object.<anonymous> (app.js:1:1)", true},
		{"  two-space indented free text", true},
		{" single leading space still continues", true},
		{"plain unindented line", false},
	}
	for _, tc := range cases {
		if got := IsContinuationLine(tc.line); got != tc.want {
			t.Errorf("IsContinuationLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
