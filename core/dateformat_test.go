package core

import (
	"testing"
	"time"
)

func TestFormatLongDate(t *testing.T) {
	day := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		locale string
		want   string
	}{
		{"pt-BR", "2 de janeiro de 2024"},
		{"es-ES", "2 de enero de 2024"},
		{"en-US", "January 2, 2024"},
		{"xx-XX", "2 de janeiro de 2024"},
	}
	for _, tt := range tests {
		if got := FormatLongDate(day, tt.locale); got != tt.want {
			t.Errorf("FormatLongDate(%s) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestFormatLongDate_UsesUTCCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	// 22:00 on Dec 31 at UTC-3 is already Jan 1 in UTC.
	tm := time.Date(2023, time.December, 31, 22, 0, 0, 0, loc)
	if got := FormatLongDate(tm, "pt-BR"); got != "1 de janeiro de 2024" {
		t.Fatalf("got %q", got)
	}
}
