package jobs

import (
	"testing"
	"time"
)

func TestWeekOf(t *testing.T) {
	tests := []struct {
		date string
		want YearWeek
	}{
		{"2025-01-01", YearWeek{2025, 1}},
		{"2024-12-30", YearWeek{2025, 1}}, // ISO year boundary
		{"2025-06-15", YearWeek{2025, 24}},
		{"2026-01-01", YearWeek{2026, 1}},
		{"2021-01-01", YearWeek{2020, 53}}, // long ISO year
	}

	for _, tt := range tests {
		d, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatal(err)
		}
		if got := WeekOf(d); got != tt.want {
			t.Errorf("WeekOf(%s) = %+v, want %+v", tt.date, got, tt.want)
		}
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		yw   YearWeek
		want string
	}{
		{YearWeek{2025, 1}, "2024-12-30"},
		{YearWeek{2025, 24}, "2025-06-09"},
		{YearWeek{2020, 53}, "2020-12-28"},
	}

	for _, tt := range tests {
		got := WeekStart(tt.yw)
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("WeekStart(%+v) = %s, want %s", tt.yw, got.Format("2006-01-02"), tt.want)
		}
		if got.Weekday() != time.Monday {
			t.Errorf("WeekStart(%+v) is %s, want Monday", tt.yw, got.Weekday())
		}
	}
}

func TestWeekStartRoundTrips(t *testing.T) {
	for week := 1; week <= 52; week++ {
		yw := YearWeek{2025, week}
		if got := WeekOf(WeekStart(yw)); got != yw {
			t.Fatalf("round trip failed for %+v: got %+v", yw, got)
		}
	}
}

func TestPrevious_AcrossYearBoundary(t *testing.T) {
	got := YearWeek{2025, 1}.Previous()
	want := YearWeek{2024, 52}
	if got != want {
		t.Errorf("Previous() = %+v, want %+v", got, want)
	}
}

func TestWeeksInRange(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want int
	}{
		{"two weeks plus a day", "2025-01-01", "2025-01-15", 3},
		{"single day", "2025-06-11", "2025-06-11", 1},
		{"same week", "2025-06-09", "2025-06-13", 1},
		{"full year", "2025-01-01", "2025-12-31", 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, _ := time.Parse("2006-01-02", tt.from)
			to, _ := time.Parse("2006-01-02", tt.to)
			weeks := WeeksInRange(from, to)
			if len(weeks) != tt.want {
				t.Errorf("WeeksInRange(%s, %s) = %d weeks, want %d", tt.from, tt.to, len(weeks), tt.want)
			}
		})
	}
}

func TestWeeksInRange_Inverted(t *testing.T) {
	from, _ := time.Parse("2006-01-02", "2025-06-11")
	to, _ := time.Parse("2006-01-02", "2025-06-01")
	if weeks := WeeksInRange(from, to); weeks != nil {
		t.Errorf("expected nil for inverted range, got %v", weeks)
	}
}
