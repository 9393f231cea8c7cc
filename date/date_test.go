package date

import (
	"encoding/json"
	"testing"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestNewNormalizes(t *testing.T) {
	if got, want := New(2025, 2, 30), MustParse("2025-03-02"); got != want {
		t.Errorf("New(2025, 2, 30) = %v, want %v", got, want)
	}
}

func TestAddMonths(t *testing.T) {
	testCases := []struct {
		on     string
		months int
		want   string
	}{
		{"2014-01-16", 6, "2014-07-16"},
		{"2014-08-31", 6, "2015-02-28"},
		{"2014-08-31", 12, "2015-08-31"},
		{"2014-08-31", 18, "2016-02-29"}, // leap year
		{"2015-03-31", 3, "2015-06-30"},
		{"2016-02-29", 12, "2017-02-28"},
		{"2016-02-29", 48, "2020-02-29"},
		{"2014-12-31", -6, "2014-06-30"},
	}
	for _, tc := range testCases {
		got := MustParse(tc.on).AddMonths(tc.months)
		if got != MustParse(tc.want) {
			t.Errorf("%s.AddMonths(%d) = %v, want %s", tc.on, tc.months, got, tc.want)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	testCases := []struct {
		from, to string
		want     int
	}{
		{"2014-01-16", "2014-01-16", 0},
		{"2014-01-16", "2014-01-20", 4},
		{"2014-01-20", "2014-01-16", -4},
		{"2015-03-01", "2016-03-01", 366},
		{"2014-03-01", "2015-03-01", 365},
	}
	for _, tc := range testCases {
		if got := MustParse(tc.from).DaysUntil(MustParse(tc.to)); got != tc.want {
			t.Errorf("%s.DaysUntil(%s) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCompare(t *testing.T) {
	a, b := MustParse("2014-01-20"), MustParse("2014-02-01")
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Errorf("Compare is not a total order on %v and %v", a, b)
	}
	if !a.Before(b) || a.After(b) {
		t.Errorf("%v should be before %v", a, b)
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("2025-7-1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.String() != "2025-07-01" {
		t.Errorf("Parse(\"2025-7-1\") = %v, want 2025-07-01", d)
	}
	if _, err := Parse("01/07/2025"); err == nil {
		t.Error("Parse(\"01/07/2025\") should fail")
	}
}

func TestJSON(t *testing.T) {
	in := MustParse("2014-01-20")
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `"2014-01-20"` {
		t.Errorf("Marshal() = %s", b)
	}
	var out Date
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out != in {
		t.Errorf("Unmarshal() = %v, want %v", out, in)
	}
}

func TestRange(t *testing.T) {
	r := NewRange(MustParse("2014-01-20"), MustParse("2014-01-23"))
	var days []string
	for d := range r.Days() {
		days = append(days, d.String())
	}
	if len(days) != 3 || days[0] != "2014-01-20" || days[2] != "2014-01-22" {
		t.Errorf("Days() = %v", days)
	}
	for range NewRange(r.To, r.From).Days() {
		t.Error("reversed range should have no day")
	}
}
