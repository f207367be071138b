package library

import "testing"

func TestParseScheduleHour(t *testing.T) {
	cases := []struct {
		in           string
		hour, minute int
		wantErr      bool
	}{
		{"9", 9, 0, false},
		{"09", 9, 0, false},
		{"21:30", 21, 30, false},
		{" 7:05 ", 7, 5, false},
		{"24", 0, 0, false},  // wraps to midnight
		{"25", 1, 0, false},
		{"", 0, 0, true},
		{"nine", 0, 0, true},
		{"9:xx", 0, 0, true},
	}
	for _, c := range cases {
		hour, minute, err := ParseScheduleHour(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseScheduleHour(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseScheduleHour(%q): %v", c.in, err)
			continue
		}
		if hour != c.hour || minute != c.minute {
			t.Errorf("ParseScheduleHour(%q) = %d:%d, want %d:%d", c.in, hour, minute, c.hour, c.minute)
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LIBRARY_DB", "/tmp/other.db")
	t.Setenv("LIBRARY_ADDR", ":9090")
	t.Setenv("FINE_PER_DAY", "10")
	t.Setenv("LOAN_DAYS", "7")
	t.Setenv("ENABLE_SCHEDULER", "true")
	t.Setenv("SCHEDULE_HOUR", "21:30")

	cfg := LoadConfig()
	if cfg.DBPath != "/tmp/other.db" || cfg.Addr != ":9090" {
		t.Fatalf("paths not overridden: %+v", cfg)
	}
	if cfg.FinePerDay != 10 || cfg.LoanDays != 7 {
		t.Fatalf("numbers not overridden: %+v", cfg)
	}
	if !cfg.EnableScheduler || cfg.ScheduleHour != "21:30" {
		t.Fatalf("scheduler settings not overridden: %+v", cfg)
	}
}

func TestLoadConfigIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("FINE_PER_DAY", "lots")
	t.Setenv("LOAN_DAYS", "-3")

	cfg := LoadConfig()
	if cfg.FinePerDay != DefaultConfig().FinePerDay {
		t.Fatalf("bad FINE_PER_DAY accepted: %d", cfg.FinePerDay)
	}
	if cfg.LoanDays != DefaultConfig().LoanDays {
		t.Fatalf("bad LOAN_DAYS accepted: %d", cfg.LoanDays)
	}
}
