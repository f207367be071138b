package library

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries the runtime settings read once at startup and passed down
// explicitly. There is no global configuration state.
type Config struct {
	DBPath          string
	Addr            string
	FinePerDay      int
	LoanDays        int
	EnableScheduler bool
	ScheduleHour    string // "HH" or "HH:MM"
}

// DefaultConfig returns the built-in settings used when no environment
// overrides are present.
func DefaultConfig() Config {
	return Config{
		DBPath:       "library.db",
		Addr:         ":8080",
		FinePerDay:   5,
		LoanDays:     14,
		ScheduleHour: "9",
	}
}

// LoadConfig builds a Config from the environment, falling back to defaults
// for anything unset.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("LIBRARY_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LIBRARY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("FINE_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.FinePerDay = n
		}
	}
	if v := os.Getenv("LOAN_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LoanDays = n
		}
	}
	if v := os.Getenv("ENABLE_SCHEDULER"); v != "" {
		cfg.EnableScheduler = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	if v := os.Getenv("SCHEDULE_HOUR"); v != "" {
		cfg.ScheduleHour = v
	}
	return cfg
}

// ParseScheduleHour accepts "HH" or "HH:MM" and returns the wall-clock time
// of day for the daily sweep.
func ParseScheduleHour(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse schedule hour %q: %w", s, err)
	}
	if len(parts) == 2 {
		minute, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("parse schedule minute %q: %w", s, err)
		}
	}
	hour = ((hour % 24) + 24) % 24
	minute = ((minute % 60) + 60) % 60
	return hour, minute, nil
}
