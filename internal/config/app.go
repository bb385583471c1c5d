package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"log/slog"
)

// Settings holds the runtime tunables for the dispatcher. Everything has a
// working default so a bare environment still boots against localhost Redis.
type Settings struct {
	HTTPAddr          string
	RedisAddr         string
	SchedulerTimezone string
	ScanWindow        time.Duration
	RetentionPeriod   time.Duration
	ClaimLease        time.Duration
	SweepPageSize     int
}

func LoadSettings() (*Settings, error) {
	settings := &Settings{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		SchedulerTimezone: getEnv("SCHEDULER_TIMEZONE", "Asia/Riyadh"),
		ScanWindow:        time.Minute,
		RetentionPeriod:   30 * 24 * time.Hour,
		ClaimLease:        2 * time.Minute,
		SweepPageSize:     400,
	}

	if raw := os.Getenv("SCAN_WINDOW"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SCAN_WINDOW %q: %w", raw, err)
		}
		settings.ScanWindow = window
	}

	if raw := os.Getenv("CLAIM_LEASE"); raw != "" {
		lease, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CLAIM_LEASE %q: %w", raw, err)
		}
		settings.ClaimLease = lease
	}

	if settings.ClaimLease <= settings.ScanWindow {
		// A lease shorter than the scan cadence would release claims still
		// held by an in-flight dispatch.
		return nil, fmt.Errorf("CLAIM_LEASE %v must exceed the scan window %v", settings.ClaimLease, settings.ScanWindow)
	}

	if raw := os.Getenv("RETENTION_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid RETENTION_DAYS %q", raw)
		}
		settings.RetentionPeriod = time.Duration(days) * 24 * time.Hour
	}

	if raw := os.Getenv("SWEEP_PAGE_SIZE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 || size > 500 {
			// Firestore caps a WriteBatch at 500 operations.
			return nil, fmt.Errorf("invalid SWEEP_PAGE_SIZE %q", raw)
		}
		settings.SweepPageSize = size
	}

	if _, err := time.LoadLocation(settings.SchedulerTimezone); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", settings.SchedulerTimezone, err)
	}

	slog.Info("Loaded application settings",
		"http_addr", settings.HTTPAddr,
		"redis_addr", settings.RedisAddr,
		"timezone", settings.SchedulerTimezone,
		"scan_window", settings.ScanWindow,
		"claim_lease", settings.ClaimLease,
		"retention", settings.RetentionPeriod)

	return settings, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
