package config

import (
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.ScanWindow != time.Minute {
		t.Errorf("scan window = %v, want 1m", settings.ScanWindow)
	}
	if settings.RetentionPeriod != 30*24*time.Hour {
		t.Errorf("retention = %v, want 720h", settings.RetentionPeriod)
	}
	if settings.SchedulerTimezone != "Asia/Riyadh" {
		t.Errorf("timezone = %q, want Asia/Riyadh", settings.SchedulerTimezone)
	}
	if settings.ClaimLease != 2*time.Minute {
		t.Errorf("claim lease = %v, want 2m", settings.ClaimLease)
	}
	if settings.SweepPageSize != 400 {
		t.Errorf("page size = %d, want 400", settings.SweepPageSize)
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	t.Setenv("SCAN_WINDOW", "90s")
	t.Setenv("CLAIM_LEASE", "10m")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("SWEEP_PAGE_SIZE", "100")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.ScanWindow != 90*time.Second {
		t.Errorf("scan window = %v, want 90s", settings.ScanWindow)
	}
	if settings.ClaimLease != 10*time.Minute {
		t.Errorf("claim lease = %v, want 10m", settings.ClaimLease)
	}
	if settings.RetentionPeriod != 7*24*time.Hour {
		t.Errorf("retention = %v, want 168h", settings.RetentionPeriod)
	}
	if settings.SweepPageSize != 100 {
		t.Errorf("page size = %d, want 100", settings.SweepPageSize)
	}
}

func TestLoadSettingsRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "SCAN_WINDOW", "sixty"},
		{"bad lease", "CLAIM_LEASE", "soon"},
		{"lease not exceeding scan window", "CLAIM_LEASE", "30s"},
		{"negative retention", "RETENTION_DAYS", "-1"},
		{"page size over batch limit", "SWEEP_PAGE_SIZE", "600"},
		{"unknown timezone", "SCHEDULER_TIMEZONE", "Not/AZone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadSettings(); err == nil {
				t.Errorf("LoadSettings() error = nil with %s=%s", tt.key, tt.value)
			}
		})
	}
}
