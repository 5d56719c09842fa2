package store

import "testing"

func TestSettingsSetGet(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	if err := ss.Set("display_time_format", "24h"); err != nil {
		t.Fatalf("set setting: %v", err)
	}

	got, err := ss.Get("display_time_format")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if got != "24h" {
		t.Errorf("value = %q, want %q", got, "24h")
	}
}

func TestSettingsSetOverwrites(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	if err := ss.Set("backup_hour", "2"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := ss.Set("backup_hour", "5"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}

	got, err := ss.Get("backup_hour")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if got != "5" {
		t.Errorf("value = %q, want %q", got, "5")
	}
}

func TestSettingsGetMissing(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	if _, err := ss.Get("nope"); err == nil {
		t.Error("expected error for missing setting")
	}
}

func TestGetBackupSettings(t *testing.T) {
	ss := NewSettingsStore(setupTestDB(t))

	if err := ss.Set("backup_enabled", "true"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := ss.Set("backup_s3_bucket", "countdown-backups"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := ss.Set("display_time_format", "12h"); err != nil {
		t.Fatalf("set setting: %v", err)
	}

	settings, err := ss.GetBackupSettings()
	if err != nil {
		t.Fatalf("get backup settings: %v", err)
	}
	if len(settings) != 2 {
		t.Errorf("len(settings) = %d, want 2", len(settings))
	}
	if settings["backup_s3_bucket"] != "countdown-backups" {
		t.Errorf("bucket = %q, want %q", settings["backup_s3_bucket"], "countdown-backups")
	}
	if _, ok := settings["display_time_format"]; ok {
		t.Error("display key leaked into backup settings")
	}
}
