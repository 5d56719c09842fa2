package store

import (
	"testing"
	"time"

	"github.com/camda/countdown/internal/model"
)

func TestBackupLifecycle(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))

	b, err := bs.Create("countdown-20240315.db.enc", "backups/countdown-20240315.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusPending)
	}

	if err := bs.UpdateStatus(b.ID, model.BackupStatusUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := bs.UpdateCompleted(b.ID, 4096); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	got, err := bs.GetByID(b.ID)
	if err != nil {
		t.Fatalf("get backup: %v", err)
	}
	if got.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusCompleted)
	}
	if got.SizeBytes != 4096 {
		t.Errorf("size_bytes = %d, want 4096", got.SizeBytes)
	}

	latest, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest == nil || latest.ID != b.ID {
		t.Errorf("latest completed = %+v, want id %d", latest, b.ID)
	}
}

func TestBackupFailure(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))

	b, err := bs.Create("bad.db.enc", "backups/bad.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if err := bs.UpdateStatus(b.ID, model.BackupStatusFailed, "s3 upload timed out"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := bs.GetByID(b.ID)
	if err != nil {
		t.Fatalf("get backup: %v", err)
	}
	if got.Status != model.BackupStatusFailed {
		t.Errorf("status = %q, want %q", got.Status, model.BackupStatusFailed)
	}
	if got.Error != "s3 upload timed out" {
		t.Errorf("error = %q, want %q", got.Error, "s3 upload timed out")
	}

	latest, err := bs.LatestCompleted()
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest != nil {
		t.Errorf("latest completed = %+v, want nil", latest)
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := NewBackupStore(setupTestDB(t))

	if _, err := bs.Create("old.db.enc", "backups/old.db.enc"); err != nil {
		t.Fatalf("create backup: %v", err)
	}

	keys, err := bs.DeleteOlderThan(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/old.db.enc" {
		t.Errorf("keys = %v, want [backups/old.db.enc]", keys)
	}

	remaining, err := bs.List(10)
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("len(remaining) = %d, want 0", len(remaining))
	}
}
