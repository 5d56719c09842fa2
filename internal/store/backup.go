package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/camda/countdown/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) Create(filename, s3Key string) (*model.Backup, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO backups (filename, s3_key, status, created_at) VALUES (?, ?, ?, ?)`,
		filename, s3Key, model.BackupStatusPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Backup{
		ID:        id,
		Filename:  filename,
		S3Key:     s3Key,
		Status:    model.BackupStatusPending,
		CreatedAt: now,
	}, nil
}

func (s *BackupStore) GetByID(id int64) (*model.Backup, error) {
	b := &model.Backup{}
	err := s.db.QueryRow(
		`SELECT id, filename, s3_key, size_bytes, status, error, created_at
		 FROM backups WHERE id = ?`, id,
	).Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return b, nil
}

func (s *BackupStore) List(limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(
		`SELECT id, filename, s3_key, size_bytes, status, error, created_at
		 FROM backups ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		if err := rows.Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) UpdateStatus(id int64, status, errorMsg string) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, error = ? WHERE id = ?`,
		status, errorMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update backup status: %w", err)
	}
	return nil
}

func (s *BackupStore) UpdateCompleted(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, size_bytes = ? WHERE id = ?`,
		model.BackupStatusCompleted, sizeBytes, id,
	)
	if err != nil {
		return fmt.Errorf("update backup completed: %w", err)
	}
	return nil
}

// DeleteOlderThan deletes backup records older than the given time and
// returns the S3 keys of deleted backups so the objects can be removed too.
func (s *BackupStore) DeleteOlderThan(before time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT s3_key FROM backups WHERE created_at < ?`, before)
	if err != nil {
		return nil, fmt.Errorf("select old backups: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan s3 key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM backups WHERE created_at < ?`, before); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}

func (s *BackupStore) LatestCompleted() (*model.Backup, error) {
	b := &model.Backup{}
	err := s.db.QueryRow(
		`SELECT id, filename, s3_key, size_bytes, status, error, created_at
		 FROM backups WHERE status = ? ORDER BY created_at DESC LIMIT 1`,
		model.BackupStatusCompleted,
	).Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest completed backup: %w", err)
	}
	return b, nil
}
