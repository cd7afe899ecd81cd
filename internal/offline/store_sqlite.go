package offline

import (
	"context"
	"fmt"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const createQueueTable = `
CREATE TABLE IF NOT EXISTS offline_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	local_photo_uri TEXT,
	storage_bucket TEXT,
	storage_path TEXT,
	attempts INTEGER NOT NULL DEFAULT 0,
	dead INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore keeps the queue in a device-local SQLite file so submissions
// survive app restarts.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}
	if err := db.Exec(createQueueTable).Error; err != nil {
		return nil, fmt.Errorf("create queue table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Enqueue(ctx context.Context, item QueueItem) error {
	err := s.db.WithContext(ctx).
		Table("offline_queue").
		Create(map[string]interface{}{
			"type":            string(item.Type),
			"payload":         item.Payload,
			"local_photo_uri": item.LocalPhotoURI,
			"storage_bucket":  item.StorageBucket,
			"storage_path":    item.StoragePath,
			"created_at":      item.CreatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("enqueue item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Pending(ctx context.Context) ([]QueueItem, error) {
	var items []QueueItem
	err := s.db.WithContext(ctx).
		Table("offline_queue").
		Where("dead = 0").
		Order("created_at ASC, id ASC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load pending items: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).
		Table("offline_queue").
		Where("id = ?", id).
		Delete(nil).Error
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, id int64, dead bool) error {
	updates := map[string]interface{}{"attempts": gorm.Expr("attempts + 1")}
	if dead {
		updates["dead"] = 1
	}
	err := s.db.WithContext(ctx).
		Table("offline_queue").
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("record failure for item %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("offline_queue").
		Where("dead = 0").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) DeadItems(ctx context.Context) ([]QueueItem, error) {
	var items []QueueItem
	err := s.db.WithContext(ctx).
		Table("offline_queue").
		Where("dead = 1").
		Order("created_at ASC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load dead items: %w", err)
	}
	return items, nil
}

// OSFiles removes photos from the local filesystem.
type OSFiles struct{}

func (OSFiles) Remove(uri string) error {
	if err := os.Remove(uri); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
