// File: internal/repository/blob/gorm_blob_repository.go
package blob

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the table row backing one key.
type Record struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:128"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (Record) TableName() string { return "blobs" }

type gormBlobRepository struct {
	db *gorm.DB
}

// NewGormBlobRepository returns a Repository backed by the given database.
// The caller is responsible for migrating Record.
func NewGormBlobRepository(db *gorm.DB) Repository {
	return &gormBlobRepository{db: db}
}

// Get loads the value stored under key.
func (r *gormBlobRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var rec Record
	err := r.db.WithContext(ctx).Where("blob_key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlobNotFound
		}
		log.Printf("[BlobRepository] Database error reading key %s: %v", key, err)
		return nil, fmt.Errorf("database error reading blob: %w", err)
	}
	return rec.Value, nil
}

// Put writes value under key, replacing whatever was there.
func (r *gormBlobRepository) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	rec := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		log.Printf("[BlobRepository] Database error writing key %s (%d bytes): %v", key, len(value), err)
		return fmt.Errorf("database error writing blob: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *gormBlobRepository) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&Record{}).Error; err != nil {
		log.Printf("[BlobRepository] Database error deleting key %s: %v", key, err)
		return fmt.Errorf("database error deleting blob: %w", err)
	}
	return nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("blob key cannot be empty")
	}
	if len(key) > 128 {
		return errors.New("blob key exceeds 128 characters")
	}
	return nil
}
