package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVStore is a storage.Store over a single kv_entries table.
type KVStore struct {
	conn      *gorm.DB
	namespace string
	now       func() time.Time
}

var _ storage.Store = (*KVStore)(nil)

// NewKVStore migrates the kv_entries table and returns a store scoped to namespace.
func NewKVStore(ctx context.Context, conn *gorm.DB, namespace string) (*KVStore, error) {
	if conn == nil {
		return nil, fmt.Errorf("gorm connection is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("migrating kv entries: %w", err)
	}
	return &KVStore{
		conn:      conn,
		namespace: strings.TrimSpace(namespace),
		now:       time.Now,
	}, nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	err := s.conn.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return entry.Value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}
	return s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	return s.conn.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Delete(&models.KVEntry{}).Error
}
