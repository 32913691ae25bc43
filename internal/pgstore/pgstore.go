// Package pgstore persists ledger collections in Postgres through GORM, for
// server deployments that share one database.
package pgstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/billr/internal/model"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := New(db)
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection without touching the schema.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Document{}, &Setting{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadCollection returns the stored documents of a kind in saved order.
func (s *Store) LoadCollection(kind model.Kind) ([]json.RawMessage, error) {
	var rows []Document
	if err := s.db.Where("kind = ?", string(kind)).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	docs := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, json.RawMessage(r.Body))
	}
	return docs, nil
}

// SaveCollection replaces every document of a kind in one transaction.
func (s *Store) SaveCollection(kind model.Kind, docs []json.RawMessage) error {
	rows := toDocuments(kind, docs, s.now())
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("kind = ?", string(kind)).Delete(&Document{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

// LoadScalar returns the stored value for key, or def when unset.
func (s *Store) LoadScalar(key, def string) (string, error) {
	var setting Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return setting.Value, nil
}

func (s *Store) SaveScalar(key, value string) error {
	setting := Setting{Key: key, Value: value, UpdatedAt: s.now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func toDocuments(kind model.Kind, docs []json.RawMessage, now time.Time) []Document {
	rows := make([]Document, 0, len(docs))
	for i, d := range docs {
		rows = append(rows, Document{
			Kind:     string(kind),
			ID:       documentID(d, i),
			Position: i,
			Body:     datatypes.JSON(d),
			SavedAt:  now,
		})
	}
	return rows
}

func documentID(doc json.RawMessage, pos int) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc, &head); err != nil || head.ID == "" {
		return fmt.Sprintf("#%d", pos)
	}
	return head.ID
}
