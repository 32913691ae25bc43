package pgstore

import (
	"time"

	"gorm.io/datatypes"
)

// Document is one persisted entity of a ledger collection.
type Document struct {
	Kind     string         `gorm:"primaryKey;size:32"`
	ID       string         `gorm:"primaryKey;size:64"`
	Position int            `gorm:"index"`
	Body     datatypes.JSON `gorm:"not null"`
	SavedAt  time.Time
}

func (Document) TableName() string { return "billr_documents" }

type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (Setting) TableName() string { return "billr_settings" }
