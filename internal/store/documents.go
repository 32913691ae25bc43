package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sadopc/billr/internal/model"
)

// LoadCollection returns the stored documents of a kind in saved order.
func (s *Store) LoadCollection(kind model.Kind) ([]json.RawMessage, error) {
	rows, err := s.db.Query(`SELECT body FROM documents WHERE kind = ? ORDER BY position`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		docs = append(docs, json.RawMessage(body))
	}
	return docs, rows.Err()
}

// SaveCollection replaces every document of a kind in one transaction.
func (s *Store) SaveCollection(kind model.Kind, docs []json.RawMessage) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM documents WHERE kind = ?`, string(kind)); err != nil {
			return fmt.Errorf("clear %s: %w", kind, err)
		}
		stmt, err := tx.Prepare(`INSERT INTO documents (kind, position, id, body) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, doc := range docs {
			if _, err := stmt.Exec(string(kind), i, documentID(doc, i), string(doc)); err != nil {
				return fmt.Errorf("save %s #%d: %w", kind, i, err)
			}
		}
		return nil
	})
}

// Counts returns the number of stored documents per kind.
func (s *Store) Counts() (map[model.Kind]int, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM documents GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[model.Kind(kind)] = n
	}
	return counts, rows.Err()
}

// documentID reads the "id" field of a document, falling back to its
// position when absent.
func documentID(doc json.RawMessage, pos int) string {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc, &head); err != nil || head.ID == "" {
		return fmt.Sprintf("#%d", pos)
	}
	return head.ID
}
