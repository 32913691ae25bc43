package ledger

import (
	"encoding/json"
	"sort"
	"time"
)

// table is an id-keyed collection. Reads return copies ordered by creation
// time, then id.
type table[T any] struct {
	rows    map[string]T
	id      func(T) string
	created func(T) time.Time
}

func newTable[T any](id func(T) string, created func(T) time.Time) *table[T] {
	return &table[T]{rows: make(map[string]T), id: id, created: created}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(v T) {
	t.rows[t.id(v)] = v
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *table[T]) len() int {
	return len(t.rows)
}

func (t *table[T]) all() []T {
	return t.filter(nil)
}

func (t *table[T]) filter(keep func(T) bool) []T {
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := t.created(out[i]), t.created(out[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return t.id(out[i]) < t.id(out[j])
	})
	return out
}

func (t *table[T]) any(match func(T) bool) bool {
	for _, v := range t.rows {
		if match(v) {
			return true
		}
	}
	return false
}

func (t *table[T]) replace(items []T) {
	t.rows = make(map[string]T, len(items))
	for _, v := range items {
		t.rows[t.id(v)] = v
	}
}

func (t *table[T]) docs() ([]json.RawMessage, error) {
	rows := t.all()
	out := make([]json.RawMessage, 0, len(rows))
	for _, v := range rows {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
