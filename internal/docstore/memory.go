package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-memory Store used by tests. Documents are kept bson-encoded
// so decoding behaves exactly like the Mongo-backed store.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, collectionPath, documentID string, v any) (bool, error) {
	if _, _, err := splitPath(collectionPath); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.collections[collectionPath][documentID]
	if !ok {
		return false, nil
	}
	if err := bson.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("docstore: get %s/%s: %w", collectionPath, documentID, err)
	}
	return true, nil
}

func (m *Memory) Set(ctx context.Context, collectionPath, documentID string, value any) error {
	if _, _, err := splitPath(collectionPath); err != nil {
		return err
	}
	raw, err := bson.Marshal(value)
	if err != nil {
		return fmt.Errorf("docstore: encode document: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collectionPath]
	if !ok {
		coll = make(map[string][]byte)
		m.collections[collectionPath] = coll
	}
	coll[documentID] = raw
	return nil
}

func (m *Memory) Delete(ctx context.Context, collectionPath, documentID string) error {
	if _, _, err := splitPath(collectionPath); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collectionPath], documentID)
	return nil
}

func (m *Memory) Query(collectionPath string) Query {
	_, _, err := splitPath(collectionPath)
	return &memoryQuery{store: m, path: collectionPath, err: err}
}

type memoryCond struct {
	field string
	op    Operator
	value any
}

type memoryQuery struct {
	store *Memory
	path  string
	conds []memoryCond
	limit int
	err   error
}

func (q *memoryQuery) Where(field string, op Operator, value any) Query {
	next := *q
	next.conds = append(append([]memoryCond{}, q.conds...), memoryCond{field, op, value})
	return &next
}

func (q *memoryQuery) Limit(n int) Query {
	next := *q
	next.limit = n
	return &next
}

func (q *memoryQuery) matching() ([]*rawDocument, error) {
	ids := make([]string, 0, len(q.store.collections[q.path]))
	for id := range q.store.collections[q.path] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []*rawDocument
	for _, id := range ids {
		raw := q.store.collections[q.path][id]
		var fields bson.M
		if err := bson.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("docstore: query %s: %w", q.path, err)
		}
		ok := true
		for _, cond := range q.conds {
			match, err := cond.matches(fields)
			if err != nil {
				return nil, err
			}
			if !match {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		docs = append(docs, &rawDocument{id: id, data: bson.Raw(raw)})
		if q.limit > 0 && len(docs) == q.limit {
			break
		}
	}
	return docs, nil
}

func (q *memoryQuery) Get(ctx context.Context) ([]Document, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	docs, err := q.matching()
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}
	return out, nil
}

func (q *memoryQuery) DeleteMatching(ctx context.Context) ([]Document, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	docs, err := q.matching()
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		delete(q.store.collections[q.path], d.id)
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (c memoryCond) matches(fields bson.M) (bool, error) {
	docValue, ok := fields[c.field]
	if !ok {
		return false, nil
	}
	cmp, comparable := compareValues(docValue, c.value)
	switch c.op {
	case Equal:
		return comparable && cmp == 0, nil
	case NotEqual:
		return !comparable || cmp != 0, nil
	case LessThan:
		return comparable && cmp < 0, nil
	case LessThanOrEqual:
		return comparable && cmp <= 0, nil
	case GreaterThan:
		return comparable && cmp > 0, nil
	case GreaterThanOrEqual:
		return comparable && cmp >= 0, nil
	default:
		return false, fmt.Errorf("docstore: unsupported operator %q", c.op)
	}
}

// compareValues orders a decoded bson field against a caller-supplied value,
// normalising the type differences bson decoding introduces (primitive.DateTime
// for times, widened integers).
func compareValues(docValue, queryValue any) (int, bool) {
	if dt, qt, ok := asTimes(docValue, queryValue); ok {
		switch {
		case dt.Before(qt):
			return -1, true
		case dt.After(qt):
			return 1, true
		default:
			return 0, true
		}
	}
	if df, qf, ok := asFloats(docValue, queryValue); ok {
		switch {
		case df < qf:
			return -1, true
		case df > qf:
			return 1, true
		default:
			return 0, true
		}
	}
	ds, dok := docValue.(string)
	qs, qok := queryValue.(string)
	if dok && qok {
		return strings.Compare(ds, qs), true
	}
	db, dbok := docValue.(bool)
	qb, qbok := queryValue.(bool)
	if dbok && qbok {
		if db == qb {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

func asTimes(a, b any) (time.Time, time.Time, bool) {
	at, aok := asTime(a)
	bt, bok := asTime(b)
	return at, bt, aok && bok
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

func asFloats(a, b any) (float64, float64, bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return af, bf, aok && bok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
