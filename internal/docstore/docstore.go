// Package docstore exposes the keyed document store behind a minimal
// contract: documents are addressed by a Firestore-style path of alternating
// collection and document segments ("users_authentication/42/refresh_tokens"),
// and collections can be filtered with a small fluent query that supports
// bulk delete-and-return.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Operator is a query comparison operator.
type Operator string

const (
	Equal              Operator = "=="
	NotEqual           Operator = "!="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
)

// ErrBadPath reports a collection path with the wrong shape.
var ErrBadPath = errors.New("docstore: collection path must alternate collection/document segments")

// Document is a single stored document returned from a query.
type Document interface {
	// ID returns the document id within its collection.
	ID() string
	// DataTo decodes the document into v.
	DataTo(v any) error
}

// Query filters a collection. Implementations are immutable builders in the
// manner of the driver they wrap.
type Query interface {
	Where(field string, op Operator, value any) Query
	Limit(n int) Query
	Get(ctx context.Context) ([]Document, error)
	// DeleteMatching removes every matching document and returns the deleted
	// documents so callers can audit what was dropped.
	DeleteMatching(ctx context.Context) ([]Document, error)
}

// Store is the persistence contract the services are written against. A nil
// result with found=false means the document is absent; the store never
// conflates absence with an I/O failure.
type Store interface {
	Get(ctx context.Context, collectionPath, documentID string, v any) (found bool, err error)
	Set(ctx context.Context, collectionPath, documentID string, value any) error
	Delete(ctx context.Context, collectionPath, documentID string) error
	Query(collectionPath string) Query
}

// splitPath validates a collection path and separates collection segments from
// parent document ids. The path must have an odd number of segments so it
// always names a collection.
func splitPath(collectionPath string) (collections []string, parents []string, err error) {
	segments := strings.Split(collectionPath, "/")
	if len(segments)%2 == 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrBadPath, collectionPath)
	}
	for i, seg := range segments {
		if seg == "" {
			return nil, nil, fmt.Errorf("%w: %q", ErrBadPath, collectionPath)
		}
		if i%2 == 0 {
			collections = append(collections, seg)
		} else {
			parents = append(parents, seg)
		}
	}
	return collections, parents, nil
}
