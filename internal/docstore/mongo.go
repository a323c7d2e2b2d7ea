package docstore

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sub-collection documents carry the full parent document path in this field
// so one Mongo collection can hold the sub-collection of every parent.
const parentField = "parentId"

var mongoOps = map[Operator]string{
	Equal:              "$eq",
	NotEqual:           "$ne",
	LessThan:           "$lt",
	LessThanOrEqual:    "$lte",
	GreaterThan:        "$gt",
	GreaterThanOrEqual: "$gte",
}

// Mongo implements Store on a MongoDB database. Collection segments of a path
// map onto a dotted collection name ("users_authentication/42/refresh_tokens"
// lands in "users_authentication.refresh_tokens") and parent document ids are
// stored alongside the document in the parentId field.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

// CollectionName reports the Mongo collection a path maps to. Exposed for
// index bootstrap.
func CollectionName(collectionPath string) (string, error) {
	collections, _, err := splitPath(collectionPath)
	if err != nil {
		return "", err
	}
	return strings.Join(collections, "."), nil
}

func (m *Mongo) resolve(collectionPath string) (*mongo.Collection, string, error) {
	collections, parents, err := splitPath(collectionPath)
	if err != nil {
		return nil, "", err
	}
	return m.db.Collection(strings.Join(collections, ".")), strings.Join(parents, "/"), nil
}

func storageID(parentID, documentID string) string {
	if parentID == "" {
		return documentID
	}
	return parentID + "/" + documentID
}

func (m *Mongo) Get(ctx context.Context, collectionPath, documentID string, v any) (bool, error) {
	coll, parentID, err := m.resolve(collectionPath)
	if err != nil {
		return false, err
	}
	err = coll.FindOne(ctx, bson.M{"_id": storageID(parentID, documentID)}).Decode(v)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("docstore: get %s/%s: %w", collectionPath, documentID, err)
	}
	return true, nil
}

func (m *Mongo) Set(ctx context.Context, collectionPath, documentID string, value any) error {
	coll, parentID, err := m.resolve(collectionPath)
	if err != nil {
		return err
	}
	doc, err := toDocument(value)
	if err != nil {
		return err
	}
	doc["_id"] = storageID(parentID, documentID)
	doc["docId"] = documentID
	doc[parentField] = parentID

	_, err = coll.ReplaceOne(ctx, bson.M{"_id": doc["_id"]}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("docstore: set %s/%s: %w", collectionPath, documentID, err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collectionPath, documentID string) error {
	coll, parentID, err := m.resolve(collectionPath)
	if err != nil {
		return err
	}
	_, err = coll.DeleteOne(ctx, bson.M{"_id": storageID(parentID, documentID)})
	if err != nil {
		return fmt.Errorf("docstore: delete %s/%s: %w", collectionPath, documentID, err)
	}
	return nil
}

func (m *Mongo) Query(collectionPath string) Query {
	coll, parentID, err := m.resolve(collectionPath)
	return &mongoQuery{coll: coll, parentID: parentID, err: err}
}

type mongoQuery struct {
	coll     *mongo.Collection
	parentID string
	conds    []bson.M
	limit    int64
	err      error
}

func (q *mongoQuery) Where(field string, op Operator, value any) Query {
	next := *q
	mongoOp, ok := mongoOps[op]
	if !ok && next.err == nil {
		next.err = fmt.Errorf("docstore: unsupported operator %q", op)
	}
	next.conds = append(append([]bson.M{}, q.conds...), bson.M{field: bson.M{mongoOp: value}})
	return &next
}

func (q *mongoQuery) Limit(n int) Query {
	next := *q
	next.limit = int64(n)
	return &next
}

func (q *mongoQuery) filter() bson.M {
	and := []bson.M{{parentField: q.parentID}}
	and = append(and, q.conds...)
	return bson.M{"$and": and}
}

func (q *mongoQuery) Get(ctx context.Context) ([]Document, error) {
	if q.err != nil {
		return nil, q.err
	}
	opts := options.Find()
	if q.limit > 0 {
		opts.SetLimit(q.limit)
	}
	cursor, err := q.coll.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", q.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		docs = append(docs, newRawDocument(cursor.Current))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", q.coll.Name(), err)
	}
	return docs, nil
}

func (q *mongoQuery) DeleteMatching(ctx context.Context) ([]Document, error) {
	docs, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, storageID(q.parentID, doc.ID()))
	}
	_, err = q.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("docstore: delete matching in %s: %w", q.coll.Name(), err)
	}
	return docs, nil
}

// rawDocument wraps the bson bytes of a fetched document.
type rawDocument struct {
	id   string
	data bson.Raw
}

func newRawDocument(data bson.Raw) *rawDocument {
	// Copy: cursor.Current is only valid until the next iteration.
	buf := make(bson.Raw, len(data))
	copy(buf, data)
	id, _ := buf.Lookup("docId").StringValueOK()
	return &rawDocument{id: id, data: buf}
}

func (d *rawDocument) ID() string { return d.id }

func (d *rawDocument) DataTo(v any) error {
	return bson.Unmarshal(d.data, v)
}

func toDocument(value any) (bson.M, error) {
	raw, err := bson.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	return doc, nil
}
