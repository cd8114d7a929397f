package firestore

import (
	"context"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

type conditionKind int

const (
	orderAscending conditionKind = iota
	orderDescending
	equal
	greaterThan
	lessThan
	greaterThanOrEqual
	lessThanOrEqual
	arrayContains
)

// Condition narrows or orders a List call. Conditions are built with the
// constructor functions in this package and applied in the order given.
type Condition struct {
	kind  conditionKind
	key   string
	value interface{}
}

// OrderAscending orders results by the given field, ascending.
func OrderAscending(key string) Condition {
	return Condition{kind: orderAscending, key: key}
}

// OrderDescending orders results by the given field, descending.
func OrderDescending(key string) Condition {
	return Condition{kind: orderDescending, key: key}
}

// Equal matches documents whose field equals target.
func Equal(key string, target interface{}) Condition {
	return Condition{kind: equal, key: key, value: target}
}

// GreaterThan matches documents whose field is greater than target.
func GreaterThan(key string, target interface{}) Condition {
	return Condition{kind: greaterThan, key: key, value: target}
}

// LessThan matches documents whose field is less than target.
func LessThan(key string, target interface{}) Condition {
	return Condition{kind: lessThan, key: key, value: target}
}

// GreaterThanOrEqual matches documents whose field is greater than or equal
// to target.
func GreaterThanOrEqual(key string, target interface{}) Condition {
	return Condition{kind: greaterThanOrEqual, key: key, value: target}
}

// LessThanOrEqual matches documents whose field is less than or equal to
// target.
func LessThanOrEqual(key string, target interface{}) Condition {
	return Condition{kind: lessThanOrEqual, key: key, value: target}
}

// ArrayContains matches documents whose array field contains target.
func ArrayContains(key string, target interface{}) Condition {
	return Condition{kind: arrayContains, key: key, value: target}
}

func (c Condition) apply(q fs.Query) fs.Query {
	switch c.kind {
	case orderAscending:
		return q.OrderBy(c.key, fs.Asc)
	case orderDescending:
		return q.OrderBy(c.key, fs.Desc)
	case equal:
		return q.Where(c.key, "==", c.value)
	case greaterThan:
		return q.Where(c.key, ">", c.value)
	case lessThan:
		return q.Where(c.key, "<", c.value)
	case greaterThanOrEqual:
		return q.Where(c.key, ">=", c.value)
	case lessThanOrEqual:
		return q.Where(c.key, "<=", c.value)
	case arrayContains:
		return q.Where(c.key, "array-contains", c.value)
	default:
		return q
	}
}

// Query describes a List call: its conditions, the page size, and an
// optional cursor. StartAfter names the last document ID of the previous
// page; results resume after that document.
type Query struct {
	Conditions []Condition
	Limit      int
	StartAfter string
}

// Document is one result of a List call.
type Document struct {
	ID   string
	snap *fs.DocumentSnapshot
}

// DataTo decodes the document into v, with the same semantics as
// DocumentSnapshot.DataTo.
func (d Document) DataTo(v interface{}) error {
	return d.snap.DataTo(v)
}

// Data returns the document fields as a map.
func (d Document) Data() map[string]interface{} {
	return d.snap.Data()
}

// List returns the documents of the collection matching the query.
func (c *Client) List(ctx context.Context, collection string, query Query) ([]Document, error) {
	col := c.collection(collection)

	q := col.Query
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	for _, cond := range query.Conditions {
		q = cond.apply(q)
	}

	if query.StartAfter != "" {
		cursor, err := col.Doc(query.StartAfter).Get(ctx)
		if err != nil {
			return nil, err
		}
		q = q.StartAfter(cursor)
	}

	var docs []Document
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: snap.Ref.ID, snap: snap})
	}
	return docs, nil
}
