package docstore

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps every collection name onto a MongoDB collection of the
// same name. Ids are hex ObjectID strings stored in _id.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// idFilter also matches documents written by other clients with a native
// ObjectID key.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func (m *MongoStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(raw))
	for _, r := range raw {
		docs = append(docs, fromBSON(r))
	}
	return docs, nil
}

func (m *MongoStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}

	id := primitive.NewObjectID().Hex()
	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = id

	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	return id, nil
}

func (m *MongoStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	if err := checkDocument(collection, id); err != nil {
		return err
	}
	coll := m.db.Collection(collection)

	if len(fields) == 0 {
		// $set rejects an empty document
		n, err := coll.CountDocuments(ctx, idFilter(id))
		if err != nil {
			return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	set := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		set[k] = v
	}

	result, err := coll.UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkDocument(collection, id); err != nil {
		return err
	}

	if _, err := m.db.Collection(collection).DeleteOne(ctx, idFilter(id)); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Subscribe opens a change stream on the collection and re-lists it on every
// event. The stream is opened before the initial snapshot so no change
// between the two is lost.
func (m *MongoStore) Subscribe(ctx context.Context, collection string, onChange func(Snapshot)) (Unsubscribe, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if onChange == nil {
		return nil, ErrNilSubscriber
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := m.db.Collection(collection).Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}

	w := startWatcher(streamCtx, collection, func(ctx context.Context) ([]Document, error) {
		return m.List(ctx, collection)
	}, onChange)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			w.notify()
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			log.Printf("change stream on %q stopped: %v", collection, err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			w.stop()
			<-done
		})
	}, nil
}

func fromBSON(raw bson.M) Document {
	doc := Document{Fields: make(Fields, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			switch id := v.(type) {
			case string:
				doc.ID = id
			case primitive.ObjectID:
				doc.ID = id.Hex()
			default:
				doc.ID = fmt.Sprint(id)
			}
			continue
		}
		doc.Fields[k] = normalize(v)
	}
	return doc
}

// normalize converts driver-specific values into plain Go values.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time()
	case int32:
		return int64(t)
	default:
		return v
	}
}
