package mirror

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMirror stores mirror documents in MongoDB, one collection per entity,
// keyed by _id.
type MongoMirror struct {
	client *mongo.Client
	db     *mongo.Database
}

// DialMongo connects to uri and pings the server.
func DialMongo(ctx context.Context, uri, database string) (*MongoMirror, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return NewMongoMirror(client, database), nil
}

// NewMongoMirror wraps an existing client.
func NewMongoMirror(client *mongo.Client, database string) *MongoMirror {
	return &MongoMirror{client: client, db: client.Database(database)}
}

// Database returns the mirror database handle.
func (m *MongoMirror) Database() *mongo.Database {
	return m.db
}

func (m *MongoMirror) Set(ctx context.Context, collection, id string, doc map[string]any) error {
	replacement := bson.M{}
	for k, v := range doc {
		replacement[k] = v
	}
	replacement["_id"] = id

	opts := options.Replace().SetUpsert(true)
	if _, err := m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, replacement, opts); err != nil {
		return fmt.Errorf("setting %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *MongoMirror) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		set[k] = v
	}

	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("updating %s/%s: %w", collection, id, ErrDocumentMissing)
	}
	return nil
}

func (m *MongoMirror) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *MongoMirror) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
