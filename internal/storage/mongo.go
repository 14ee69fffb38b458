package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoArchive stores one document per run.
type MongoArchive struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoArchive connects to uri and pings the primary.
func NewMongoArchive(ctx context.Context, uri, database, collection string) (*MongoArchive, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo archive: uri is required")
	}
	if database == "" {
		database = "pacing"
	}
	if collection == "" {
		collection = "runs"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo archive: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo archive: ping: %w", err)
	}
	return &MongoArchive{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// Save upserts rec by id.
func (a *MongoArchive) Save(ctx context.Context, rec *RunRecord) error {
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	return err
}

// Get returns the run with id or ErrNotFound.
func (a *MongoArchive) Get(ctx context.Context, id string) (*RunRecord, error) {
	var rec RunRecord
	err := a.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns runs ordered by creation time, newest first.
func (a *MongoArchive) List(ctx context.Context, limit int, status models.RunStatus) ([]*RunRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	filter := bson.D{}
	if status != "" {
		filter = bson.D{{Key: "status", Value: string(status)}}
	}
	cur, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []*RunRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close disconnects the client.
func (a *MongoArchive) Close() error {
	return a.client.Disconnect(context.Background())
}
