package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/titleplot/pkg/batch"
)

// Mongo defaults.
const (
	DefaultDatabase   = "titleplot"
	DefaultCollection = "runs"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// runDocument is the stored form of a summary. The listing fields are
// duplicated at the top level so List can project them cheaply.
type runDocument struct {
	Entry   `bson:",inline"`
	Summary batch.Summary `bson:"summary"`
}

// MongoSink stores summaries in a MongoDB collection keyed by run id.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, cfg MongoConfig) (*MongoSink, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &MongoSink{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Write inserts sum. Writing the same run twice replaces it.
func (s *MongoSink) Write(ctx context.Context, sum *batch.Summary) error {
	if err := validateRunID(sum.RunID); err != nil {
		return err
	}
	doc := runDocument{Entry: EntryOf(sum), Summary: *sum}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": sum.RunID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store run %s: %w", sum.RunID, err)
	}
	return nil
}

// Get loads one run.
func (s *MongoSink) Get(ctx context.Context, id string) (*batch.Summary, error) {
	if err := validateRunID(id); err != nil {
		return nil, err
	}
	var doc runDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc.Summary, nil
}

// List returns all runs, newest first.
func (s *MongoSink) List(ctx context.Context) ([]Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started", Value: -1}}).
		SetProjection(bson.M{"summary": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var out []Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var (
	_ Sink    = (*MongoSink)(nil)
	_ Archive = (*MongoSink)(nil)
)
