package report

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crosslang/sdkbench/pkg/errors"
)

// MongoStore persists reports and edges in MongoDB. Reports append to
// the reports collection; edges upsert by 4-tuple so the collection
// always holds the newest verdict per pairing.
type MongoStore struct {
	client  *mongo.Client
	reports *mongo.Collection
	edges   *mongo.Collection
}

// NewMongoStore connects to the given URI and uses the named database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "pinging mongodb")
	}
	db := client.Database(database)
	return &MongoStore{
		client:  client,
		reports: db.Collection("reports"),
		edges:   db.Collection("edges"),
	}, nil
}

// SaveReport implements Store.
func (s *MongoStore) SaveReport(ctx context.Context, r *Report) error {
	if _, err := s.reports.InsertOne(ctx, r); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "saving report %s", r.RunID)
	}
	return nil
}

// LoadLatest implements Store.
func (s *MongoStore) LoadLatest(ctx context.Context) (*Report, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var r Report
	err := s.reports.FindOne(ctx, bson.D{}, opts).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeNotFound, "no report saved yet")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "loading latest report")
	}
	return &r, nil
}

// UpsertEdges implements Store.
func (s *MongoStore) UpsertEdges(ctx context.Context, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, len(edges))
	for i, e := range edges {
		filter := bson.D{
			{Key: "client_lang", Value: e.ClientLang},
			{Key: "client_version", Value: e.ClientVersion},
			{Key: "server_lang", Value: e.ServerLang},
			{Key: "server_version", Value: e.ServerVersion},
		}
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(e).
			SetUpsert(true)
	}
	if _, err := s.edges.BulkWrite(ctx, models); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "upserting %d edges", len(edges))
	}
	return nil
}

// Edges implements Store.
func (s *MongoStore) Edges(ctx context.Context) ([]Edge, error) {
	opts := options.Find().SetSort(bson.D{{Key: "cell_id", Value: 1}})
	cur, err := s.edges.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "listing edges")
	}
	defer cur.Close(ctx)

	var edges []Edge
	if err := cur.All(ctx, &edges); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decoding edges")
	}
	return edges, nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
