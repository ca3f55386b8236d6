package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Observer lets the store report per-operation latency and errors.
// Satisfied by observability.Prom; nil disables instrumentation.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

type nopObserver struct{}

func (nopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

// Store is the explicitly constructed entity-store handle. It is injected
// into repositories; there is no package-level connection state.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	obs    Observer
}

func Connect(ctx context.Context, uri, dbName string, obs Observer) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second))

	if err != nil {
		return nil, err
	}

	err = client.Ping(ctx, nil)

	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	if obs == nil {
		obs = nopObserver{}
	}

	return &Store{
		client: client,
		db:     client.Database(dbName),
		obs:    obs,
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes builds the uniqueness and geospatial indexes the handlers
// rely on. The unique review index is the only guard against two
// simultaneous reviews for the same (bootcamp, user) pair.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	if err != nil {
		return err
	}

	_, err = s.db.Collection("reviews").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bootcamp", Value: 1}, {Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	if err != nil {
		return err
	}

	_, err = s.db.Collection("bootcamps").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location", Value: "2dsphere"}},
	})

	return err
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// InsertMany loads pre-built documents in bulk. Used by the seeder.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}

	_, err := s.db.Collection(collection).InsertMany(ctx, docs)

	return err
}

// DropData wipes the named collections. Used by the seeder's destroy
// mode; indexes are rebuilt on the next EnsureIndexes run.
func (s *Store) DropData(ctx context.Context, collections ...string) error {
	for _, name := range collections {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return err
		}
	}

	return nil
}
