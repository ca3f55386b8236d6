package mongodb

import (
	"context"
	"time"

	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"github.com/openlearnhq/campdir/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BootcampsRepo struct {
	col *mongo.Collection
	obs Observer
}

func NewBootcampsRepo(s *Store) *BootcampsRepo {
	return &BootcampsRepo{col: s.collection("bootcamps"), obs: s.obs}
}

// List runs the query pipeline against the collection. The total is
// counted against the active filter, not the whole collection.
func (r *BootcampsRepo) List(ctx context.Context, q query.ListQuery) ([]bootcamp.Bootcamp, int64, error) {
	var out []bootcamp.Bootcamp
	var total int64

	err := r.obs.ObserveDB("bootcamps.list", func() error {
		filter := q.Filter()

		var err error
		total, err = r.col.CountDocuments(ctx, filter)

		if err != nil {
			return err
		}

		opts := options.Find().
			SetSort(q.SortSpec()).
			SetSkip(q.Skip()).
			SetLimit(int64(q.Limit))

		if proj := q.Projection(); proj != nil {
			opts.SetProjection(proj)
		}

		cur, err := r.col.Find(ctx, filter, opts)

		if err != nil {
			return err
		}

		return cur.All(ctx, &out)
	})

	if err != nil {
		return nil, 0, err
	}

	if out == nil {
		out = []bootcamp.Bootcamp{}
	}

	return out, total, nil
}

func (r *BootcampsRepo) GetByID(ctx context.Context, id string) (bootcamp.Bootcamp, error) {
	oid, err := ParseID(id)

	if err != nil {
		return bootcamp.Bootcamp{}, err
	}

	var b bootcamp.Bootcamp

	err = classify(r.obs.ObserveDB("bootcamps.get", func() error {
		return r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&b)
	}))

	if err != nil {
		return bootcamp.Bootcamp{}, err
	}

	return b, nil
}

func (r *BootcampsRepo) Create(ctx context.Context, b bootcamp.Bootcamp) (bootcamp.Bootcamp, error) {
	b.ID = primitive.NewObjectID()
	b.CreatedAt = time.Now().UTC()

	err := classify(r.obs.ObserveDB("bootcamps.create", func() error {
		_, err := r.col.InsertOne(ctx, b)
		return err
	}))

	if err != nil {
		return bootcamp.Bootcamp{}, err
	}

	return b, nil
}

// Update applies a partial field merge and returns the updated document.
func (r *BootcampsRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (bootcamp.Bootcamp, error) {
	oid, err := ParseID(id)

	if err != nil {
		return bootcamp.Bootcamp{}, err
	}

	var b bootcamp.Bootcamp

	err = classify(r.obs.ObserveDB("bootcamps.update", func() error {
		return r.col.FindOneAndUpdate(
			ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M(fields)},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&b)
	}))

	if err != nil {
		return bootcamp.Bootcamp{}, err
	}

	return b, nil
}

func (r *BootcampsRepo) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)

	if err != nil {
		return err
	}

	return r.obs.ObserveDB("bootcamps.delete", func() error {
		res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})

		if err != nil {
			return err
		}

		if res.DeletedCount == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// WithinRadius returns bootcamps whose location lies inside the sphere
// centred at (lng, lat) with the given radius in radians.
func (r *BootcampsRepo) WithinRadius(ctx context.Context, lng, lat, radians float64) ([]bootcamp.Bootcamp, error) {
	var out []bootcamp.Bootcamp

	err := r.obs.ObserveDB("bootcamps.radius", func() error {
		filter := bson.M{
			"location": bson.M{
				"$geoWithin": bson.M{
					"$centerSphere": bson.A{bson.A{lng, lat}, radians},
				},
			},
		}

		cur, err := r.col.Find(ctx, filter)

		if err != nil {
			return err
		}

		return cur.All(ctx, &out)
	})

	if err != nil {
		return nil, err
	}

	if out == nil {
		out = []bootcamp.Bootcamp{}
	}

	return out, nil
}

// SetAverageRating persists a recomputed rating; nil unsets the field.
func (r *BootcampsRepo) SetAverageRating(ctx context.Context, id primitive.ObjectID, avg *float64) error {
	return r.obs.ObserveDB("bootcamps.set_avg_rating", func() error {
		update := bson.M{"$unset": bson.M{"averageRating": ""}}

		if avg != nil {
			update = bson.M{"$set": bson.M{"averageRating": *avg}}
		}

		_, err := r.col.UpdateByID(ctx, id, update)
		return err
	})
}

func (r *BootcampsRepo) SetPhoto(ctx context.Context, id primitive.ObjectID, filename string) error {
	return r.obs.ObserveDB("bootcamps.set_photo", func() error {
		_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"photo": filename}})
		return err
	})
}

// AllIDs lists every bootcamp id. The seeder uses it to rebuild the
// denormalized ratings after a bulk import.
func (r *BootcampsRepo) AllIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}

	err := r.obs.ObserveDB("bootcamps.all_ids", func() error {
		cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))

		if err != nil {
			return err
		}

		return cur.All(ctx, &rows)
	})

	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(rows))

	for i, row := range rows {
		ids[i] = row.ID
	}

	return ids, nil
}

// Summaries loads the name/description slices used to populate the
// bootcamp relation on courses and reviews.
func (r *BootcampsRepo) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bootcamp.Summary, error) {
	if len(ids) == 0 {
		return map[primitive.ObjectID]bootcamp.Summary{}, nil
	}

	var rows []bootcamp.Summary

	err := r.obs.ObserveDB("bootcamps.summaries", func() error {
		cur, err := r.col.Find(
			ctx,
			bson.M{"_id": bson.M{"$in": ids}},
			options.Find().SetProjection(bson.D{
				{Key: "name", Value: 1},
				{Key: "description", Value: 1},
			}),
		)

		if err != nil {
			return err
		}

		return cur.All(ctx, &rows)
	})

	if err != nil {
		return nil, err
	}

	out := make(map[primitive.ObjectID]bootcamp.Summary, len(rows))

	for _, s := range rows {
		out[s.ID] = s
	}

	return out, nil
}
