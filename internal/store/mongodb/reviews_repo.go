package mongodb

import (
	"context"
	"time"

	"github.com/openlearnhq/campdir/internal/domain/review"
	"github.com/openlearnhq/campdir/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReviewsRepo struct {
	col *mongo.Collection
	obs Observer
}

func NewReviewsRepo(s *Store) *ReviewsRepo {
	return &ReviewsRepo{col: s.collection("reviews"), obs: s.obs}
}

func (r *ReviewsRepo) List(ctx context.Context, q query.ListQuery) ([]review.Review, int64, error) {
	var out []review.Review
	var total int64

	err := r.obs.ObserveDB("reviews.list", func() error {
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
		out = []review.Review{}
	}

	return out, total, nil
}

func (r *ReviewsRepo) GetByID(ctx context.Context, id string) (review.Review, error) {
	oid, err := ParseID(id)

	if err != nil {
		return review.Review{}, err
	}

	var rv review.Review

	err = classify(r.obs.ObserveDB("reviews.get", func() error {
		return r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&rv)
	}))

	if err != nil {
		return review.Review{}, err
	}

	return rv, nil
}

// Create relies on the unique (bootcamp, user) index: a second review for
// the same pair comes back as ErrDuplicate, never as a silent overwrite.
func (r *ReviewsRepo) Create(ctx context.Context, rv review.Review) (review.Review, error) {
	rv.ID = primitive.NewObjectID()
	rv.CreatedAt = time.Now().UTC()

	err := classify(r.obs.ObserveDB("reviews.create", func() error {
		_, err := r.col.InsertOne(ctx, rv)
		return err
	}))

	if err != nil {
		return review.Review{}, err
	}

	return rv, nil
}

func (r *ReviewsRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (review.Review, error) {
	oid, err := ParseID(id)

	if err != nil {
		return review.Review{}, err
	}

	var rv review.Review

	err = classify(r.obs.ObserveDB("reviews.update", func() error {
		return r.col.FindOneAndUpdate(
			ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M(fields)},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&rv)
	}))

	if err != nil {
		return review.Review{}, err
	}

	return rv, nil
}

func (r *ReviewsRepo) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)

	if err != nil {
		return err
	}

	return r.obs.ObserveDB("reviews.delete", func() error {
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

// AverageRating computes the mean rating over the bootcamp's remaining
// reviews. Returns nil when no reviews are left so the caller can unset
// the derived field.
func (r *ReviewsRepo) AverageRating(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error) {
	var avg *float64

	err := r.obs.ObserveDB("reviews.average_rating", func() error {
		cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$match", Value: bson.M{"bootcamp": bootcampID}}},
			{{Key: "$group", Value: bson.M{
				"_id":           "$bootcamp",
				"averageRating": bson.M{"$avg": "$rating"},
			}}},
		})

		if err != nil {
			return err
		}

		var rows []struct {
			AverageRating float64 `bson:"averageRating"`
		}

		if err := cur.All(ctx, &rows); err != nil {
			return err
		}

		if len(rows) > 0 {
			avg = &rows[0].AverageRating
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return avg, nil
}
