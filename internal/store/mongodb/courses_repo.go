package mongodb

import (
	"context"
	"time"

	"github.com/openlearnhq/campdir/internal/domain/course"
	"github.com/openlearnhq/campdir/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CoursesRepo struct {
	col *mongo.Collection
	obs Observer
}

func NewCoursesRepo(s *Store) *CoursesRepo {
	return &CoursesRepo{col: s.collection("courses"), obs: s.obs}
}

func (r *CoursesRepo) List(ctx context.Context, q query.ListQuery) ([]course.Course, int64, error) {
	var out []course.Course
	var total int64

	err := r.obs.ObserveDB("courses.list", func() error {
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
		out = []course.Course{}
	}

	return out, total, nil
}

func (r *CoursesRepo) GetByID(ctx context.Context, id string) (course.Course, error) {
	oid, err := ParseID(id)

	if err != nil {
		return course.Course{}, err
	}

	var c course.Course

	err = classify(r.obs.ObserveDB("courses.get", func() error {
		return r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&c)
	}))

	if err != nil {
		return course.Course{}, err
	}

	return c, nil
}

func (r *CoursesRepo) Create(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now().UTC()

	err := classify(r.obs.ObserveDB("courses.create", func() error {
		_, err := r.col.InsertOne(ctx, c)
		return err
	}))

	if err != nil {
		return course.Course{}, err
	}

	return c, nil
}

func (r *CoursesRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (course.Course, error) {
	oid, err := ParseID(id)

	if err != nil {
		return course.Course{}, err
	}

	var c course.Course

	err = classify(r.obs.ObserveDB("courses.update", func() error {
		return r.col.FindOneAndUpdate(
			ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M(fields)},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&c)
	}))

	if err != nil {
		return course.Course{}, err
	}

	return c, nil
}

func (r *CoursesRepo) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)

	if err != nil {
		return err
	}

	return r.obs.ObserveDB("courses.delete", func() error {
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

// ListByBootcamps feeds the reverse populate of courses into bootcamps.
func (r *CoursesRepo) ListByBootcamps(ctx context.Context, ids []primitive.ObjectID) ([]course.Course, error) {
	if len(ids) == 0 {
		return []course.Course{}, nil
	}

	var out []course.Course

	err := r.obs.ObserveDB("courses.list_by_bootcamps", func() error {
		cur, err := r.col.Find(ctx, bson.M{"bootcamp": bson.M{"$in": ids}})

		if err != nil {
			return err
		}

		return cur.All(ctx, &out)
	})

	if err != nil {
		return nil, err
	}

	if out == nil {
		out = []course.Course{}
	}

	return out, nil
}
