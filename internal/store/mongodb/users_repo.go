package mongodb

import (
	"context"
	"time"

	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UsersRepo struct {
	col *mongo.Collection
	obs Observer
}

func NewUsersRepo(s *Store) *UsersRepo {
	return &UsersRepo{col: s.collection("users"), obs: s.obs}
}

func (r *UsersRepo) List(ctx context.Context, q query.ListQuery) ([]user.User, int64, error) {
	var out []user.User
	var total int64

	err := r.obs.ObserveDB("users.list", func() error {
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
		out = []user.User{}
	}

	return out, total, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	oid, err := ParseID(id)

	if err != nil {
		return user.User{}, err
	}

	var u user.User

	err = classify(r.obs.ObserveDB("users.get", func() error {
		return r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	}))

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := classify(r.obs.ObserveDB("users.get_by_email", func() error {
		return r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	}))

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// Create surfaces the unique email index violation as ErrDuplicate.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()

	err := classify(r.obs.ObserveDB("users.create", func() error {
		_, err := r.col.InsertOne(ctx, u)
		return err
	}))

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (user.User, error) {
	oid, err := ParseID(id)

	if err != nil {
		return user.User{}, err
	}

	var u user.User

	err = classify(r.obs.ObserveDB("users.update", func() error {
		return r.col.FindOneAndUpdate(
			ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M(fields)},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&u)
	}))

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)

	if err != nil {
		return err
	}

	return r.obs.ObserveDB("users.delete", func() error {
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
