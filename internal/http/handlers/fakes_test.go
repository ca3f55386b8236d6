package handlers_test

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"github.com/openlearnhq/campdir/internal/domain/course"
	"github.com/openlearnhq/campdir/internal/domain/review"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/geocode"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
	"github.com/openlearnhq/campdir/internal/query"
)

// Keep gin quiet during tests.

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake repositories in the fn-field style: any nil fn falls back to a
// zero-value success.

type fakeBootcampsRepo struct {
	listFn      func(ctx context.Context, q query.ListQuery) ([]bootcamp.Bootcamp, int64, error)
	getFn       func(ctx context.Context, id string) (bootcamp.Bootcamp, error)
	createFn    func(ctx context.Context, b bootcamp.Bootcamp) (bootcamp.Bootcamp, error)
	updateFn    func(ctx context.Context, id string, fields map[string]interface{}) (bootcamp.Bootcamp, error)
	deleteFn    func(ctx context.Context, id string) error
	radiusFn    func(ctx context.Context, lng, lat, radians float64) ([]bootcamp.Bootcamp, error)
	setPhotoFn  func(ctx context.Context, id primitive.ObjectID, filename string) error
	summariesFn func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bootcamp.Summary, error)
	setAvgFn    func(ctx context.Context, id primitive.ObjectID, avg *float64) error
}

func (f *fakeBootcampsRepo) List(ctx context.Context, q query.ListQuery) ([]bootcamp.Bootcamp, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return []bootcamp.Bootcamp{}, 0, nil
}

func (f *fakeBootcampsRepo) GetByID(ctx context.Context, id string) (bootcamp.Bootcamp, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return bootcamp.Bootcamp{}, nil
}

func (f *fakeBootcampsRepo) Create(ctx context.Context, b bootcamp.Bootcamp) (bootcamp.Bootcamp, error) {
	if f.createFn != nil {
		return f.createFn(ctx, b)
	}
	return b, nil
}

func (f *fakeBootcampsRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (bootcamp.Bootcamp, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, fields)
	}
	return bootcamp.Bootcamp{}, nil
}

func (f *fakeBootcampsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeBootcampsRepo) WithinRadius(ctx context.Context, lng, lat, radians float64) ([]bootcamp.Bootcamp, error) {
	if f.radiusFn != nil {
		return f.radiusFn(ctx, lng, lat, radians)
	}
	return []bootcamp.Bootcamp{}, nil
}

func (f *fakeBootcampsRepo) SetPhoto(ctx context.Context, id primitive.ObjectID, filename string) error {
	if f.setPhotoFn != nil {
		return f.setPhotoFn(ctx, id, filename)
	}
	return nil
}

func (f *fakeBootcampsRepo) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bootcamp.Summary, error) {
	if f.summariesFn != nil {
		return f.summariesFn(ctx, ids)
	}
	return map[primitive.ObjectID]bootcamp.Summary{}, nil
}

func (f *fakeBootcampsRepo) SetAverageRating(ctx context.Context, id primitive.ObjectID, avg *float64) error {
	if f.setAvgFn != nil {
		return f.setAvgFn(ctx, id, avg)
	}
	return nil
}

type fakeCoursesRepo struct {
	listFn            func(ctx context.Context, q query.ListQuery) ([]course.Course, int64, error)
	getFn             func(ctx context.Context, id string) (course.Course, error)
	createFn          func(ctx context.Context, c course.Course) (course.Course, error)
	updateFn          func(ctx context.Context, id string, fields map[string]interface{}) (course.Course, error)
	deleteFn          func(ctx context.Context, id string) error
	listByBootcampsFn func(ctx context.Context, ids []primitive.ObjectID) ([]course.Course, error)
}

func (f *fakeCoursesRepo) List(ctx context.Context, q query.ListQuery) ([]course.Course, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return []course.Course{}, 0, nil
}

func (f *fakeCoursesRepo) GetByID(ctx context.Context, id string) (course.Course, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return course.Course{}, nil
}

func (f *fakeCoursesRepo) Create(ctx context.Context, c course.Course) (course.Course, error) {
	if f.createFn != nil {
		return f.createFn(ctx, c)
	}
	return c, nil
}

func (f *fakeCoursesRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (course.Course, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, fields)
	}
	return course.Course{}, nil
}

func (f *fakeCoursesRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeCoursesRepo) ListByBootcamps(ctx context.Context, ids []primitive.ObjectID) ([]course.Course, error) {
	if f.listByBootcampsFn != nil {
		return f.listByBootcampsFn(ctx, ids)
	}
	return []course.Course{}, nil
}

type fakeReviewsRepo struct {
	listFn   func(ctx context.Context, q query.ListQuery) ([]review.Review, int64, error)
	getFn    func(ctx context.Context, id string) (review.Review, error)
	createFn func(ctx context.Context, r review.Review) (review.Review, error)
	updateFn func(ctx context.Context, id string, fields map[string]interface{}) (review.Review, error)
	deleteFn func(ctx context.Context, id string) error
	avgFn    func(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error)
}

func (f *fakeReviewsRepo) List(ctx context.Context, q query.ListQuery) ([]review.Review, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return []review.Review{}, 0, nil
}

func (f *fakeReviewsRepo) GetByID(ctx context.Context, id string) (review.Review, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return review.Review{}, nil
}

func (f *fakeReviewsRepo) Create(ctx context.Context, r review.Review) (review.Review, error) {
	if f.createFn != nil {
		return f.createFn(ctx, r)
	}
	return r, nil
}

func (f *fakeReviewsRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (review.Review, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, fields)
	}
	return review.Review{}, nil
}

func (f *fakeReviewsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeReviewsRepo) AverageRating(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error) {
	if f.avgFn != nil {
		return f.avgFn(ctx, bootcampID)
	}
	return nil, nil
}

type fakeUsersRepo struct {
	listFn       func(ctx context.Context, q query.ListQuery) ([]user.User, int64, error)
	getFn        func(ctx context.Context, id string) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	createFn     func(ctx context.Context, u user.User) (user.User, error)
	updateFn     func(ctx context.Context, id string, fields map[string]interface{}) (user.User, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (f *fakeUsersRepo) List(ctx context.Context, q query.ListQuery) ([]user.User, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, q)
	}
	return []user.User{}, 0, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.User{}, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, nil
}

func (f *fakeUsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return u, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, fields)
	}
	return user.User{}, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeGeocoder struct {
	geocodeFn func(ctx context.Context, address string) (geocode.Location, error)
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (geocode.Location, error) {
	if f.geocodeFn != nil {
		return f.geocodeFn(ctx, address)
	}
	return geocode.Location{
		Lat:              42.35,
		Lng:              -71.1,
		FormattedAddress: "Boston, MA",
		City:             "Boston",
		Zipcode:          "02118",
	}, nil
}

type fakePhotoStore struct {
	putFn func(name string, r io.Reader) error
}

func (f *fakePhotoStore) Put(name string, r io.Reader) error {
	if f.putFn != nil {
		return f.putFn(name, r)
	}
	return nil
}

// setupRouter mounts one handler per test, optionally behind extra
// middleware such as an identity injector.
func setupRouter(method, path string, h gin.HandlerFunc, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	chain := append(append([]gin.HandlerFunc{}, mw...), h)
	r.Handle(method, path, chain...)

	return r
}

// asUser returns middleware that injects a caller identity the way
// RequireAuth would.
func asUser(u user.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middlewares.SetUser(c, u)
		c.Next()
	}
}
