package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"github.com/openlearnhq/campdir/internal/domain/review"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/http/handlers"
	"github.com/openlearnhq/campdir/internal/query"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

func TestCreateReviewHandler(t *testing.T) {
	bootcampID := primitive.NewObjectID()
	caller := user.User{ID: primitive.NewObjectID(), Role: user.RoleUser}

	tests := []struct {
		name           string
		body           string
		repoSetup      func(*fakeReviewsRepo, *fakeBootcampsRepo)
		wantStatusCode int
		wantRecompute  bool
	}{
		{
			name: "success_triggers_rating_recompute",
			body: `{"title": "Learned a ton", "text": "Great pace", "rating": 9}`,
			repoSetup: func(f *fakeReviewsRepo, b *fakeBootcampsRepo) {
				f.createFn = func(ctx context.Context, r review.Review) (review.Review, error) {
					if r.Bootcamp != bootcampID || r.User != caller.ID {
						return review.Review{}, errors.New("relations not set")
					}
					r.ID = primitive.NewObjectID()
					return r, nil
				}
				avg := 9.0
				f.avgFn = func(ctx context.Context, id primitive.ObjectID) (*float64, error) {
					return &avg, nil
				}
			},
			wantStatusCode: http.StatusCreated,
			wantRecompute:  true,
		},
		{
			name: "duplicate_review_is_rejected",
			body: `{"title": "Again", "text": "Twice", "rating": 5}`,
			repoSetup: func(f *fakeReviewsRepo, b *fakeBootcampsRepo) {
				f.createFn = func(ctx context.Context, r review.Review) (review.Review, error) {
					return review.Review{}, mongodb.ErrDuplicate
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "rating_out_of_range",
			body:           `{"title": "Bad", "text": "x", "rating": 11}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "bootcamp_not_found",
			body: `{"title": "Orphan", "text": "x", "rating": 5}`,
			repoSetup: func(f *fakeReviewsRepo, b *fakeBootcampsRepo) {
				b.getFn = func(ctx context.Context, id string) (bootcamp.Bootcamp, error) {
					return bootcamp.Bootcamp{}, mongodb.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeReviewsRepo{}

			recomputed := false

			bootcamps := &fakeBootcampsRepo{
				getFn: func(ctx context.Context, id string) (bootcamp.Bootcamp, error) {
					return bootcamp.Bootcamp{ID: bootcampID}, nil
				},
				setAvgFn: func(ctx context.Context, id primitive.ObjectID, avg *float64) error {
					recomputed = true
					return nil
				},
			}

			if tt.repoSetup != nil {
				tt.repoSetup(repo, bootcamps)
			}

			h := handlers.NewReviewsHandler(repo, bootcamps)
			r := setupRouter(http.MethodPost, "/bootcamps/:id/reviews", h.Create, asUser(caller))

			req := httptest.NewRequest(http.MethodPost, "/bootcamps/"+bootcampID.Hex()+"/reviews", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if recomputed != tt.wantRecompute {
				t.Fatalf("recompute called = %v, want %v", recomputed, tt.wantRecompute)
			}
		})
	}
}

func TestDeleteReviewClearsRatingWhenLast(t *testing.T) {
	bootcampID := primitive.NewObjectID()
	reviewID := primitive.NewObjectID()
	author := user.User{ID: primitive.NewObjectID(), Role: user.RoleUser}

	var gotAvg *float64
	avgCalled := false

	repo := &fakeReviewsRepo{
		getFn: func(ctx context.Context, id string) (review.Review, error) {
			return review.Review{ID: reviewID, Bootcamp: bootcampID, User: author.ID}, nil
		},
		avgFn: func(ctx context.Context, id primitive.ObjectID) (*float64, error) {
			// no reviews left
			return nil, nil
		},
	}

	bootcamps := &fakeBootcampsRepo{
		setAvgFn: func(ctx context.Context, id primitive.ObjectID, avg *float64) error {
			avgCalled = true
			gotAvg = avg
			return nil
		},
	}

	h := handlers.NewReviewsHandler(repo, bootcamps)
	r := setupRouter(http.MethodDelete, "/reviews/:id", h.Delete, asUser(author))

	req := httptest.NewRequest(http.MethodDelete, "/reviews/"+reviewID.Hex(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if !avgCalled {
		t.Fatalf("expected rating recompute after delete")
	}

	if gotAvg != nil {
		t.Fatalf("expected nil average when no reviews remain, got %v", *gotAvg)
	}
}

func TestUpdateReviewOwnership(t *testing.T) {
	authorID := primitive.NewObjectID()
	reviewID := primitive.NewObjectID()

	tests := []struct {
		name           string
		caller         user.User
		wantStatusCode int
	}{
		{
			name:           "author_can_update",
			caller:         user.User{ID: authorID, Role: user.RoleUser},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "admin_can_update",
			caller:         user.User{ID: primitive.NewObjectID(), Role: user.RoleAdmin},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "other_user_forbidden",
			caller:         user.User{ID: primitive.NewObjectID(), Role: user.RoleUser},
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeReviewsRepo{
				getFn: func(ctx context.Context, id string) (review.Review, error) {
					return review.Review{ID: reviewID, User: authorID}, nil
				},
				updateFn: func(ctx context.Context, id string, fields map[string]interface{}) (review.Review, error) {
					return review.Review{ID: reviewID, User: authorID, Rating: 8}, nil
				},
			}

			h := handlers.NewReviewsHandler(repo, &fakeBootcampsRepo{})
			r := setupRouter(http.MethodPut, "/reviews/:id", h.Update, asUser(tt.caller))

			req := httptest.NewRequest(http.MethodPut, "/reviews/"+reviewID.Hex(), bytes.NewBufferString(`{"rating": 8}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestListReviewsNestedScopesToBootcamp(t *testing.T) {
	bootcampID := primitive.NewObjectID()

	repo := &fakeReviewsRepo{
		listFn: func(ctx context.Context, q query.ListQuery) ([]review.Review, int64, error) {
			for _, c := range q.Conditions {
				if c.Field == "bootcamp" && c.Value == bootcampID {
					return []review.Review{{ID: primitive.NewObjectID(), Bootcamp: bootcampID}}, 1, nil
				}
			}
			return nil, 0, errors.New("bootcamp scope missing")
		},
	}

	h := handlers.NewReviewsHandler(repo, &fakeBootcampsRepo{})
	r := setupRouter(http.MethodGet, "/bootcamps/:id/reviews", h.List)

	req := httptest.NewRequest(http.MethodGet, "/bootcamps/"+bootcampID.Hex()+"/reviews", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}
