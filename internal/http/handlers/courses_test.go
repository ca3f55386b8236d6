package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"github.com/openlearnhq/campdir/internal/domain/course"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/http/handlers"
	"github.com/openlearnhq/campdir/internal/query"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

func TestCreateCourseHandler(t *testing.T) {
	ownerID := primitive.NewObjectID()
	bootcampID := primitive.NewObjectID()

	body := `{
		"title": "Full Stack Web Development",
		"description": "Frontend and backend in twelve weeks",
		"weeks": 12,
		"tuition": 10000
	}`

	tests := []struct {
		name           string
		caller         user.User
		body           string
		bootcampSetup  func(*fakeBootcampsRepo)
		wantStatusCode int
	}{
		{
			name:           "bootcamp_owner_can_add",
			caller:         user.User{ID: ownerID, Role: user.RolePublisher},
			body:           body,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "admin_can_add",
			caller:         user.User{ID: primitive.NewObjectID(), Role: user.RoleAdmin},
			body:           body,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "other_publisher_forbidden",
			caller:         user.User{ID: primitive.NewObjectID(), Role: user.RolePublisher},
			body:           body,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "free_course_accepted",
			caller:         user.User{ID: ownerID, Role: user.RolePublisher},
			body:           `{"title": "Free Intro", "description": "A free taster course", "tuition": 0}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "missing_tuition",
			caller:         user.User{ID: ownerID, Role: user.RolePublisher},
			body:           `{"title": "Short", "description": "x"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "negative_tuition",
			caller:         user.User{ID: ownerID, Role: user.RolePublisher},
			body:           `{"title": "Short", "description": "x", "tuition": -1}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:   "parent_bootcamp_missing",
			caller: user.User{ID: ownerID, Role: user.RolePublisher},
			body:   body,
			bootcampSetup: func(f *fakeBootcampsRepo) {
				f.getFn = func(ctx context.Context, id string) (bootcamp.Bootcamp, error) {
					return bootcamp.Bootcamp{}, mongodb.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			bootcamps := &fakeBootcampsRepo{
				getFn: func(ctx context.Context, id string) (bootcamp.Bootcamp, error) {
					return bootcamp.Bootcamp{ID: bootcampID, User: ownerID}, nil
				},
			}

			if tt.bootcampSetup != nil {
				tt.bootcampSetup(bootcamps)
			}

			repo := &fakeCoursesRepo{
				createFn: func(ctx context.Context, c course.Course) (course.Course, error) {
					c.ID = primitive.NewObjectID()
					return c, nil
				},
			}

			h := handlers.NewCoursesHandler(repo, bootcamps)
			r := setupRouter(http.MethodPost, "/bootcamps/:id/courses", h.Create, asUser(tt.caller))

			req := httptest.NewRequest(http.MethodPost, "/bootcamps/"+bootcampID.Hex()+"/courses", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestListCoursesPopulatesBootcampInfo(t *testing.T) {
	bootcampID := primitive.NewObjectID()

	repo := &fakeCoursesRepo{
		listFn: func(ctx context.Context, q query.ListQuery) ([]course.Course, int64, error) {
			return []course.Course{{ID: primitive.NewObjectID(), Title: "UI/UX", Bootcamp: bootcampID}}, 1, nil
		},
	}

	bootcamps := &fakeBootcampsRepo{
		summariesFn: func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bootcamp.Summary, error) {
			return map[primitive.ObjectID]bootcamp.Summary{
				bootcampID: {ID: bootcampID, Name: "ModernTech", Description: "Dev and design"},
			}, nil
		},
	}

	h := handlers.NewCoursesHandler(repo, bootcamps)
	r := setupRouter(http.MethodGet, "/courses", h.List)

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data []struct {
			BootcampInfo *struct {
				Name string `json:"name"`
			} `json:"bootcampInfo"`
		} `json:"data"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if len(resp.Data) != 1 || resp.Data[0].BootcampInfo == nil || resp.Data[0].BootcampInfo.Name != "ModernTech" {
		t.Fatalf("expected populated bootcampInfo, got %s", w.Body.String())
	}
}
