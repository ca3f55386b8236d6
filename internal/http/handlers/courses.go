package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/domain/bootcamp"
	"github.com/openlearnhq/campdir/internal/domain/course"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
	"github.com/openlearnhq/campdir/internal/query"
)

type CoursesStore interface {
	List(ctx context.Context, q query.ListQuery) ([]course.Course, int64, error)
	GetByID(ctx context.Context, id string) (course.Course, error)
	Create(ctx context.Context, c course.Course) (course.Course, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (course.Course, error)
	Delete(ctx context.Context, id string) error
}

type BootcampReader interface {
	GetByID(ctx context.Context, id string) (bootcamp.Bootcamp, error)
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bootcamp.Summary, error)
}

type CoursesHandler struct {
	repo      CoursesStore
	bootcamps BootcampReader
}

func NewCoursesHandler(repo CoursesStore, bootcamps BootcampReader) *CoursesHandler {
	return &CoursesHandler{repo: repo, bootcamps: bootcamps}
}

// List serves both /courses and /bootcamps/:id/courses. The nested
// form pins the bootcamp filter before any user-supplied conditions.
func (h *CoursesHandler) List(ctx *gin.Context) {
	q := query.Parse(ctx.Request.URL.Query())

	if raw := ctx.Param("id"); raw != "" {
		bid, err := primitive.ObjectIDFromHex(raw)

		if err != nil {
			RespondError(ctx, 400, "invalid_id", "bootcamp id is not a valid object id", nil)
			return
		}

		q = q.With("bootcamp", bid)
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, q)

	if err != nil {
		RespondStoreError(ctx, err, "courses")
		return
	}

	if err := h.populateBootcamps(cctx, items); err != nil {
		RespondStoreError(ctx, err, "courses")
		return
	}

	RespondList(ctx, items, len(items), q.Paginate(total))
}

func (h *CoursesHandler) GetByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	c, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "course")
		return
	}

	items := []course.Course{c}

	if err := h.populateBootcamps(cctx, items); err != nil {
		RespondStoreError(ctx, err, "course")
		return
	}

	RespondOKCached(ctx, items[0])
}

// Create adds a course to a bootcamp. Only the bootcamp's owner or an
// admin may do so.
func (h *CoursesHandler) Create(ctx *gin.Context) {
	var req course.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	caller, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	parent, err := h.bootcamps.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "bootcamp")
		return
	}

	if !callerMayModify(ctx, parent.User) {
		RespondForbidden(ctx, "Not authorized to add a course to this bootcamp")
		return
	}

	created, err := h.repo.Create(cctx, course.Course{
		Title:       req.Title,
		Description: req.Description,
		Weeks:       req.Weeks,
		Tuition:     *req.Tuition,
		Bootcamp:    parent.ID,
		User:        caller.ID,
	})

	if err != nil {
		RespondStoreError(ctx, err, "course")
		return
	}

	RespondCreated(ctx, created)
}

func (h *CoursesHandler) Update(ctx *gin.Context) {
	var req course.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "course")
		return
	}

	if !callerMayModify(ctx, existing.User) {
		RespondForbidden(ctx, "Not authorized to update this course")
		return
	}

	fields := map[string]interface{}{}

	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Weeks != nil {
		fields["weeks"] = *req.Weeks
	}
	if req.Tuition != nil {
		fields["tuition"] = *req.Tuition
	}

	if len(fields) == 0 {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	updated, err := h.repo.Update(cctx, ctx.Param("id"), fields)

	if err != nil {
		RespondStoreError(ctx, err, "course")
		return
	}

	RespondOK(ctx, updated)
}

func (h *CoursesHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "course")
		return
	}

	if !callerMayModify(ctx, existing.User) {
		RespondForbidden(ctx, "Not authorized to delete this course")
		return
	}

	err = h.repo.Delete(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "course")
		return
	}

	RespondOK(ctx, gin.H{})
}

func (h *CoursesHandler) populateBootcamps(ctx context.Context, items []course.Course) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	seen := make(map[primitive.ObjectID]bool, len(items))

	for _, c := range items {
		if !seen[c.Bootcamp] {
			seen[c.Bootcamp] = true
			ids = append(ids, c.Bootcamp)
		}
	}

	summaries, err := h.bootcamps.Summaries(ctx, ids)

	if err != nil {
		return err
	}

	for i := range items {
		if s, ok := summaries[items[i].Bootcamp]; ok {
			sc := s
			items[i].BootcampInfo = &sc
		}
	}

	return nil
}
