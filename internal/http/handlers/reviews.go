package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/domain/review"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
	"github.com/openlearnhq/campdir/internal/query"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

type ReviewsStore interface {
	List(ctx context.Context, q query.ListQuery) ([]review.Review, int64, error)
	GetByID(ctx context.Context, id string) (review.Review, error)
	Create(ctx context.Context, r review.Review) (review.Review, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (review.Review, error)
	Delete(ctx context.Context, id string) error
	AverageRating(ctx context.Context, bootcampID primitive.ObjectID) (*float64, error)
}

// BootcampRatings is what the reviews handler needs from the bootcamp
// side: lookups for populate plus the denormalized rating write-back.
type BootcampRatings interface {
	BootcampReader
	SetAverageRating(ctx context.Context, id primitive.ObjectID, avg *float64) error
}

type ReviewsHandler struct {
	repo      ReviewsStore
	bootcamps BootcampRatings
}

func NewReviewsHandler(repo ReviewsStore, bootcamps BootcampRatings) *ReviewsHandler {
	return &ReviewsHandler{repo: repo, bootcamps: bootcamps}
}

func (h *ReviewsHandler) List(ctx *gin.Context) {
	q := query.Parse(ctx.Request.URL.Query())

	if raw := ctx.Param("id"); raw != "" {
		bid, err := primitive.ObjectIDFromHex(raw)

		if err != nil {
			RespondError(ctx, http.StatusBadRequest, "invalid_id", "bootcamp id is not a valid object id", nil)
			return
		}

		q = q.With("bootcamp", bid)
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, q)

	if err != nil {
		RespondStoreError(ctx, err, "reviews")
		return
	}

	if err := h.populateBootcamps(cctx, items); err != nil {
		RespondStoreError(ctx, err, "reviews")
		return
	}

	RespondList(ctx, items, len(items), q.Paginate(total))
}

func (h *ReviewsHandler) GetByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	r, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "review")
		return
	}

	items := []review.Review{r}

	if err := h.populateBootcamps(cctx, items); err != nil {
		RespondStoreError(ctx, err, "review")
		return
	}

	RespondOKCached(ctx, items[0])
}

// Create adds a review to a bootcamp. The unique (bootcamp, user)
// index keeps each caller to one review per bootcamp.
func (h *ReviewsHandler) Create(ctx *gin.Context) {
	var req review.CreateRequest

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

	created, err := h.repo.Create(cctx, review.Review{
		Title:    req.Title,
		Text:     req.Text,
		Rating:   req.Rating,
		Bootcamp: parent.ID,
		User:     caller.ID,
	})

	if err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) {
			RespondError(ctx, http.StatusBadRequest, "already_reviewed", "You have already reviewed this bootcamp.", nil)
			return
		}

		RespondStoreError(ctx, err, "review")
		return
	}

	h.recomputeRating(ctx, parent.ID)

	RespondCreated(ctx, created)
}

func (h *ReviewsHandler) Update(ctx *gin.Context) {
	var req review.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "review")
		return
	}

	if !callerMayModify(ctx, existing.User) {
		RespondForbidden(ctx, "Not authorized to update this review")
		return
	}

	fields := map[string]interface{}{}

	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Text != nil {
		fields["text"] = *req.Text
	}
	if req.Rating != nil {
		fields["rating"] = *req.Rating
	}

	if len(fields) == 0 {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	updated, err := h.repo.Update(cctx, ctx.Param("id"), fields)

	if err != nil {
		RespondStoreError(ctx, err, "review")
		return
	}

	h.recomputeRating(ctx, updated.Bootcamp)

	RespondOK(ctx, updated)
}

func (h *ReviewsHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "review")
		return
	}

	if !callerMayModify(ctx, existing.User) {
		RespondForbidden(ctx, "Not authorized to delete this review")
		return
	}

	err = h.repo.Delete(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "review")
		return
	}

	h.recomputeRating(ctx, existing.Bootcamp)

	RespondOK(ctx, gin.H{})
}

// recomputeRating refreshes the denormalized average on the bootcamp
// after any review write. Failures are logged, not surfaced: the
// review write itself already succeeded.
func (h *ReviewsHandler) recomputeRating(ctx *gin.Context, bootcampID primitive.ObjectID) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	avg, err := h.repo.AverageRating(cctx, bootcampID)

	if err == nil {
		err = h.bootcamps.SetAverageRating(cctx, bootcampID, avg)
	}

	if err != nil {
		slog.Default().WarnContext(ctx.Request.Context(), "average rating recompute failed",
			"bootcamp_id", bootcampID.Hex(),
			"error", err,
		)
	}
}

func (h *ReviewsHandler) populateBootcamps(ctx context.Context, items []review.Review) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	seen := make(map[primitive.ObjectID]bool, len(items))

	for _, r := range items {
		if !seen[r.Bootcamp] {
			seen[r.Bootcamp] = true
			ids = append(ids, r.Bootcamp)
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
