package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/query"
	"github.com/openlearnhq/campdir/internal/security"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

type UsersStore interface {
	List(ctx context.Context, q query.ListQuery) ([]user.User, int64, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// UsersHandler is the admin-only account management surface. Everyone
// else goes through /auth.
type UsersHandler struct {
	repo UsersStore
}

func NewUsersHandler(repo UsersStore) *UsersHandler {
	return &UsersHandler{repo: repo}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	q := query.Parse(ctx.Request.URL.Query())

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, q)

	if err != nil {
		RespondStoreError(ctx, err, "users")
		return
	}

	RespondList(ctx, items, len(items), q.Paginate(total))
}

func (h *UsersHandler) GetByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "user")
		return
	}

	RespondOK(ctx, u)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	role := req.Role

	if role == "" {
		role = user.RoleUser
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	})

	if err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) {
			RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use.", nil)
			return
		}

		RespondStoreError(ctx, err, "user")
		return
	}

	RespondCreated(ctx, created)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	fields := map[string]interface{}{}

	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Role != nil {
		fields["role"] = *req.Role
	}

	if len(fields) == 0 {
		RespondBadRequest(ctx, "No fields to update", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, ctx.Param("id"), fields)

	if err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) {
			RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use.", nil)
			return
		}

		RespondStoreError(ctx, err, "user")
		return
	}

	RespondOK(ctx, updated)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, ctx.Param("id"))

	if err != nil {
		RespondStoreError(ctx, err, "user")
		return
	}

	RespondOK(ctx, gin.H{})
}
