package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openlearnhq/campdir/internal/auth"
	"github.com/openlearnhq/campdir/internal/config"
	"github.com/openlearnhq/campdir/internal/domain/user"
	"github.com/openlearnhq/campdir/internal/http/middlewares"
	"github.com/openlearnhq/campdir/internal/security"
	"github.com/openlearnhq/campdir/internal/store/mongodb"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        *auth.Manager
	cfg        config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager *auth.Manager, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwtManager,
		cfg:        cfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	role := req.Role

	if role == "" {
		role = user.RoleUser
	}

	u, err := h.userWriter.Create(cctx, user.User{
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

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.sendTokenResponse(ctx, u, http.StatusCreated)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	h.sendTokenResponse(ctx, foundUser, http.StatusOK)
}

// Logout clears the token cookie. Tokens themselves stay valid until
// expiry; there is no server-side revocation list.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearTokenCookie(ctx)
	RespondOK(ctx, gin.H{})
}

// Me returns the caller's own record, resolved by the auth middleware.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	RespondOK(ctx, u)
}

// The credential travels both ways: as a body field for API clients and
// as an http-only cookie for browsers.
func (h *AuthHandler) sendTokenResponse(ctx *gin.Context, u user.User, status int) {
	token, err := h.jwt.GenerateToken(u.ID.Hex(), u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.setTokenCookie(ctx, token)

	ctx.JSON(status, gin.H{
		"success": true,
		"token":   token,
	})
}

func (h *AuthHandler) tokenCookieName() string {
	return "token"
}

func (h *AuthHandler) setTokenCookie(ctx *gin.Context, token string) {
	secure := h.cfg.Env == "prod"

	maxAge := h.cfg.CookieExpireDays * 24 * 60 * 60

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.tokenCookieName(),
		token,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearTokenCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.tokenCookieName(),
		"",
		-1,
		"/",
		"",
		secure,
		true,
	)
}
