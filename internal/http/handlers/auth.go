package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rgoncalves/marketdash/internal/config"
	"github.com/rgoncalves/marketdash/internal/domain/user"
	"github.com/rgoncalves/marketdash/internal/observability"
	"github.com/rgoncalves/marketdash/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (user.User, error)
}

type TokenIssuer interface {
	GenerateToken(userID int64, username, role string) (string, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        TokenIssuer
	metrics    *observability.Prom
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwt TokenIssuer, metrics *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwt,
		metrics:    metrics,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// default role for new users

	if req.Role == "" {
		req.Role = "user"
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	var u user.User

	err = h.observe("users.create", func() error {
		var createErr error
		u, createErr = h.userWriter.Create(cctx, req.Username, req.Email, hash, req.Role)
		return createErr
	})

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username is already in use.")
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	var foundUser user.User

	err := h.observe("users.get_by_email", func() error {
		var lookupErr error
		foundUser, lookupErr = h.users.GetByEmail(cctx, req.Email)
		return lookupErr
	})

	// One message for "no such user" and "wrong password" so a caller
	// cannot probe which emails exist.
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, err := h.jwt.GenerateToken(foundUser.ID, foundUser.Username, foundUser.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}

func (h *AuthHandler) observe(op string, fn func() error) error {
	if h.metrics == nil {
		return fn()
	}

	return h.metrics.ObserveDB(op, fn)
}
