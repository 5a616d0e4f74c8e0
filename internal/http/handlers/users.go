package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rgoncalves/marketdash/internal/config"
	"github.com/rgoncalves/marketdash/internal/domain/user"
	"github.com/rgoncalves/marketdash/internal/http/middlewares"
	"github.com/rgoncalves/marketdash/internal/observability"
)

type UsersStore interface {
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id int64, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type UsersHandler struct {
	repo    UsersStore
	metrics *observability.Prom
}

func NewUsersHandler(repo UsersStore, metrics *observability.Prom) *UsersHandler {
	return &UsersHandler{repo: repo, metrics: metrics}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	var users []user.User

	err := h.observe("users.list", func() error {
		var listErr error
		users, listErr = h.repo.List(cctx)
		return listErr
	})

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, users)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := pathID(ctx)

	if !ok {
		return
	}

	// self-service only: the token identity must match the target row

	callerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	if callerID != id {
		RespondForbidden(ctx, "Permission denied")
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	var updated user.User

	err := h.observe("users.update", func() error {
		var updateErr error
		updated, updateErr = h.repo.Update(cctx, id, req)
		return updateErr
	})

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := pathID(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err := h.observe("users.delete", func() error {
		return h.repo.Delete(cctx, id)
	})

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":         "User deleted successfully",
		"deleted_user_id": id,
	})
}

func pathID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "user id must be a positive integer", nil)
		return 0, false
	}

	return id, true
}

func (h *UsersHandler) observe(op string, fn func() error) error {
	if h.metrics == nil {
		return fn()
	}

	return h.metrics.ObserveDB(op, fn)
}
