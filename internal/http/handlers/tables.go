package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rgoncalves/marketdash/internal/config"
	"github.com/rgoncalves/marketdash/internal/observability"
	"github.com/rgoncalves/marketdash/internal/repo/postgres"
)

type TableFetcher interface {
	FetchTable(ctx context.Context, name string) ([]postgres.Row, error)
}

type TablesHandler struct {
	repo    TableFetcher
	metrics *observability.Prom
}

func NewTablesHandler(repo TableFetcher, metrics *observability.Prom) *TablesHandler {
	return &TablesHandler{repo: repo, metrics: metrics}
}

// FetchTable serves GET /api/fetch_table?tableName=<name>. The repo only
// answers for allowlisted dashboard tables.
func (h *TablesHandler) FetchTable(ctx *gin.Context) {
	name := ctx.Query("tableName")

	if name == "" {
		RespondBadRequest(ctx, "tableName query parameter is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	var rows []postgres.Row

	err := h.observe("tables.fetch", func() error {
		var fetchErr error
		rows, fetchErr = h.repo.FetchTable(cctx, name)
		return fetchErr
	})

	if err != nil {
		if errors.Is(err, postgres.ErrUnknownTable) {
			RespondNotFound(ctx, "Unknown table")
			return
		}
		RespondInternal(ctx, "Could not fetch table")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"rows": rows})
}

func (h *TablesHandler) observe(op string, fn func() error) error {
	if h.metrics == nil {
		return fn()
	}

	return h.metrics.ObserveDB(op, fn)
}
