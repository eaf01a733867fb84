package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/de-tools/market-atlas/pkg/adapters"
	"github.com/de-tools/market-atlas/pkg/artifacts"
	"github.com/de-tools/market-atlas/pkg/models/api"
	"github.com/de-tools/market-atlas/pkg/models/store"
	runstore "github.com/de-tools/market-atlas/pkg/store/duckdb/runs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

type Ledger interface {
	List(ctx context.Context, limit int) ([]*store.Run, error)
	Get(ctx context.Context, id string) (*store.Run, error)
}

type Handler struct {
	ledger Ledger
}

func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	records, err := h.ledger.List(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list runs")
		writeError(w, r, http.StatusInternalServerError, "failed to list runs")
		return
	}

	response := make([]api.Run, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapDomainRunToAPI(adapters.MapStoreRunToDomain(rec)))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapDomainRunToAPI(adapters.MapStoreRunToDomain(rec)))
}

// GetArtifact streams a file the run recorded. Only filenames present in the ledger are served.
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(r.Context())
	filename := chi.URLParam(r, "filename")

	run := adapters.MapStoreRunToDomain(rec)
	loc, found := run.Artifact(filename)
	if !found {
		writeError(w, r, http.StatusNotFound, "artifact not found")
		return
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		logger.Warn().Err(err).Str("path", loc.Path).Msg("recorded artifact is not readable")
		writeError(w, r, http.StatusNotFound, "artifact file is missing")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read artifact")
		return
	}
	w.Header().Set("Content-Type", artifacts.ContentType(loc.Filename))
	w.Header().Set("Content-Disposition", `attachment; filename="`+loc.Filename+`"`)
	http.ServeContent(w, r, loc.Filename, info.ModTime(), f)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rec, err := h.ledger.Get(ctx, id)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("run_id", id).Msg("failed to get run")
		writeError(w, r, http.StatusInternalServerError, "failed to get run")
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, api.Error{Message: message})
}
