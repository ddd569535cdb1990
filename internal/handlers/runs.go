package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/riftluck/stats-api/internal/cache"
	"github.com/riftluck/stats-api/internal/logic"
	"github.com/riftluck/stats-api/internal/models"
	"github.com/riftluck/stats-api/internal/store"
)

// RunRequest is the body of POST /api/v1/runs. Either Records or MatchIDs
// must be set; MatchIDs loads the input from the record store.
type RunRequest struct {
	Records   []models.PlayerGameRecord   `json:"records" validate:"omitempty,dive"`
	Snapshots []models.TimelineSnapshot10 `json:"snapshots" validate:"omitempty,dive"`
	MatchIDs  []string                    `json:"match_ids" validate:"omitempty,dive,required"`
	Persist   bool                        `json:"persist"`
}

// RunSummary is the response of POST /api/v1/runs.
type RunSummary struct {
	RunID           string         `json:"run_id"`
	CreatedAt       time.Time      `json:"created_at"`
	Records         int            `json:"records"`
	ImpactRows      int            `json:"impact_rows"`
	ProbabilityRows int            `json:"probability_rows"`
	ScoredRows      int            `json:"scored_rows"`
	Exported        int            `json:"exported"`
	Issues          []models.Issue `json:"issues"`
	Error           string         `json:"error,omitempty"`
}

func summarize(run *models.RunResult) RunSummary {
	return RunSummary{
		RunID:           run.RunID,
		CreatedAt:       run.CreatedAt,
		Records:         run.Records,
		ImpactRows:      len(run.Impact),
		ProbabilityRows: len(run.Probabilities),
		ScoredRows:      len(run.Scored),
		Issues:          run.Issues,
	}
}

// CreateRun handles POST /api/v1/runs
// @Summary Run the scoring pipeline
// @Description Scores posted records (or stored matches) and caches the result
// @Tags Runs
// @Accept json
// @Produce json
// @Param body body RunRequest true "Pipeline input"
// @Success 201 {object} RunSummary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} RunSummary "Not enough wins and losses per fold"
// @Failure 500 {object} map[string]string
// @Router /runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	var in models.PipelineInput
	switch {
	case len(req.Records) > 0:
		in = models.PipelineInput{Records: req.Records, Snapshots: req.Snapshots}
		if req.Persist && h.records != nil {
			n, err := h.records.Save(ctx, in)
			if err != nil {
				h.logger.Errorw("Failed to persist records", "error", err)
				h.errorResponse(w, http.StatusInternalServerError, "Failed to persist records")
				return
			}
			h.logger.Infow("Persisted records", "rows", n)
		}
	case len(req.MatchIDs) > 0:
		if h.records == nil {
			h.errorResponse(w, http.StatusBadRequest, "match_ids require a configured record store")
			return
		}
		var err error
		in, err = h.records.Load(ctx, store.Filter{MatchIDs: req.MatchIDs})
		if err != nil {
			h.logger.Errorw("Failed to load records", "error", err, "matches", len(req.MatchIDs))
			h.errorResponse(w, http.StatusInternalServerError, "Failed to load records")
			return
		}
		if len(in.Records) == 0 {
			h.errorResponse(w, http.StatusNotFound, "No stored records for the requested matches")
			return
		}
	default:
		h.errorResponse(w, http.StatusBadRequest, "Either records or match_ids is required")
		return
	}

	run, err := h.scoring.Run(ctx, in)
	if err != nil {
		if errors.Is(err, logic.ErrInsufficientData) && run != nil {
			h.saveRun(r, run)
			summary := summarize(run)
			summary.Error = err.Error()
			h.jsonResponse(w, http.StatusUnprocessableEntity, summary)
			return
		}
		h.logger.Errorw("Pipeline run failed", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Pipeline run failed")
		return
	}

	h.saveRun(r, run)
	summary := summarize(run)
	if h.export != nil {
		summary.Exported = h.export.EnqueueRun(run)
	}
	h.jsonResponse(w, http.StatusCreated, summary)
}

func (h *Handler) saveRun(r *http.Request, run *models.RunResult) {
	if err := h.runs.SaveRun(r.Context(), run); err != nil {
		h.logger.Errorw("Failed to cache run", "run_id", run.RunID, "error", err)
	}
}

// loadRun resolves {runID}, where "latest" selects the newest run.
func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*models.RunResult, bool) {
	runID := chi.URLParam(r, "runID")

	var run *models.RunResult
	var err error
	if runID == "latest" {
		run, err = h.runs.LatestRun(r.Context())
	} else {
		run, err = h.runs.Run(r.Context(), runID)
	}
	if errors.Is(err, cache.ErrNotFound) {
		h.errorResponse(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	if err != nil {
		h.logger.Errorw("Failed to load run", "run_id", runID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load run")
		return nil, false
	}
	return run, true
}

// GetRun handles GET /api/v1/runs/{runID}
// @Summary Get a pipeline run
// @Tags Runs
// @Produce json
// @Param runID path string true "Run ID or latest"
// @Success 200 {object} models.RunResult
// @Failure 404 {object} map[string]string
// @Router /runs/{runID} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.jsonResponse(w, http.StatusOK, run)
}

// GetScored handles GET /api/v1/runs/{runID}/scored
// @Summary Filtered scored game table
// @Tags Runs
// @Produce json
// @Param runID path string true "Run ID or latest"
// @Param role query string false "Role"
// @Param bucket query string false "Outcome bucket"
// @Param result query string false "win or loss"
// @Param player query string false "Player ID"
// @Success 200 {array} models.ScoredGameRow
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /runs/{runID}/scored [get]
func (h *Handler) GetScored(w http.ResponseWriter, r *http.Request) {
	f, err := parseScoredFilter(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.jsonResponse(w, http.StatusOK, logic.FilterScored(run.Scored, f))
}

func parseScoredFilter(r *http.Request) (logic.ScoredFilter, error) {
	q := r.URL.Query()
	f := logic.ScoredFilter{PlayerID: q.Get("player")}

	if v := q.Get("role"); v != "" {
		role, err := models.ParseRole(v)
		if err != nil {
			return f, err
		}
		f.Role = role
	}
	if v := q.Get("bucket"); v != "" {
		b, err := models.ParseBucket(v)
		if err != nil {
			return f, err
		}
		f.Bucket = b
	}
	switch strings.ToLower(q.Get("result")) {
	case "":
	case "win", "won":
		win := true
		f.Win = &win
	case "loss", "lost":
		win := false
		f.Win = &win
	default:
		return f, errors.New("result must be win or loss")
	}
	return f, nil
}

// GetReport handles GET /api/v1/runs/{runID}/report
// @Summary Outcome report for one player
// @Tags Runs
// @Produce json
// @Param runID path string true "Run ID or latest"
// @Param player query string false "Player ID, defaults to the focus player"
// @Param top query int false "Games per highlighted list"
// @Success 200 {object} models.Report
// @Failure 404 {object} map[string]string
// @Router /runs/{runID}/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if player == "" {
		player = h.focusPlayer
	}
	topN := h.reportTopN
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.errorResponse(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		topN = n
	}

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.jsonResponse(w, http.StatusOK, logic.BuildReport(run.Scored, player, topN))
}

// GetPlayerLuck handles GET /api/v1/players/{playerID}/luck
// @Summary Luck summary of one player from the latest run
// @Tags Players
// @Produce json
// @Param playerID path string true "Player ID"
// @Success 200 {object} models.LuckSummary
// @Failure 404 {object} map[string]string
// @Router /players/{playerID}/luck [get]
func (h *Handler) GetPlayerLuck(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	luck, err := h.runs.PlayerLuck(r.Context(), playerID)
	if errors.Is(err, cache.ErrNotFound) {
		h.errorResponse(w, http.StatusNotFound, "Player not found in latest run")
		return
	}
	if err != nil {
		h.logger.Errorw("Failed to load player luck", "player_id", playerID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load player luck")
		return
	}
	h.jsonResponse(w, http.StatusOK, luck)
}
