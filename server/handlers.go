package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/crowdinsight/crowdinsight"
	"github.com/crowdinsight/crowdinsight/engine"
	"github.com/crowdinsight/crowdinsight/internal/metrics"
	"github.com/crowdinsight/crowdinsight/session"
)

// sessionHeader carries the caller's session ID in both directions.
const sessionHeader = "X-Session-ID"

// Handler serves the campaign API endpoints.
type Handler struct {
	explorer *crowdinsight.Explorer
	sessions *session.Manager
	metrics  *metrics.Metrics
	logger   kitlog.Logger
}

// NewHandler creates a new API handler
func NewHandler(explorer *crowdinsight.Explorer, sessions *session.Manager, m *metrics.Metrics, logger kitlog.Logger) *Handler {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Handler{
		explorer: explorer,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
	}
}

// browseResponse is one served page plus the session it belongs to.
type browseResponse struct {
	SessionID string             `json:"session_id"`
	Sort      engine.SortOrder   `json:"sort_order"`
	Filters   engine.FilterState `json:"filters"`
	Result    *engine.PageResult `json:"result"`
}

// BrowseCampaigns serves a filtered, sorted, paginated campaign page from
// URL query parameters.
func (h *Handler) BrowseCampaigns(w http.ResponseWriter, r *http.Request) {
	req, err := h.browseRequestFromQuery(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serveBrowse(w, r, req)
}

// BrowseCampaignsJSON serves a campaign page from a JSON request body.
func (h *Handler) BrowseCampaignsJSON(w http.ResponseWriter, r *http.Request) {
	var req crowdinsight.BrowseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.serveBrowse(w, r, req)
}

func (h *Handler) serveBrowse(w http.ResponseWriter, r *http.Request, req crowdinsight.BrowseRequest) {
	sess := h.sessions.Get(r.Header.Get(sessionHeader))

	result, err := h.explorer.Browse(req)
	if err != nil {
		level.Error(h.logger).Log("msg", "browse failed", "err", err)
		respondWithError(w, http.StatusInternalServerError, "failed to query campaigns")
		return
	}

	sess.Apply(session.State{Page: result.Page, Filters: req.Filters, Sort: req.Sort})

	h.metrics.BrowseRequests.WithLabelValues(string(req.Sort)).Inc()
	h.metrics.RowsScanned.Add(float64(h.explorer.NumRows()))
	h.metrics.RowsMatched.Add(float64(result.TotalRows))
	h.metrics.ActiveSessions.Set(float64(h.sessions.Len()))

	w.Header().Set(sessionHeader, sess.ID())
	respondWithJSON(w, http.StatusOK, browseResponse{
		SessionID: sess.ID(),
		Sort:      req.Sort,
		Filters:   req.Filters.Normalize(),
		Result:    result,
	})
}

// GetInsights serves the comparative analytics payload.
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	req := engine.InsightsRequest{
		Categories: splitParam(r.URL.Query().Get("categories")),
		Date:       engine.DateRange(r.URL.Query().Get("date")),
	}

	result, err := h.explorer.Insights(req)
	if err != nil {
		level.Error(h.logger).Log("msg", "insights failed", "err", err)
		respondWithError(w, http.StatusInternalServerError, "failed to compute insights")
		return
	}

	h.metrics.InsightsRequests.Inc()
	h.metrics.RowsScanned.Add(float64(h.explorer.NumRows()))

	respondWithJSON(w, http.StatusOK, result)
}

// GetFacets serves the filterable surface of the dataset.
func (h *Handler) GetFacets(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.explorer.Facets())
}

// GetSession returns the last applied state of the caller's session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Get(r.Header.Get(sessionHeader))
	h.metrics.ActiveSessions.Set(float64(h.sessions.Len()))

	w.Header().Set(sessionHeader, sess.ID())
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID(),
		"state":      sess.Snapshot(),
	})
}

// browseRequestFromQuery maps URL query parameters onto a browse request.
func (h *Handler) browseRequestFromQuery(r *http.Request) (crowdinsight.BrowseRequest, error) {
	q := r.URL.Query()

	req := crowdinsight.BrowseRequest{
		Page: 1,
		Sort: engine.SortOrder(q.Get("sort")),
		Filters: engine.FilterState{
			Search:        q.Get("search"),
			Categories:    splitParam(q.Get("categories")),
			Subcategories: splitParam(q.Get("subcategories")),
			Countries:     splitParam(q.Get("countries")),
			States:        splitParam(q.Get("states")),
			Date:          engine.DateRange(q.Get("date")),
		},
	}

	if pageStr := q.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return req, errInvalidParam("page", pageStr)
		}
		req.Page = page
	}

	ranges, present, err := rangesFromQuery(q, h.explorer.Metadata().Bounds.Pledged,
		h.explorer.Metadata().Bounds.Goal, h.explorer.Metadata().Bounds.Raised)
	if err != nil {
		return req, err
	}
	if present {
		req.Filters.Ranges = &ranges
	}

	return req, nil
}

// rangesFromQuery reads the six optional range parameters. A half left
// unset falls back to the dataset's absolute bound for that side.
func rangesFromQuery(q map[string][]string, pledged, goal, raised engine.Range) (engine.Ranges, bool, error) {
	ranges := engine.Ranges{Pledged: pledged, Goal: goal, Raised: raised}
	present := false

	set := func(key string, dst *float64) error {
		vals, ok := q[key]
		if !ok || len(vals) == 0 || vals[0] == "" {
			return nil
		}
		v, err := strconv.ParseFloat(vals[0], 64)
		if err != nil {
			return errInvalidParam(key, vals[0])
		}
		*dst = v
		present = true
		return nil
	}

	fields := []struct {
		key string
		dst *float64
	}{
		{"pledged_min", &ranges.Pledged.Min}, {"pledged_max", &ranges.Pledged.Max},
		{"goal_min", &ranges.Goal.Min}, {"goal_max", &ranges.Goal.Max},
		{"raised_min", &ranges.Raised.Min}, {"raised_max", &ranges.Raised.Max},
	}
	for _, f := range fields {
		if err := set(f.key, f.dst); err != nil {
			return ranges, false, err
		}
	}

	return ranges, present, nil
}

// splitParam splits a comma-separated multi-value parameter.
func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type paramError struct {
	name  string
	value string
}

func (e paramError) Error() string {
	return "invalid value for " + e.name + ": " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return paramError{name: name, value: value}
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string) {
	jsonResponse, _ := json.Marshal(map[string]string{"error": message})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
