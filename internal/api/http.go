package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/models"
	"github.com/bcinsights/bcinsights/internal/session"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// Dashboard is the service surface served over HTTP and gRPC.
type Dashboard interface {
	RenderView(ctx context.Context, req models.RenderRequest) (models.Page, error)
	RenderPanelPNG(ctx context.Context, req models.RenderRequest, panelID string, w io.Writer) error
	CreateSession(ctx context.Context) (session.Session, error)
	GetSession(ctx context.Context, id string) (session.Session, error)
	Navigate(ctx context.Context, req models.NavigateRequest) (session.Session, error)
	Options(ctx context.Context, dataset, column string) ([]string, error)
	SurvivalGroupings() []string
	Datasets() []string
}

// RESTHandler exposes the dashboard as JSON over HTTP.
type RESTHandler struct {
	svc    Dashboard
	logger *slog.Logger
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewRESTHandler constructs the HTTP handler.
func NewRESTHandler(svc Dashboard, logger *slog.Logger) *RESTHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTHandler{svc: svc, logger: logger.With("component", "http")}
}

// NewRouter returns a chi router with middleware and every dashboard route.
func NewRouter(h *RESTHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the dashboard API on r.
func (h *RESTHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/navigate", h.Navigate)

		r.Get("/views", h.ListViews)
		r.Get("/views/{view}", h.RenderView)
		r.Get("/views/{view}/panels/{panel}.png", h.RenderPanelPNG)

		r.Get("/datasets", h.ListDatasets)
		r.Get("/options/{dataset}/{column}", h.Options)
		r.Get("/survival/groupings", h.SurvivalGroupings)
	})
}

// Health reports liveness.
func (h *RESTHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSession starts a navigation session.
func (h *RESTHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.CreateSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// GetSession returns a session.
func (h *RESTHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Navigate moves a session. The view comes from the JSON body or the view query parameter.
func (h *RESTHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	req := models.NavigateRequest{View: r.URL.Query().Get("view")}
	if r.ContentLength != 0 && req.View == "" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, utils.InvalidArgument("api.navigate", "decode body: %v", err))
			return
		}
	}
	req.SessionID = chi.URLParam(r, "id")
	sess, err := h.svc.Navigate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ListViews lists the navigable views in order.
func (h *RESTHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	type viewInfo struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	views := session.Views()
	out := make([]viewInfo, len(views))
	for i, v := range views {
		out[i] = viewInfo{Name: string(v), Title: v.Title()}
	}
	writeJSON(w, http.StatusOK, out)
}

// RenderView renders a view for the selection in the query string.
func (h *RESTHandler) RenderView(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRenderQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req.View = chi.URLParam(r, "view")
	page, err := h.svc.RenderView(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// RenderPanelPNG streams one panel as a PNG image.
func (h *RESTHandler) RenderPanelPNG(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRenderQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req.View = chi.URLParam(r, "view")

	var buf bytes.Buffer
	if err := h.svc.RenderPanelPNG(r.Context(), req, chi.URLParam(r, "panel"), &buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ListDatasets lists the dataset names accepted by Options.
func (h *RESTHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Datasets())
}

// Options lists filter choices for a dataset column.
func (h *RESTHandler) Options(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.Options(r.Context(), chi.URLParam(r, "dataset"), chi.URLParam(r, "column"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeJSON(w, http.StatusOK, values)
}

// SurvivalGroupings lists the survival curve groupings.
func (h *RESTHandler) SurvivalGroupings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SurvivalGroupings())
}

// ParseRenderQuery reads a selection from query parameters. List parameters
// may repeat or hold comma-separated values.
func ParseRenderQuery(q url.Values) (models.RenderRequest, error) {
	const op = "api.parse_query"
	req := models.RenderRequest{
		SurvivalBy: q.Get("survival_by"),
		SessionID:  q.Get("session"),
	}
	sel := filter.Selection{
		AgeGroups:    list(q, "age_group"),
		TumorSites:   q["tumor_site"],
		Stages:       list(q, "stage"),
		Genes:        list(q, "gene"),
		CancerStages: list(q, "cancer_stage"),
		PathologicN:  list(q, "path_n"),
		PathologicM:  list(q, "path_m"),
		PathologicT:  list(q, "path_t"),
		Diagnoses:    q["diagnosis"],
	}

	var err error
	if sel.YearMin, err = intParam(q, "year_min"); err != nil {
		return models.RenderRequest{}, utils.InvalidArgument(op, "%v", err)
	}
	if sel.YearMax, err = intParam(q, "year_max"); err != nil {
		return models.RenderRequest{}, utils.InvalidArgument(op, "%v", err)
	}
	if sel.ExpressionMin, err = floatParam(q, "expr_min"); err != nil {
		return models.RenderRequest{}, utils.InvalidArgument(op, "%v", err)
	}
	if sel.ExpressionMax, err = floatParam(q, "expr_max"); err != nil {
		return models.RenderRequest{}, utils.InvalidArgument(op, "%v", err)
	}
	req.Selection = sel.OrderYears()
	return req, nil
}

// list splits comma-separated values. Tumor sites and diagnoses contain
// commas themselves ("Breast, NOS") so they are only read as repeated parameters.
func list(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return v, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(key + " must be a number")
	}
	return &v, nil
}

// StatusCode maps a service error onto an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	switch utils.KindOf(err) {
	case utils.KindInvalidArgument:
		return http.StatusBadRequest
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindEmptyResult:
		return http.StatusUnprocessableEntity
	case utils.KindDataUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *RESTHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.String("request_id", middleware.GetReqID(r.Context())), slog.Any("error", err))
		msg = "internal error"
	}
	writeJSON(w, code, ErrorResponse{Error: msg, Kind: string(utils.KindOf(err))})
}

func (h *RESTHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
