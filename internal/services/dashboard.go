package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bcinsights/bcinsights/internal/cache"
	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/engine"
	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/metrics"
	"github.com/bcinsights/bcinsights/internal/models"
	"github.com/bcinsights/bcinsights/internal/render"
	"github.com/bcinsights/bcinsights/internal/session"
	"github.com/bcinsights/bcinsights/internal/survival"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// Options tunes the dashboard service.
type Options struct {
	ViewTTL   time.Duration
	PNGWidth  int
	PNGHeight int
}

// DashboardService is the transport-neutral facade shared by the HTTP and gRPC servers.
type DashboardService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	tables    engine.Tables
	sessions  *session.Store
	cache     cache.Provider
	opts      Options
	latencies *utils.LatencyTracker
}

// NewDashboardService wires the pipeline, dataset source, session store and page cache.
func NewDashboardService(logger *slog.Logger, pipeline *engine.Pipeline, tables engine.Tables, sessions *session.Store, provider cache.Provider, opts Options) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if sessions == nil {
		sessions = session.NewStore(0)
	}
	return &DashboardService{
		logger:    logger.With("component", "dashboard_service"),
		pipeline:  pipeline,
		tables:    tables,
		sessions:  sessions,
		cache:     provider,
		opts:      opts,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// RenderView renders one view. When a session is given it is moved to the
// view and remembers the applied selection. An empty view renders the
// session's current page, or Home without a session.
func (s *DashboardService) RenderView(ctx context.Context, req models.RenderRequest) (models.Page, error) {
	if s.pipeline == nil {
		return models.Page{}, errors.New("pipeline not configured")
	}

	var sess *session.Session
	if req.SessionID != "" {
		current, err := s.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return models.Page{}, err
		}
		sess = &current
	}

	name := req.View
	if name == "" && sess != nil {
		name = string(sess.Page)
	}
	view, err := session.ParseView(name)
	if err != nil {
		return models.Page{}, err
	}

	prepared, err := s.pipeline.Prepare(engine.Request{Selection: req.Selection, SurvivalBy: req.SurvivalBy})
	if err != nil {
		return models.Page{}, err
	}

	start := time.Now()
	page, err := s.page(ctx, view, prepared)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveRender(string(view), duration, metrics.OutcomeError)
		s.logger.Error("view render failed", slog.String("view", string(view)), slog.Any("error", err))
		return models.Page{}, err
	}
	metrics.ObserveRender(string(view), duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("render latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	if sess != nil {
		if err := s.remember(ctx, sess.ID, view, prepared.Selection); err != nil {
			return models.Page{}, err
		}
		page.SessionID = sess.ID
	}
	return page, nil
}

func (s *DashboardService) page(ctx context.Context, view session.View, req engine.Request) (models.Page, error) {
	key, err := PageKey(view, req)
	if err != nil {
		return models.Page{}, err
	}

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var page models.Page
		if err := json.Unmarshal(raw, &page); err == nil {
			metrics.ObserveViewCache(true)
			page.Cached = true
			return page, nil
		}
		s.logger.Warn("discarding undecodable cached page", slog.String("key", key))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("page cache lookup failed", slog.Any("error", err))
	}
	metrics.ObserveViewCache(false)

	page, err := s.pipeline.Render(ctx, view, req)
	if err != nil {
		return models.Page{}, err
	}
	if cacheable(page) {
		if raw, err := json.Marshal(page); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.opts.ViewTTL); err != nil {
				s.logger.Warn("page cache store failed", slog.Any("error", err))
			}
		}
	}
	return page, nil
}

// remember moves the session to view and, off the landing page, records the selection.
func (s *DashboardService) remember(ctx context.Context, id string, view session.View, sel filter.Selection) error {
	if _, err := s.sessions.Navigate(ctx, id, view); err != nil {
		return err
	}
	if view == session.ViewHome {
		return nil
	}
	_, err := s.sessions.Select(ctx, id, sel)
	return err
}

// RenderPanelPNG rasterises one panel of view into w.
func (s *DashboardService) RenderPanelPNG(ctx context.Context, req models.RenderRequest, panelID string, w io.Writer) error {
	if s.pipeline == nil {
		return errors.New("pipeline not configured")
	}
	view, err := session.ParseView(req.View)
	if err != nil {
		return err
	}
	panel, err := s.pipeline.Panel(ctx, view, panelID, engine.Request{Selection: req.Selection, SurvivalBy: req.SurvivalBy})
	if err != nil {
		return err
	}

	const op = "services.render_png"
	switch panel.Status {
	case models.PanelOK:
	case models.PanelEmpty:
		return utils.NewAppError(op, panel.Message, utils.ErrEmptyResult)
	case models.PanelUnavailable:
		return utils.NewAppError(op, panel.Message, utils.ErrDataUnavailable)
	default:
		return utils.NewAppError(op, panel.Message, fmt.Errorf("panel %s failed", panelID))
	}

	var buf bytes.Buffer
	if err := render.PNG(*panel.Chart, s.opts.PNGWidth, s.opts.PNGHeight, &buf); err != nil {
		if errors.Is(err, render.ErrUnsupportedPNG) {
			return utils.InvalidArgument(op, "panel %s cannot be rendered as PNG", panelID)
		}
		return utils.NewAppError(op, "rasterise chart", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// CreateSession starts a session on the landing page.
func (s *DashboardService) CreateSession(ctx context.Context) (session.Session, error) {
	sess, err := s.sessions.Create(ctx)
	if err == nil {
		s.logger.Debug("session created", slog.String("session_id", sess.ID))
	}
	return sess, err
}

// GetSession returns a session by id.
func (s *DashboardService) GetSession(ctx context.Context, id string) (session.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Navigate moves a session to another view without rendering it.
func (s *DashboardService) Navigate(ctx context.Context, req models.NavigateRequest) (session.Session, error) {
	if req.SessionID == "" {
		return session.Session{}, utils.InvalidArgument("services.navigate", "session id is required")
	}
	view, err := session.ParseView(req.View)
	if err != nil {
		return session.Session{}, err
	}
	return s.sessions.Navigate(ctx, req.SessionID, view)
}

// Options lists the distinct values of column in a dataset, for filter controls.
func (s *DashboardService) Options(ctx context.Context, name, column string) ([]string, error) {
	if s.tables == nil {
		return nil, errors.New("dataset source not configured")
	}
	table, err := s.tables.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if !table.Schema().Has(column) {
		return nil, utils.NewAppError("services.options", fmt.Sprintf("dataset %q has no column %q", name, column), utils.ErrNotFound)
	}
	return filter.Options(table.All(), column), nil
}

// SurvivalGroupings lists the choices accepted as survivalBy.
func (s *DashboardService) SurvivalGroupings() []string {
	return survival.Selectors()
}

// Datasets lists the dataset names accepted by Options.
func (s *DashboardService) Datasets() []string {
	return dataset.Names()
}

// LatencyP95 returns the current p95 render latency.
func (s *DashboardService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

// PageKey derives the cache key of a prepared render request.
func PageKey(view session.View, req engine.Request) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode page key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return "page:" + string(view) + ":" + hex.EncodeToString(sum[:]), nil
}

// cacheable reports whether every panel settled on data the next render would reproduce.
func cacheable(page models.Page) bool {
	for _, p := range page.Panels {
		if p.Status == models.PanelUnavailable || p.Status == models.PanelError {
			return false
		}
	}
	return true
}
