package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/bcinsights/bcinsights/internal/aggregate"
	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/metrics"
	"github.com/bcinsights/bcinsights/internal/models"
	"github.com/bcinsights/bcinsights/internal/session"
	"github.com/bcinsights/bcinsights/internal/survival"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// ErrUnknownPanel is returned when a view has no panel with the requested id.
var ErrUnknownPanel = fmt.Errorf("panel %w", utils.ErrNotFound)

// Tables is the dataset source used by the pipeline.
type Tables interface {
	Load(ctx context.Context, name string) (*dataset.Table, error)
}

// Request carries everything a view render depends on.
type Request struct {
	Selection  filter.Selection
	SurvivalBy string
}

// Pipeline runs load → filter → aggregate → chart for every panel of a view.
type Pipeline struct {
	logger    *slog.Logger
	tables    Tables
	filters   *filter.Engine
	estimator *survival.Estimator
	now       func() time.Time
}

// NewPipeline constructs a view pipeline.
func NewPipeline(logger *slog.Logger, tables Tables, filters *filter.Engine, estimator *survival.Estimator) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if filters == nil {
		filters = filter.NewEngine(filter.DefaultPolicy())
	}
	if estimator == nil {
		estimator, _ = survival.NewEstimator(survival.DefaultOptions())
	}
	return &Pipeline{
		logger:    logger.With("component", "view_pipeline"),
		tables:    tables,
		filters:   filters,
		estimator: estimator,
		now:       time.Now,
	}
}

// Render computes every panel of view. A panel that fails never fails the
// page; only an invalid request or a cancelled context does.
func (p *Pipeline) Render(ctx context.Context, view session.View, req Request) (models.Page, error) {
	if p.tables == nil {
		return models.Page{}, fmt.Errorf("dataset source not configured")
	}
	req, err := p.Prepare(req)
	if err != nil {
		return models.Page{}, err
	}

	page := models.Page{
		View:        string(view),
		Title:       view.Title(),
		Description: viewDescription(view),
		Selection:   req.Selection,
		Panels:      []models.Panel{},
		RenderedAt:  p.now().UTC(),
	}
	if view == session.ViewSurvival {
		page.SurvivalBy = req.SurvivalBy
	}

	pass := newPass(p, req)
	for _, def := range layout(view) {
		if err := ctx.Err(); err != nil {
			return models.Page{}, err
		}
		page.Panels = append(page.Panels, p.runPanel(ctx, pass, def))
	}
	return page, nil
}

// Panel computes a single panel of view.
func (p *Pipeline) Panel(ctx context.Context, view session.View, panelID string, req Request) (models.Panel, error) {
	if p.tables == nil {
		return models.Panel{}, fmt.Errorf("dataset source not configured")
	}
	req, err := p.Prepare(req)
	if err != nil {
		return models.Panel{}, err
	}
	for _, def := range layout(view) {
		if def.id == panelID {
			panel := p.runPanel(ctx, newPass(p, req), def)
			if err := ctx.Err(); err != nil {
				return models.Panel{}, err
			}
			return panel, nil
		}
	}
	return models.Panel{}, utils.NewAppError("engine.panel", fmt.Sprintf("view %s has no panel %q", view, panelID), ErrUnknownPanel)
}

// PanelIDs lists the panels of view in page order.
func PanelIDs(view session.View) []string {
	defs := layout(view)
	ids := make([]string, len(defs))
	for i, s := range defs {
		ids[i] = s.id
	}
	return ids
}

// Prepare normalizes the selection against the filter policy and resolves the
// survival grouping. Render and Panel call it themselves.
func (p *Pipeline) Prepare(req Request) (Request, error) {
	req.Selection = req.Selection.Normalize(p.filters.Policy())
	if req.SurvivalBy == "" {
		req.SurvivalBy = survival.OverallSelector
	}
	if _, ok := survival.SelectorColumn(req.SurvivalBy); !ok {
		return Request{}, utils.InvalidArgument("engine.render", "unknown survival grouping %q", req.SurvivalBy)
	}
	return req, nil
}

func (p *Pipeline) runPanel(ctx context.Context, pass *pass, def panelDef) (panel models.Panel) {
	panel = models.Panel{ID: def.id, Title: def.title, Description: def.description}
	logger := p.logger.With("panel", def.id)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panel builder panicked", "panic", r, "stack", string(debug.Stack()))
			panel.Status = models.PanelError
			panel.Message = models.MessageError
			panel.Chart = nil
			panel.Stats = nil
		}
		metrics.ObservePanel(def.id, string(panel.Status))
	}()

	chart, stats, err := def.build(ctx, pass)
	switch {
	case err == nil:
		panel.Status = models.PanelOK
		panel.Chart = &chart
		panel.Stats = stats
	case errors.Is(err, utils.ErrEmptyResult), errors.Is(err, survival.ErrNoObservations):
		panel.Status = models.PanelEmpty
		panel.Message = models.MessageEmpty
	case errors.Is(err, utils.ErrDataUnavailable):
		logger.Warn("panel data unavailable", "error", err)
		panel.Status = models.PanelUnavailable
		panel.Message = fmt.Sprintf("%s: %v", models.MessageUnavailable, err)
	default:
		logger.Error("panel failed", "error", err)
		panel.Status = models.PanelError
		panel.Message = models.MessageError
	}
	return panel
}

// pass memoizes filtered tables for the duration of one render.
type pass struct {
	p         *Pipeline
	req       Request
	views     map[string]dataset.View
	caseMeans []aggregate.CaseExpression
}

func newPass(p *Pipeline, req Request) *pass {
	return &pass{p: p, req: req, views: make(map[string]dataset.View)}
}

// filtered loads name, optionally reshapes it, and applies the selection.
func (s *pass) filtered(ctx context.Context, name string, reshape func(*dataset.Table) (*dataset.Table, error)) (dataset.View, error) {
	if v, ok := s.views[name]; ok {
		return v, nil
	}
	table, err := s.p.tables.Load(ctx, name)
	if err != nil {
		return dataset.View{}, err
	}
	if reshape != nil {
		if table, err = reshape(table); err != nil {
			return dataset.View{}, err
		}
	}
	v := s.p.filters.Apply(table.All(), s.req.Selection)
	s.views[name] = v
	return v, nil
}

func viewDescription(view session.View) string {
	switch view {
	case session.ViewHome:
		return "The Breast Cancer Insights Dashboard brings together gene and clinical data with interactive features to help you create insights about breast cancer pathology. Dive into the data and uncover meaningful insights to make informed decisions."
	case session.ViewSurvival:
		return "Kaplan-Meier curves estimate how long patients survive after diagnosis. Censored records, where follow-up ended before death, stay in the risk set until they drop out."
	}
	return ""
}
