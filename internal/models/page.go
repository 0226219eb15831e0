package models

import (
	"time"

	"github.com/bcinsights/bcinsights/internal/filter"
	"github.com/bcinsights/bcinsights/internal/render"
)

// PanelStatus describes how a panel's computation ended.
type PanelStatus string

const (
	PanelOK          PanelStatus = "ok"
	PanelEmpty       PanelStatus = "empty"
	PanelUnavailable PanelStatus = "unavailable"
	PanelError       PanelStatus = "error"
)

// Messages shown in place of a chart.
const (
	MessageEmpty       = "No data available for the selected filters."
	MessageUnavailable = "Data unavailable"
	MessageError       = "This chart could not be rendered."
)

// Panel is one chart slot on a page.
type Panel struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      PanelStatus   `json:"status"`
	Message     string        `json:"message,omitempty"`
	Chart       *render.Chart `json:"chart,omitempty"`
	// Stats carries small per-panel facts such as row counts or medians.
	Stats map[string]float64 `json:"stats,omitempty"`
}

// Page is a rendered view: ordered panels plus the selection that produced them.
type Page struct {
	View        string           `json:"view"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Panels      []Panel          `json:"panels"`
	Selection   filter.Selection `json:"selection"`
	SurvivalBy  string           `json:"survivalBy,omitempty"`
	SessionID   string           `json:"sessionId,omitempty"`
	RenderedAt  time.Time        `json:"renderedAt"`
	Cached      bool             `json:"cached,omitempty"`
}

// Panel returns the panel with id.
func (p Page) Panel(id string) (Panel, bool) {
	for _, panel := range p.Panels {
		if panel.ID == id {
			return panel, true
		}
	}
	return Panel{}, false
}

// RenderRequest is the transport-neutral input of a view render.
type RenderRequest struct {
	View       string           `json:"view"`
	Selection  filter.Selection `json:"selection"`
	SurvivalBy string           `json:"survivalBy,omitempty"`
	SessionID  string           `json:"sessionId,omitempty"`
}

// NavigateRequest moves a session to another view.
type NavigateRequest struct {
	SessionID string `json:"sessionId"`
	View      string `json:"view"`
}
