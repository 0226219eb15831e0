package session

import (
	"fmt"
	"strings"

	"github.com/bcinsights/bcinsights/internal/utils"
)

// View is a dashboard page.
type View string

const (
	ViewHome         View = "Home"
	ViewDashboard    View = "Dashboard"
	ViewDemographics View = "Demographics"
	ViewTumor        View = "Tumor"
	ViewSurvival     View = "Survival"
	ViewGenome       View = "Genome"
)

// Views lists the canonical views in navigation order.
func Views() []View {
	return []View{ViewHome, ViewDemographics, ViewTumor, ViewSurvival, ViewGenome}
}

// ParseView resolves a view name case-insensitively. Dashboard is an alias
// of Demographics and resolves to it.
func ParseView(name string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "home", "":
		return ViewHome, nil
	case "dashboard", "demographics":
		return ViewDemographics, nil
	case "tumor", "tumour":
		return ViewTumor, nil
	case "survival":
		return ViewSurvival, nil
	case "genome", "genomics":
		return ViewGenome, nil
	}
	return "", utils.NewAppError("session.parse_view", fmt.Sprintf("unknown view %q", name), utils.ErrNotFound)
}

// Title is the heading shown for the view.
func (v View) Title() string {
	switch v {
	case ViewHome:
		return "Breast Cancer Insights"
	case ViewDemographics, ViewDashboard:
		return "Patient Demographics"
	case ViewTumor:
		return "Tumor Characteristics"
	case ViewSurvival:
		return "Survival Analysis"
	case ViewGenome:
		return "Genomic Expression"
	}
	return string(v)
}
