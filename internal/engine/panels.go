package engine

import (
	"context"

	"github.com/bcinsights/bcinsights/internal/aggregate"
	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/render"
	"github.com/bcinsights/bcinsights/internal/session"
	"github.com/bcinsights/bcinsights/internal/survival"
	"github.com/bcinsights/bcinsights/internal/utils"
)

// Panel identifiers.
const (
	PanelPatients     = "patients"
	PanelLaterality   = "laterality"
	PanelSites        = "sites"
	PanelSurvival     = "survival"
	PanelHeatmap      = "heatmap"
	PanelStages       = "stages"
	PanelPathologicN  = "pathologic_n"
	PanelPathologicM  = "pathologic_m"
	PanelPathologicT  = "pathologic_t"
	PanelDiagnosis    = "diagnosis"
	expressionAxis    = "Expression Level"
	survivalTimeLabel = "Time (months)"
)

type panelDef struct {
	id          string
	title       string
	description string
	build       func(ctx context.Context, s *pass) (render.Chart, map[string]float64, error)
}

func layout(view session.View) []panelDef {
	switch view {
	case session.ViewDemographics, session.ViewDashboard:
		return []panelDef{
			{id: PanelPatients, title: "Number of Patients by Year and Age Group", build: buildPatients},
		}
	case session.ViewTumor:
		return []panelDef{
			{id: PanelLaterality, title: "Laterality vs Tumor Site", build: buildLaterality},
			{id: PanelSites, title: "Tumor Sites Across Age Groups", build: buildSites},
		}
	case session.ViewSurvival:
		return []panelDef{
			{
				id:          PanelSurvival,
				title:       "Kaplan-Meier Survival Curves",
				description: "Statistical method used to estimate how long people survive over time after a diagnosis or treatment. Handles censored data, which occurs when patients are lost to follow-up or the study ends before death.",
				build:       buildSurvival,
			},
		}
	case session.ViewGenome:
		return []panelDef{
			{id: PanelHeatmap, title: "Heatmap of Mean Gene Expression Levels", build: buildHeatmap},
			{id: PanelStages, title: "Distribution of Cases by AJCC Pathologic Stage", build: buildStages},
			{
				id:          PanelPathologicN,
				title:       "Average Gene Expression Across Pathologic N Stages",
				description: "AJCC Pathologic N stage indicates the extent of regional lymph node involvement. As the number after the N increases, so does the spread to nearby lymph nodes.",
				build:       buildBoxes(aggregate.ByPathologicN, "AJCC Pathologic N Stage"),
			},
			{
				id:          PanelPathologicM,
				title:       "Average Gene Expression Across Pathologic M Stages",
				description: "AJCC Pathologic M stage indicates distant metastasis. M0 means no distant spread was found; M1 means the cancer has spread to distant organs.",
				build:       buildBoxes(aggregate.ByPathologicM, "AJCC Pathologic M Stage"),
			},
			{
				id:          PanelPathologicT,
				title:       "Average Gene Expression Across Pathologic T Stages",
				description: "AJCC Pathologic T stage indicates the size and extent of the primary tumor. As the number after the T increases, so does the tumor size and spread.",
				build:       buildBoxes(aggregate.ByPathologicT, "AJCC Pathologic T Stage"),
			},
			{id: PanelDiagnosis, title: "Gene Expression Distribution Across Primary Diagnosis", build: buildDiagnosis},
		}
	}
	return nil
}

func buildPatients(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
	v, err := s.filtered(ctx, dataset.PatientsByYearAndAge, nil)
	if err != nil {
		return render.Chart{}, nil, err
	}
	if err := aggregate.CheckEmpty("demographics", v); err != nil {
		return render.Chart{}, nil, err
	}
	series := aggregate.PatientsByYearAndAge(v)
	if len(series) == 0 {
		return render.Chart{}, nil, emptyResult("demographics")
	}
	chart := render.LineChart("", "Year of Diagnosis", "Number of Patients", series)
	return chart, map[string]float64{"rows": float64(v.Len())}, nil
}

func buildLaterality(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
	v, err := s.filtered(ctx, dataset.LateralityBySite, nil)
	if err != nil {
		return render.Chart{}, nil, err
	}
	flow := aggregate.LateralityFlow(v)
	if len(flow.Links) == 0 {
		return render.Chart{}, nil, emptyResult("laterality")
	}
	return render.SankeyChart("", flow), map[string]float64{"links": float64(len(flow.Links))}, nil
}

func buildSites(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
	// the wide table is melted before filtering so tumor_site is filterable
	v, err := s.filtered(ctx, dataset.AgeBySiteRadar, func(t *dataset.Table) (*dataset.Table, error) {
		return t.Melt(dataset.ColAgeGroup, dataset.ColTumorSite, dataset.ColCount)
	})
	if err != nil {
		return render.Chart{}, nil, err
	}
	series := aggregate.SitesByAgeGroup(v)
	if len(series) == 0 {
		return render.Chart{}, nil, emptyResult("sites")
	}
	return render.PolarChart("", series), nil, nil
}

func buildSurvival(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
	v, err := s.filtered(ctx, dataset.SurvivalCohort, nil)
	if err != nil {
		return render.Chart{}, nil, err
	}
	v = v.DropNulls()
	column, _ := survival.SelectorColumn(s.req.SurvivalBy)

	var curves []survival.Curve
	if column == "" {
		curve, err := s.p.estimator.Fit("All patients", survival.Observations(v))
		if err != nil {
			return render.Chart{}, nil, err
		}
		curves = []survival.Curve{curve}
	} else {
		if curves, err = s.p.estimator.FitByCategory(v, column); err != nil {
			return render.Chart{}, nil, err
		}
	}

	stats := map[string]float64{"patients": float64(v.Len()), "curves": float64(len(curves))}
	if len(curves) == 1 && curves[0].Median != nil {
		stats["medianMonths"] = *curves[0].Median
	}
	return render.SurvivalChart("", survivalTimeLabel, curves), stats, nil
}

func buildHeatmap(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
	v, err := s.filtered(ctx, dataset.GenomeCluster, nil)
	if err != nil {
		return render.Chart{}, nil, err
	}
	h := aggregate.ExpressionHeatmap(v)
	if h.Empty() {
		return render.Chart{}, nil, emptyResult("heatmap")
	}
	return render.HeatmapChart("", h), map[string]float64{"clusters": float64(len(h.Clusters)), "genes": float64(len(h.Genes))}, nil
}

func buildStages(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
	cases, err := s.cases(ctx)
	if err != nil {
		return render.Chart{}, nil, err
	}
	counts := aggregate.StageCounts(cases)
	if len(counts) == 0 {
		return render.Chart{}, nil, emptyResult("stages")
	}
	return render.BarChart("", "AJCC Pathologic Stage", "Number of Cases", render.StageBars(counts)), nil, nil
}

func buildBoxes(field func(aggregate.CaseExpression) string, xLabel string) func(context.Context, *pass) (render.Chart, map[string]float64, error) {
	return func(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
		cases, err := s.cases(ctx)
		if err != nil {
			return render.Chart{}, nil, err
		}
		boxes := aggregate.Distribution(cases, field)
		if len(boxes) == 0 {
			return render.Chart{}, nil, emptyResult(xLabel)
		}
		return render.BoxChart("", xLabel, expressionAxis, boxes), map[string]float64{"cases": float64(len(cases))}, nil
	}
}

func buildDiagnosis(ctx context.Context, s *pass) (render.Chart, map[string]float64, error) {
	cases, err := s.cases(ctx)
	if err != nil {
		return render.Chart{}, nil, err
	}
	boxes := aggregate.Distribution(cases, aggregate.ByDiagnosis)
	if len(boxes) == 0 {
		return render.Chart{}, nil, emptyResult("diagnosis")
	}
	return render.ViolinChart("", "Primary Diagnosis", expressionAxis, boxes, aggregate.WrapDiagnosis), nil, nil
}

// cases aggregates the filtered genome table per case once per render.
func (s *pass) cases(ctx context.Context) ([]aggregate.CaseExpression, error) {
	if s.caseMeans != nil {
		return s.caseMeans, nil
	}
	v, err := s.filtered(ctx, dataset.GenomeCluster, nil)
	if err != nil {
		return nil, err
	}
	if err := aggregate.CheckEmpty("genome", v); err != nil {
		return nil, err
	}
	s.caseMeans = aggregate.CaseMeans(v)
	return s.caseMeans, nil
}

func emptyResult(op string) error {
	return utils.NewAppError(op, "nothing to plot", utils.ErrEmptyResult)
}
