package survival

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcinsights/bcinsights/internal/dataset"
	"github.com/bcinsights/bcinsights/internal/filter"
)

func estimator(t *testing.T, method CIMethod) *Estimator {
	t.Helper()
	e, err := NewEstimator(Options{Alpha: 0.05, Method: method})
	require.NoError(t, err)
	return e
}

func textbookCohort() []Observation {
	return []Observation{
		{Duration: 5, Event: true},
		{Duration: 1, Event: true},
		{Duration: 3, Event: true},
		{Duration: 2, Event: false},
		{Duration: 3, Event: true},
		{Duration: 4, Event: false},
	}
}

func TestFitProductLimit(t *testing.T) {
	curve, err := estimator(t, CILogLog).Fit("all", textbookCohort())
	require.NoError(t, err)

	require.Len(t, curve.Points, 6)
	assert.Equal(t, 6, curve.N)
	assert.Equal(t, 4, curve.Events)

	want := []struct {
		time     float64
		survival float64
		atRisk   int
	}{
		{0, 1, 6},
		{1, 5.0 / 6, 6},
		{2, 5.0 / 6, 5},
		{3, 5.0 / 12, 4},
		{4, 5.0 / 12, 2},
		{5, 0, 1},
	}
	for i, w := range want {
		p := curve.Points[i]
		assert.Equal(t, w.time, p.Time)
		assert.InDelta(t, w.survival, p.Survival, 1e-12, "t=%v", w.time)
		assert.Equal(t, w.atRisk, p.AtRisk, "t=%v", w.time)
	}
	assert.Equal(t, 2, curve.Points[3].Events)
	assert.Equal(t, 1, curve.Points[2].Censored)

	require.NotNil(t, curve.Median)
	assert.Equal(t, 3.0, *curve.Median)
	assert.InDelta(t, 5.0/12, curve.At(3.5), 1e-12)
	assert.Equal(t, 1.0, curve.At(0.5))
}

func TestFitLogLogBandMatchesGreenwood(t *testing.T) {
	curve, err := estimator(t, CILogLog).Fit("all", textbookCohort())
	require.NoError(t, err)

	p := curve.Points[1]
	s := 5.0 / 6
	se := math.Sqrt(1.0/30) / math.Abs(math.Log(s))
	z := 1.959963984540054
	assert.InDelta(t, math.Exp(-math.Exp(math.Log(-math.Log(s))+z*se)), p.Lower, 1e-9)
	assert.InDelta(t, math.Exp(-math.Exp(math.Log(-math.Log(s))-z*se)), p.Upper, 1e-9)

	last := curve.Points[len(curve.Points)-1]
	assert.Equal(t, 0.0, last.Lower)
	assert.Equal(t, 0.0, last.Upper)
}

func TestFitLinearBandIsSymmetric(t *testing.T) {
	obs := make([]Observation, 20)
	for i := range obs {
		obs[i] = Observation{Duration: 1, Event: i < 10}
	}
	curve, err := estimator(t, CILinear).Fit("all", obs)
	require.NoError(t, err)

	p := curve.Points[1]
	require.InDelta(t, 0.5, p.Survival, 1e-12)
	assert.Greater(t, p.Lower, 0.0)
	assert.Less(t, p.Upper, 1.0)
	assert.InDelta(t, p.Survival-p.Lower, p.Upper-p.Survival, 1e-12)
	assert.Equal(t, CILogLog, DefaultOptions().Method)
}

func TestFitInvariants(t *testing.T) {
	cohorts := [][]Observation{
		textbookCohort(),
		{{Duration: 0, Event: true}, {Duration: 0, Event: false}, {Duration: 7, Event: true}},
		{{Duration: 10, Event: false}, {Duration: 12, Event: false}},
		{{Duration: 1, Event: true}, {Duration: 1, Event: true}},
	}
	for _, method := range []CIMethod{CILogLog, CILinear} {
		e := estimator(t, method)
		for _, obs := range cohorts {
			curve, err := e.Fit("c", obs)
			require.NoError(t, err)

			require.NotEmpty(t, curve.Points)
			origin := curve.Points[0]
			assert.Equal(t, 0.0, origin.Time)
			assert.Equal(t, len(obs), origin.AtRisk)
			if origin.Events == 0 {
				assert.Equal(t, Point{Time: 0, Survival: 1, Lower: 1, Upper: 1, AtRisk: len(obs), Censored: origin.Censored}, origin)
			}
			assert.Equal(t, origin.Survival, curve.At(0))

			prev := origin
			for _, p := range curve.Points[1:] {
				assert.LessOrEqual(t, p.Survival, prev.Survival, "non-increasing")
				assert.Greater(t, p.Time, prev.Time, "one point per time")
				assert.GreaterOrEqual(t, p.Survival, 0.0)
				assert.LessOrEqual(t, p.Survival, 1.0)
				assert.LessOrEqual(t, p.Lower, p.Survival+1e-12)
				assert.GreaterOrEqual(t, p.Upper, p.Survival-1e-12)
				assert.GreaterOrEqual(t, p.Lower, 0.0)
				assert.LessOrEqual(t, p.Upper, 1.0)
				prev = p
			}
		}
	}
}

func TestFitDeathsAtTimeZeroShareTheOriginPoint(t *testing.T) {
	curve, err := estimator(t, CILogLog).Fit("c", []Observation{
		{Duration: 0, Event: true},
		{Duration: 5, Event: false},
		{Duration: 7, Event: true},
	})
	require.NoError(t, err)

	require.Len(t, curve.Points, 3)
	origin := curve.Points[0]
	assert.Equal(t, 0.0, origin.Time)
	assert.InDelta(t, 2.0/3, origin.Survival, 1e-12)
	assert.Equal(t, 3, origin.AtRisk)
	assert.Equal(t, 1, origin.Events)
	assert.InDelta(t, 2.0/3, curve.At(0), 1e-12)
	assert.InDelta(t, 2.0/3, curve.At(6), 1e-12)
	assert.Equal(t, 0.0, curve.At(7))
	assert.Equal(t, []float64{0, 5, 7}, []float64{curve.Points[0].Time, curve.Points[1].Time, curve.Points[2].Time})
}

func TestFitAllCensoredNeverDrops(t *testing.T) {
	curve, err := estimator(t, CILogLog).Fit("c", []Observation{{Duration: 10}, {Duration: 12}})
	require.NoError(t, err)
	for _, p := range curve.Points {
		assert.Equal(t, 1.0, p.Survival)
	}
	assert.Nil(t, curve.Median)
}

func TestFitEmptyCohortIsNoData(t *testing.T) {
	_, err := estimator(t, CILogLog).Fit("empty", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoObservations))

	_, err = estimator(t, CILogLog).Fit("invalid", []Observation{{Duration: math.NaN()}, {Duration: -1}})
	assert.True(t, errors.Is(err, ErrNoObservations))
}

func TestNewEstimatorValidates(t *testing.T) {
	_, err := NewEstimator(Options{Alpha: 0})
	require.Error(t, err)
	_, err = NewEstimator(Options{Alpha: 0.05, Method: "probit"})
	require.Error(t, err)

	e, err := NewEstimator(Options{Alpha: 0.1})
	require.NoError(t, err)
	assert.Equal(t, CILogLog, e.Options().Method)
}

const cohortCSV = "survival_months,vital_status,race,er_status,year_of_diagnosis\n" +
	"10,Dead,White,Positive,2010\n" +
	"20,Alive,White,Positive,2011\n" +
	"5,Dead,Black,Negative,2012\n" +
	"8,Alive,Unknown,Unknown,2012\n" +
	"12,Dead,unknown,0,2013\n" +
	"30,Alive,Asian,Positive,2014\n"

func cohort(t *testing.T) dataset.View {
	t.Helper()
	tbl, err := dataset.ReadCSV(dataset.SurvivalCohort, strings.NewReader(cohortCSV))
	require.NoError(t, err)
	return tbl.All()
}

func TestObservations(t *testing.T) {
	obs := Observations(cohort(t))
	require.Len(t, obs, 6)
	assert.Equal(t, Observation{Duration: 10, Event: true}, obs[0])
	assert.Equal(t, Observation{Duration: 20, Event: false}, obs[1])
}

func TestFitByCategoryExcludesPlaceholders(t *testing.T) {
	e := estimator(t, CILogLog)

	curves, err := e.FitByCategory(cohort(t), dataset.ColRace)
	require.NoError(t, err)
	labels := make([]string, len(curves))
	for i, c := range curves {
		labels[i] = c.Label
	}
	assert.Equal(t, []string{"Asian", "Black", "White"}, labels)
	assert.Equal(t, 2, curves[2].N)

	curves, err = e.FitByCategory(cohort(t), dataset.ColERStatus)
	require.NoError(t, err)
	require.Len(t, curves, 2)
	assert.Equal(t, "Negative", curves[0].Label)
	assert.Equal(t, "Positive", curves[1].Label)
}

func TestFitByCategoryEmptyCohort(t *testing.T) {
	empty := filter.NewEngine(filter.DefaultPolicy()).Apply(cohort(t), filter.Selection{YearMin: 2020, YearMax: 2021})
	require.Equal(t, 0, empty.Len())

	_, err := estimator(t, CILogLog).FitByCategory(empty, dataset.ColRace)
	assert.True(t, errors.Is(err, ErrNoObservations))

	_, err = estimator(t, CILogLog).Fit("all", Observations(empty))
	assert.True(t, errors.Is(err, ErrNoObservations))
}

func TestSelectors(t *testing.T) {
	assert.Len(t, Selectors(), 9)
	assert.Equal(t, OverallSelector, Selectors()[0])

	column, ok := SelectorColumn("Tumor Size")
	require.True(t, ok)
	assert.Equal(t, dataset.ColTumorSize, column)

	column, ok = SelectorColumn(OverallSelector)
	require.True(t, ok)
	assert.Empty(t, column)

	_, ok = SelectorColumn("Favourite colour")
	assert.False(t, ok)
}
