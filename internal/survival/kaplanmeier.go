package survival

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoObservations is returned when a cohort is empty. Callers treat it as
// "no data" rather than a computation failure.
var ErrNoObservations = errors.New("no observations")

// CIMethod selects the confidence band transform.
type CIMethod string

const (
	// CILogLog is the exponential Greenwood interval on log(-log S).
	CILogLog CIMethod = "loglog"
	// CILinear is the plain S ± z·SE interval clipped to [0, 1].
	CILinear CIMethod = "linear"
)

// Observation is one subject: follow-up duration and whether the event
// (death) was observed. Event false means right-censored.
type Observation struct {
	Duration float64
	Event    bool
}

// Point is the survival estimate just after Time.
type Point struct {
	Time     float64 `json:"time"`
	Survival float64 `json:"survival"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	AtRisk   int     `json:"atRisk"`
	Events   int     `json:"events"`
	Censored int     `json:"censored"`
}

// Curve is a right-continuous step function with exactly one point per
// distinct time, starting at time zero. The origin survival is 1 unless deaths
// were recorded at duration zero, in which case it already reflects them.
type Curve struct {
	Label  string   `json:"label"`
	N      int      `json:"n"`
	Events int      `json:"events"`
	Points []Point  `json:"points"`
	Median *float64 `json:"median,omitempty"`
}

// Options tunes the estimator.
type Options struct {
	Alpha  float64
	Method CIMethod
}

// DefaultOptions is a 95% log-log band. The log-log band is asymmetric
// around the estimate; CILinear gives the symmetric S ± z·SE band.
func DefaultOptions() Options {
	return Options{Alpha: 0.05, Method: CILogLog}
}

// Estimator fits Kaplan-Meier curves.
type Estimator struct {
	opts Options
	z    float64
}

// NewEstimator validates opts and precomputes the normal quantile.
func NewEstimator(opts Options) (*Estimator, error) {
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		return nil, fmt.Errorf("survival: alpha must be in (0, 1), got %v", opts.Alpha)
	}
	switch opts.Method {
	case "":
		opts.Method = CILogLog
	case CILogLog, CILinear:
	default:
		return nil, fmt.Errorf("survival: unknown confidence interval method %q", opts.Method)
	}
	return &Estimator{opts: opts, z: distuv.UnitNormal.Quantile(1 - opts.Alpha/2)}, nil
}

// Options returns the estimator settings.
func (e *Estimator) Options() Options { return e.opts }

// Fit computes the product-limit estimate over obs. There is a point at time
// zero and at every other distinct observed duration. Negative or NaN durations are
// ignored.
func (e *Estimator) Fit(label string, obs []Observation) (Curve, error) {
	valid := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if math.IsNaN(o.Duration) || o.Duration < 0 {
			continue
		}
		valid = append(valid, o)
	}
	if len(valid) == 0 {
		return Curve{}, fmt.Errorf("fit %q: %w", label, ErrNoObservations)
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Duration < valid[j].Duration })

	curve := Curve{
		Label:  label,
		N:      len(valid),
		Points: []Point{{Time: 0, Survival: 1, Lower: 1, Upper: 1, AtRisk: len(valid)}},
	}

	atRisk := len(valid)
	s := 1.0
	greenwood := 0.0
	for i := 0; i < len(valid); {
		t := valid[i].Duration
		deaths, censored := 0, 0
		for ; i < len(valid) && valid[i].Duration == t; i++ {
			if valid[i].Event {
				deaths++
			} else {
				censored++
			}
		}

		if deaths > 0 {
			s *= 1 - float64(deaths)/float64(atRisk)
			if deaths < atRisk {
				greenwood += float64(deaths) / (float64(atRisk) * float64(atRisk-deaths))
			} else {
				greenwood = math.Inf(1)
			}
		}
		lower, upper := e.band(s, greenwood)
		point := Point{
			Time:     t,
			Survival: s,
			Lower:    lower,
			Upper:    upper,
			AtRisk:   atRisk,
			Events:   deaths,
			Censored: censored,
		}
		// time zero folds into the origin point
		if t == 0 {
			curve.Points[0] = point
		} else {
			curve.Points = append(curve.Points, point)
		}
		curve.Events += deaths
		atRisk -= deaths + censored
	}

	if m, ok := curve.MedianSurvival(); ok {
		curve.Median = &m
	}
	return curve, nil
}

func (e *Estimator) band(s, greenwood float64) (float64, float64) {
	switch {
	case s >= 1:
		return 1, 1
	case s <= 0:
		return 0, 0
	}

	if e.opts.Method == CILinear {
		se := s * math.Sqrt(greenwood)
		return clip(s - e.z*se), clip(s + e.z*se)
	}

	logS := math.Log(s)
	a := math.Log(-logS)
	se := math.Sqrt(greenwood) / math.Abs(logS)
	lower := math.Exp(-math.Exp(a + e.z*se))
	upper := math.Exp(-math.Exp(a - e.z*se))
	return clip(lower), clip(upper)
}

func clip(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// MedianSurvival returns the first time at which survival drops to 0.5 or
// below, and false when the curve never gets there.
func (c Curve) MedianSurvival() (float64, bool) {
	for _, p := range c.Points {
		if p.Survival <= 0.5 {
			return p.Time, true
		}
	}
	return 0, false
}

// At evaluates the step function at t.
func (c Curve) At(t float64) float64 {
	s := 1.0
	for _, p := range c.Points {
		if p.Time > t {
			break
		}
		s = p.Survival
	}
	return s
}
