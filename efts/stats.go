package efts

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistics summarizes one ensemble of values. Quantiles holds one value
// per requested probability, in the same order. With no valid members all
// statistics are NaN and Count is zero.
type Statistics struct {
	// Offset locates the ensemble: the lead time for forecast variables,
	// the time offset index for series variables.
	Offset    float64
	Count     int
	Mean      float64
	StdDev    float64
	Min       float64
	Max       float64
	Quantiles []float64
}

// summarize computes statistics over members, ignoring NaN values.
func summarize(offset float64, members, probs []float64) Statistics {
	valid := make([]float64, 0, len(members))
	for _, v := range members {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	s := Statistics{
		Offset:    offset,
		Count:     len(valid),
		Mean:      math.NaN(),
		StdDev:    math.NaN(),
		Min:       math.NaN(),
		Max:       math.NaN(),
		Quantiles: make([]float64, len(probs)),
	}
	if len(valid) == 0 {
		for i := range s.Quantiles {
			s.Quantiles[i] = math.NaN()
		}
		return s
	}
	sort.Float64s(valid)
	s.Mean = stat.Mean(valid, nil)
	s.StdDev = stat.StdDev(valid, nil)
	s.Min = floats.Min(valid)
	s.Max = floats.Max(valid)
	for i, p := range probs {
		s.Quantiles[i] = stat.Quantile(p, stat.Empirical, valid, nil)
	}
	return s
}

// ForecastStatistics summarizes the ensemble forecast issued at issueTime
// for one station, one Statistics per lead time. probs selects the
// quantiles to compute, e.g. 0.05, 0.5, 0.95.
func (d *Dataset) ForecastStatistics(variable string, stationID int32, issueTime time.Time, probs []float64) ([]Statistics, error) {
	if err := checkProbs(probs); err != nil {
		return nil, err
	}
	fc, err := d.EnsembleForecasts(variable, stationID, issueTime)
	if err != nil {
		return nil, err
	}
	out := make([]Statistics, len(d.LeadTimes))
	members := make([]float64, len(d.Members))
	for l, lt := range d.LeadTimes {
		for m := range d.Members {
			members[m] = fc.Get(l, m)
		}
		out[l] = summarize(lt, members, probs)
	}
	return out, nil
}

// SeriesStatistics summarizes an ensemble series for one station, one
// Statistics per time step; Offset is the index on the time axis.
func (d *Dataset) SeriesStatistics(variable string, stationID int32, probs []float64) ([]Statistics, error) {
	if err := checkProbs(probs); err != nil {
		return nil, err
	}
	es, err := d.EnsembleSeries(variable, stationID)
	if err != nil {
		return nil, err
	}
	out := make([]Statistics, len(d.IssueTimes))
	members := make([]float64, len(d.Members))
	for t := range d.IssueTimes {
		for m := range d.Members {
			members[m] = es.Get(m, t)
		}
		out[t] = summarize(float64(t), members, probs)
	}
	return out, nil
}

func checkProbs(probs []float64) error {
	for _, p := range probs {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("efts: quantile probability %v is outside [0, 1]", p)
		}
	}
	return nil
}
