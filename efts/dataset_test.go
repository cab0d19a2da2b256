package efts

import (
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
)

func testTimes(n int) []time.Time {
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = time.Date(2010, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 24 * time.Hour)
	}
	return ts
}

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	d, err := NewDataset(testTimes(3), []int32{123, 456},
		WithLeadTimes([]float64{1, 2, 3, 4}, "hours"),
		WithEnsembleSize(2),
		WithStationNames([]string{"upstream", "downstream"}),
		WithCoordinates([]float64{-35.1, -35.4}, []float64{149.0, 149.2}),
	)
	require.NoError(t, err)
	return d
}

func TestNewDatasetDefaults(t *testing.T) {
	d, err := NewDataset(testTimes(2), []int32{42})
	require.NoError(t, err)

	assert.Equal(t, []string{"42"}, d.StationNames)
	assert.Equal(t, []int32{1}, d.Members)
	assert.Equal(t, []float64{0}, d.LeadTimes)
	assert.True(t, math.IsNaN(d.Latitudes[0]))
	assert.True(t, math.IsNaN(d.Longitudes[0]))
	assert.Equal(t, "hours", d.TimeUnits.Step)
	assert.True(t, d.TimeUnits.Origin.Equal(d.IssueTimes[0]))
	assert.Equal(t, "UTC", d.TimeStandard)
}

func TestNewDatasetErrors(t *testing.T) {
	_, err := NewDataset(nil, []int32{1})
	assert.Error(t, err)

	_, err = NewDataset(testTimes(1), nil)
	assert.Error(t, err)

	_, err = NewDataset(testTimes(1), []int32{1, 2}, WithStationNames([]string{"only one"}))
	assert.Error(t, err)

	_, err = NewDataset(testTimes(1), []int32{1}, WithLeadTimes([]float64{0}, "fortnights"))
	assert.Error(t, err)
}

func TestCreateVariables(t *testing.T) {
	d := testDataset(t)
	require.NoError(t, d.CreateVariables(NewVariableDefinition("rain_fcast_ens")))

	v, err := d.Variable("rain_fcast_ens")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2, 4}, v.Data.Shape)
	assert.True(t, math.IsNaN(v.Data.Get(0, 0, 0, 0)))

	err = d.CreateVariables(NewVariableDefinition("rain_fcast_ens"))
	assert.Error(t, err, "duplicate variable")

	err = d.CreateVariables(NewVariableDefinition(conventions.LatVar))
	assert.Error(t, err, "reserved name")

	_, err = d.Variable("no_such_variable")
	assert.Error(t, err)
}

func TestIndexLookups(t *testing.T) {
	d := testDataset(t)

	i, err := d.StationIndex(456)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	_, err = d.StationIndex(789)
	assert.Error(t, err)

	i, err = d.TimeIndex(d.IssueTimes[2])
	require.NoError(t, err)
	assert.Equal(t, 2, i)
	_, err = d.TimeIndex(d.IssueTimes[2].Add(time.Minute))
	assert.Error(t, err)
}

func TestEnsembleForecastsRoundTrip(t *testing.T) {
	d := testDataset(t)
	require.NoError(t, d.CreateVariables(NewVariableDefinition("rain_fcast_ens")))

	fc := sparse.ZerosDense(4, 2)
	for l := 0; l < 4; l++ {
		for m := 0; m < 2; m++ {
			fc.Set(float64(10*l+m), l, m)
		}
	}
	issueTime := d.IssueTimes[1]
	require.NoError(t, d.PutEnsembleForecasts("rain_fcast_ens", 456, issueTime, fc))

	got, err := d.EnsembleForecasts("rain_fcast_ens", 456, issueTime)
	require.NoError(t, err)
	assert.Equal(t, fc.Elements, got.Elements)
	// The first element is zero; it must not degrade to NaN.
	assert.Zero(t, got.Get(0, 0))

	// Other stations and issue times stay untouched.
	other, err := d.EnsembleForecasts("rain_fcast_ens", 123, issueTime)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(other.Get(0, 0)))

	wrong := sparse.ZerosDense(2, 4)
	assert.Error(t, d.PutEnsembleForecasts("rain_fcast_ens", 456, issueTime, wrong))
}

func TestEnsembleSeriesRoundTrip(t *testing.T) {
	d := testDataset(t)
	def := NewVariableDefinition("rain_ens")
	def.Kind = conventions.EnsembleSeries
	require.NoError(t, d.CreateVariables(def))

	es := sparse.ZerosDense(2, 3)
	for m := 0; m < 2; m++ {
		for ti := 0; ti < 3; ti++ {
			es.Set(float64(10*m+ti), m, ti)
		}
	}
	require.NoError(t, d.PutEnsembleSeries("rain_ens", 123, es))

	got, err := d.EnsembleSeries("rain_ens", 123)
	require.NoError(t, err)
	assert.Equal(t, es.Elements, got.Elements)

	// Kind mismatch.
	_, err = d.EnsembleForecasts("rain_ens", 123, d.IssueTimes[0])
	assert.Error(t, err)
}

func TestSingleSeriesRoundTrip(t *testing.T) {
	d := testDataset(t)
	def := NewVariableDefinition("rain_obs")
	def.Kind = conventions.PointSeries
	require.NoError(t, d.CreateVariables(def))

	vals := []float64{1.5, 0, 3.5}
	require.NoError(t, d.PutSingleSeries("rain_obs", 456, vals))

	got, err := d.SingleSeries("rain_obs", 456)
	require.NoError(t, err)
	assert.Equal(t, vals, got)

	assert.Error(t, d.PutSingleSeries("rain_obs", 456, []float64{1}))
	_, err = d.SingleSeries("no_such", 456)
	assert.Error(t, err)
}

func TestSetLeadTimeValues(t *testing.T) {
	d := testDataset(t)
	require.NoError(t, d.SetLeadTimeValues([]float64{6, 12, 18, 24}))
	assert.Equal(t, []float64{6, 12, 18, 24}, d.LeadTimeValues())
	assert.Error(t, d.SetLeadTimeValues([]float64{6, 12}))
}

func TestValidate(t *testing.T) {
	d := testDataset(t)
	require.NoError(t, d.CreateVariables(NewVariableDefinition("rain_fcast_ens")))
	assert.NoError(t, d.Validate())

	// History may be empty since Write stamps it.
	d.Attrs.History = ""
	assert.NoError(t, d.Validate())

	d.Attrs.Catchment = ""
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catchment")
	d.Attrs.Catchment = "Upper Murray"

	d.Latitudes = []float64{-35.1}
	err = d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitudes")
	d.Latitudes = []float64{-35.1, -35.4}

	// A shape that no longer matches the dimensions is rejected.
	v, err := d.Variable("rain_fcast_ens")
	require.NoError(t, err)
	v.Data = sparse.ZerosDense(3, 2, 2, 1)
	err = d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape")
}
