package efts

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
)

func roundTripDataset(t *testing.T) *Dataset {
	t.Helper()
	d, err := NewDataset(testTimes(3), []int32{123, 456},
		WithLeadTimes([]float64{1, 2}, "hours"),
		WithEnsembleSize(2),
		WithStationNames([]string{"upstream", "downstream"}),
		WithCoordinates([]float64{-35.1, -35.4}, []float64{149.0, 149.2}),
		WithAreas([]float64{150.5, math.NaN()}),
	)
	require.NoError(t, err)

	require.NoError(t, d.CreateVariables(NewVariableDefinition("rain_fcast_ens")))

	obs := NewVariableDefinition("rain_obs")
	obs.Kind = conventions.PointSeries
	obs.Units = "mm"
	require.NoError(t, d.CreateVariables(obs))

	fc := sparse.ZerosDense(2, 2)
	fc.Set(1.25, 0, 0)
	fc.Set(2.5, 0, 1)
	fc.Set(math.NaN(), 1, 0)
	fc.Set(4.75, 1, 1)
	require.NoError(t, d.PutEnsembleForecasts("rain_fcast_ens", 123, d.IssueTimes[1], fc))
	// The zero observation must survive storage; it is a valid value, not
	// a missing one.
	require.NoError(t, d.PutSingleSeries("rain_obs", 456, []float64{0.5, math.NaN(), 0}))
	return d
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcast.nc")
	d := roundTripDataset(t)
	require.NoError(t, Write(path, d))
	require.NoError(t, ValidateFile(path))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, d.StationIDs, got.StationIDs)
	assert.Equal(t, d.StationNames, got.StationNames)
	assert.Equal(t, d.Members, got.Members)
	assert.Equal(t, d.LeadTimes, got.LeadTimes)
	assert.Equal(t, "hours", got.LeadTimeStep)
	assert.Equal(t, "UTC", got.TimeStandard)
	require.Len(t, got.IssueTimes, len(d.IssueTimes))
	for i := range d.IssueTimes {
		assert.True(t, d.IssueTimes[i].Equal(got.IssueTimes[i]), "issue time %d", i)
	}
	for i := range d.Latitudes {
		assert.InDelta(t, d.Latitudes[i], got.Latitudes[i], 1e-5)
		assert.InDelta(t, d.Longitudes[i], got.Longitudes[i], 1e-5)
	}
	require.Len(t, got.Areas, 2)
	assert.InDelta(t, 150.5, got.Areas[0], 1e-4)
	assert.True(t, math.IsNaN(got.Areas[1]))

	assert.Equal(t, conventions.ConventionVersion, got.Attrs.ConventionVersion)
	assert.Contains(t, got.Attrs.History, "file created with efts-io")

	fc, err := got.EnsembleForecasts("rain_fcast_ens", 123, got.IssueTimes[1])
	require.NoError(t, err)
	assert.InDelta(t, 1.25, fc.Get(0, 0), 0)
	assert.InDelta(t, 2.5, fc.Get(0, 1), 0)
	assert.True(t, math.IsNaN(fc.Get(1, 0)))
	assert.InDelta(t, 4.75, fc.Get(1, 1), 0)

	obs, err := got.SingleSeries("rain_obs", 456)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, obs[0], 0)
	assert.True(t, math.IsNaN(obs[1]))
	assert.Zero(t, obs[2])
}

func TestWriteFloat32Variable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.nc")
	d, err := NewDataset(testTimes(2), []int32{7})
	require.NoError(t, err)
	def := NewVariableDefinition("pet")
	def.Kind = conventions.PointSeries
	def.Precision = "single"
	require.NoError(t, d.CreateVariables(def))
	require.NoError(t, d.PutSingleSeries("pet", 7, []float64{3.75, math.NaN()}))

	require.NoError(t, Write(path, d))
	got, err := Read(path)
	require.NoError(t, err)

	vals, err := got.SingleSeries("pet", 7)
	require.NoError(t, err)
	assert.InDelta(t, 3.75, vals[0], 1e-5)
	assert.True(t, math.IsNaN(vals[1]))

	v, err := got.Variable("pet")
	require.NoError(t, err)
	assert.Equal(t, "single", v.Def.Precision)
}

func TestWriteRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcast.nc")
	d := roundTripDataset(t)
	require.NoError(t, Write(path, d))
	err := Write(path, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestReadRejectsNonConformingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.nc"))
	assert.Error(t, err)
}
