package efts

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcast.nc")
	require.NoError(t, Write(path, roundTripDataset(t)))

	s, err := NewScanner(path, "rain_fcast_ens")
	require.NoError(t, err)
	defer s.Close()

	// 3 issue times x 2 members x 2 stations x 2 lead times.
	assert.Equal(t, 24, s.TotalRecCount())

	var batches [][]Record
	for s.Scan() {
		batches = append(batches, s.Records())
	}
	require.NoError(t, s.Err())
	require.Len(t, batches, 3)
	for _, b := range batches {
		assert.Len(t, b, 8)
	}
	assert.Nil(t, s.Records(), "records are consumed by the previous call")

	// Only the second issue time of station 123 holds data; everything
	// else is missing.
	for _, rec := range batches[0] {
		assert.True(t, math.IsNaN(rec.Value))
	}

	byKey := map[[3]int64]float64{}
	for _, rec := range batches[1] {
		assert.True(t, rec.IssueTime.Equal(testTimes(3)[1]))
		byKey[[3]int64{int64(rec.StationID), int64(rec.Member), int64(rec.LeadTime)}] = rec.Value
	}
	assert.InDelta(t, 1.25, byKey[[3]int64{123, 1, 1}], 0)
	assert.InDelta(t, 2.5, byKey[[3]int64{123, 2, 1}], 0)
	assert.True(t, math.IsNaN(byKey[[3]int64{123, 1, 2}]))
	assert.InDelta(t, 4.75, byKey[[3]int64{123, 2, 2}], 0)
}

func TestScannerPointSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcast.nc")
	require.NoError(t, Write(path, roundTripDataset(t)))

	s, err := NewScanner(path, "rain_obs")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 6, s.TotalRecCount())
	require.True(t, s.Scan())
	recs := s.Records()
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Zero(t, rec.Member)
		assert.Zero(t, rec.LeadTime)
	}
}

// truncatedSource returns fewer values than a record holds.
type truncatedSource struct{ n int }

func (ts *truncatedSource) read(pos int) ([]float64, error) { return make([]float64, ts.n), nil }

func (ts *truncatedSource) close() error { return nil }

func TestScannerRejectsTruncatedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcast.nc")
	require.NoError(t, Write(path, roundTripDataset(t)))

	s, err := NewScanner(path, "rain_fcast_ens")
	require.NoError(t, err)
	defer s.Close()

	s.src.close()
	s.src = &truncatedSource{n: 3}
	assert.False(t, s.Scan())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "got 3 values")
}

func TestScannerErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcast.nc")
	require.NoError(t, Write(path, roundTripDataset(t)))

	_, err := NewScanner(path, "lat")
	assert.Error(t, err, "metadata variables cannot be scanned")

	_, err = NewScanner(path, "no_such_variable")
	assert.Error(t, err)
}
