package cftime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	u, err := Parse("hours since 2015-10-04 00:00:00 +1030")
	require.NoError(t, err)
	assert.Equal(t, "hours", u.Step)
	assert.Equal(t, "2015-10-04 00:00:00 +1030", u.Origin.Format("2006-01-02 15:04:05 -0700"))

	u, err = Parse("days since 2010-01-01")
	require.NoError(t, err)
	assert.Equal(t, "days", u.Step)
	assert.True(t, u.Origin.Equal(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("hours")
	assert.Error(t, err)

	_, err = Parse("fortnights since 2010-01-01")
	assert.Error(t, err)

	_, err = Parse("hours since yesterday")
	assert.Error(t, err)
}

func TestStepDuration(t *testing.T) {
	for step, want := range map[string]time.Duration{
		"seconds": time.Second,
		"minutes": time.Minute,
		"hours":   time.Hour,
		"hour":    time.Hour,
		"days":    24 * time.Hour,
		"Days":    24 * time.Hour,
	} {
		d, err := StepDuration(step)
		require.NoError(t, err, step)
		assert.Equal(t, want, d, step)
	}
	_, err := StepDuration("months")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	origin := time.Date(2010, 8, 1, 14, 0, 0, 0, time.UTC)
	u := Units{Step: "hours", Origin: origin}

	ts := []time.Time{
		origin,
		origin.Add(1 * time.Hour),
		origin.Add(36 * time.Hour),
	}
	offsets, err := u.Encode(ts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 36}, offsets)

	back, err := u.Decode(offsets)
	require.NoError(t, err)
	for i := range ts {
		assert.True(t, ts[i].Equal(back[i]), "index %d", i)
	}
}

func TestString(t *testing.T) {
	u := Units{Step: "days", Origin: time.Date(2000, 11, 14, 23, 0, 0, 0, time.UTC)}
	assert.Equal(t, "days since 2000-11-14 23:00:00 +0000", u.String())
}
