package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csiro-hydroinformatics/efts-io/efts"
)

func testRecords() []efts.Record {
	issueTime := time.Date(2010, 8, 1, 0, 0, 0, 0, time.UTC)
	return []efts.Record{
		{IssueTime: issueTime, StationID: 123, Member: 1, LeadTime: 1, Value: 1.25},
		{IssueTime: issueTime, StationID: 123, Member: 2, LeadTime: 1, Value: 2.5},
	}
}

func TestCSV(t *testing.T) {
	var sb strings.Builder
	w, err := NewWriter(&sb, CSV, "rain_fcast_ens")
	require.NoError(t, err)
	require.NoError(t, w.Write(testRecords()))
	require.NoError(t, w.Write(testRecords()[:1]))

	want := "issue_time,station_id,ens_member,lead_time,rain_fcast_ens\n" +
		"2010-08-01T00:00:00Z,123,1,1,1.25\n" +
		"2010-08-01T00:00:00Z,123,2,1,2.5\n" +
		"2010-08-01T00:00:00Z,123,1,1,1.25\n"
	assert.Equal(t, want, sb.String())
}

func TestInflux(t *testing.T) {
	var sb strings.Builder
	w, err := NewWriter(&sb, Influx, "rain_fcast_ens")
	require.NoError(t, err)
	require.NoError(t, w.Write(testRecords()))

	want := "rain_fcast_ens,station_id=123,ens_member=1,lead_time=1 value=1.25 1280620800000000000\n" +
		"rain_fcast_ens,station_id=123,ens_member=2,lead_time=1 value=2.5 1280620800000000000\n"
	assert.Equal(t, want, sb.String())
}

func TestNewWriterErrors(t *testing.T) {
	var sb strings.Builder
	_, err := NewWriter(&sb, Format("xml"), "rain")
	assert.Error(t, err)

	_, err = NewWriter(&sb, CSV, "bad name")
	assert.Error(t, err)

	_, err = NewWriter(&sb, CSV, "")
	assert.Error(t, err)
}
