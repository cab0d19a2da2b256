// Package export renders forecast records as text, either CSV or InfluxDB
// line protocol, for loading into spreadsheets and time series databases.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/csiro-hydroinformatics/efts-io/efts"
)

// Format identifies a supported output format.
type Format string

const (
	CSV    Format = "csv"
	Influx Format = "influx"
)

const measurementRE = "^[a-zA-Z0-9_]+$"

// Writer renders forecast records onto an io.Writer in a fixed format.
type Writer struct {
	w      io.Writer
	format Format
	// measurement names the series in line protocol output; it is also
	// used as the value column header in CSV output.
	measurement string
	recToText   recToTextFunc
	wroteHeader bool
}

// NewWriter creates a record writer for the given format. measurement must
// match ^[a-zA-Z0-9_]+$.
func NewWriter(w io.Writer, format Format, measurement string) (*Writer, error) {
	matches, err := regexp.MatchString(measurementRE, measurement)
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, fmt.Errorf("export: measurement %q does not match %q regular expression", measurement, measurementRE)
	}
	recToText := recToTextFuncs[format]
	if recToText == nil {
		return nil, fmt.Errorf("export: format %q is not supported", format)
	}
	return &Writer{w: w, format: format, measurement: measurement, recToText: recToText}, nil
}

// Write renders a batch of records. For CSV output the header row is
// emitted before the first batch.
func (ew *Writer) Write(recs []efts.Record) error {
	var sb strings.Builder
	if !ew.wroteHeader {
		if ew.format == CSV {
			sb.WriteString("issue_time,station_id,ens_member,lead_time,")
			sb.WriteString(ew.measurement)
			sb.WriteString("\n")
		}
		ew.wroteHeader = true
	}
	for i := range recs {
		ew.recToText(&sb, &recs[i], ew.measurement)
		sb.WriteString("\n")
	}
	_, err := io.WriteString(ew.w, sb.String())
	return err
}

type recToTextFunc func(*strings.Builder, *efts.Record, string)

var recToTextFuncs = map[Format]recToTextFunc{
	Influx: recToInflux,
	CSV:    recToCSV,
}

var influxFmt = "%s,station_id=%d,ens_member=%d,lead_time=%g value=%g %d"

// recToInflux renders a record as InfluxDB line protocol v2 with a
// nanosecond timestamp.
func recToInflux(sb *strings.Builder, r *efts.Record, measurement string) {
	sb.WriteString(fmt.Sprintf(influxFmt, []any{
		measurement,
		r.StationID,
		r.Member,
		r.LeadTime,
		r.Value,
		r.IssueTime.UnixNano(),
	}...))
}

var csvFmt = "%s,%d,%d,%g,%g"

// recToCSV renders a record as a CSV row with an RFC 3339 issue time.
func recToCSV(sb *strings.Builder, r *efts.Record, _ string) {
	sb.WriteString(fmt.Sprintf(csvFmt, []any{
		r.IssueTime.UTC().Format("2006-01-02T15:04:05Z"),
		r.StationID,
		r.Member,
		r.LeadTime,
		r.Value,
	}...))
}
