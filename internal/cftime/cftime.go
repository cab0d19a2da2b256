// Package cftime encodes and decodes time axes expressed in the CF style
// used by netCDF files: numeric offsets from an origin, with a unit string
// such as "hours since 2015-10-04 00:00:00 +1030".
package cftime

import (
	"fmt"
	"strings"
	"time"
)

// stepDurations maps the supported step names to their durations.
var stepDurations = map[string]time.Duration{
	"seconds": time.Second,
	"minutes": time.Minute,
	"hours":   time.Hour,
	"days":    24 * time.Hour,
}

// StepDuration returns the duration of one step of the named size
// ("seconds", "minutes", "hours" or "days"; the singular forms are also
// accepted).
func StepDuration(step string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(step))
	if d, ok := stepDurations[s]; ok {
		return d, nil
	}
	if d, ok := stepDurations[s+"s"]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("cftime: unsupported time step %q", step)
}

// Units describes a time axis: offsets are counted in Step-sized increments
// from Origin.
type Units struct {
	Step   string
	Origin time.Time
}

// timestamp layouts accepted after "since", most specific first.
var originLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse interprets a CF unit string of the form "<step> since <timestamp>".
func Parse(units string) (Units, error) {
	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return Units{}, fmt.Errorf("cftime: unit string %q lacks a 'since' clause", units)
	}
	step := strings.TrimSpace(parts[0])
	if _, err := StepDuration(step); err != nil {
		return Units{}, err
	}
	stamp := strings.TrimSpace(parts[1])
	for _, layout := range originLayouts {
		if origin, err := time.Parse(layout, stamp); err == nil {
			return Units{Step: step, Origin: origin}, nil
		}
	}
	return Units{}, fmt.Errorf("cftime: cannot parse time origin %q", stamp)
}

// String renders u in its canonical form, e.g.
// "hours since 2015-10-04 00:00:00 +1030".
func (u Units) String() string {
	return fmt.Sprintf("%s since %s", u.Step, u.Origin.Format("2006-01-02 15:04:05 -0700"))
}

// Decode converts numeric offsets to timestamps in the origin's location.
func (u Units) Decode(offsets []float64) ([]time.Time, error) {
	d, err := StepDuration(u.Step)
	if err != nil {
		return nil, err
	}
	ts := make([]time.Time, len(offsets))
	for i, o := range offsets {
		ts[i] = u.Origin.Add(time.Duration(o * float64(d)))
	}
	return ts, nil
}

// Encode converts timestamps to numeric offsets from the origin.
func (u Units) Encode(ts []time.Time) ([]float64, error) {
	d, err := StepDuration(u.Step)
	if err != nil {
		return nil, err
	}
	offsets := make([]float64, len(ts))
	for i, t := range ts {
		offsets[i] = float64(t.Sub(u.Origin)) / float64(d)
	}
	return offsets, nil
}
