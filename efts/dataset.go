// Package efts reads, writes and manipulates ensemble forecast time series
// stored in netCDF files following the STF 2.0 convention.
//
// An ensemble forecast time series records, for each forecast issue time,
// several realizations ("ensemble members") of a variable across a sequence
// of future lead times, for a set of stations.
package efts

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/sparse"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
	"github.com/csiro-hydroinformatics/efts-io/internal/cftime"
)

// Variable is a data variable of a Dataset: its definition plus a dense
// array with the on-disk dimension order for its kind, time outermost.
type Variable struct {
	Def  VariableDefinition
	Data *sparse.DenseArray
}

// Dataset is an in-memory ensemble forecast time series.
type Dataset struct {
	// IssueTimes is the main time axis: the times forecasts were issued at.
	IssueTimes []time.Time
	// TimeUnits encodes the time axis for file storage.
	TimeUnits cftime.Units
	// TimeStandard is the time standard of the time axis, normally "UTC".
	TimeStandard string

	// LeadTimes holds the offsets of each forecast step, in units of
	// LeadTimeStep since the issue time.
	LeadTimes    []float64
	LeadTimeStep string

	// Per-station metadata. StationIDs, StationNames, Latitudes and
	// Longitudes all have one entry per station.
	StationIDs   []int32
	StationNames []string
	Latitudes    []float64
	Longitudes   []float64
	// Optional geolocation values, nil when absent.
	X, Y, Areas, Elevations []float64

	// Members holds the ensemble member identifiers.
	Members []int32

	Attrs GlobalAttributes

	vars map[string]*Variable
}

// Option configures a Dataset under construction.
type Option func(*Dataset)

// WithLeadTimes sets the forecast lead time offsets and their step size.
func WithLeadTimes(values []float64, step string) Option {
	return func(d *Dataset) {
		d.LeadTimes = values
		d.LeadTimeStep = step
	}
}

// WithEnsembleSize sets the number of ensemble members; member identifiers
// are numbered from 1.
func WithEnsembleSize(n int) Option {
	return func(d *Dataset) {
		d.Members = make([]int32, n)
		for i := range d.Members {
			d.Members[i] = int32(i + 1)
		}
	}
}

// WithStationNames sets the station names; by default the station
// identifier is used as the name.
func WithStationNames(names []string) Option {
	return func(d *Dataset) { d.StationNames = names }
}

// WithCoordinates sets the station latitudes and longitudes.
func WithCoordinates(lat, lon []float64) Option {
	return func(d *Dataset) {
		d.Latitudes = lat
		d.Longitudes = lon
	}
}

// WithAreas sets the catchment area for each station.
func WithAreas(areas []float64) Option {
	return func(d *Dataset) { d.Areas = areas }
}

// WithGlobalAttributes sets the file-level attributes.
func WithGlobalAttributes(attrs GlobalAttributes) Option {
	return func(d *Dataset) { d.Attrs = attrs }
}

// WithTimeUnits overrides the storage encoding of the time axis. The
// default is hours since the first issue time.
func WithTimeUnits(u cftime.Units) Option {
	return func(d *Dataset) { d.TimeUnits = u }
}

// NewDataset creates an ensemble forecast time series for the given issue
// times and stations. Without options it has a single lead time of zero, a
// single ensemble member and placeholder metadata.
func NewDataset(issueTimes []time.Time, stationIDs []int32, opts ...Option) (*Dataset, error) {
	if len(issueTimes) == 0 {
		return nil, fmt.Errorf("efts: a data set needs at least one issue time")
	}
	if len(stationIDs) == 0 {
		return nil, fmt.Errorf("efts: a data set needs station identifiers")
	}
	d := &Dataset{
		IssueTimes:   issueTimes,
		TimeStandard: "UTC",
		LeadTimes:    []float64{0},
		LeadTimeStep: "hours",
		StationIDs:   stationIDs,
		Members:      []int32{1},
		Attrs:        DefaultGlobalAttributes(),
		vars:         make(map[string]*Variable),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.TimeUnits.Step == "" {
		d.TimeUnits = cftime.Units{Step: "hours", Origin: issueTimes[0]}
	}
	if _, err := cftime.StepDuration(d.LeadTimeStep); err != nil {
		return nil, err
	}
	n := len(stationIDs)
	if d.StationNames == nil {
		d.StationNames = make([]string, n)
		for i, id := range stationIDs {
			d.StationNames[i] = strconv.Itoa(int(id))
		}
	}
	if d.Latitudes == nil {
		d.Latitudes = nanFull(n)
	}
	if d.Longitudes == nil {
		d.Longitudes = nanFull(n)
	}
	if err := d.checkStationSlices(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) checkStationSlices() error {
	n := len(d.StationIDs)
	for name, l := range map[string]int{
		"station names": len(d.StationNames),
		"latitudes":     len(d.Latitudes),
		"longitudes":    len(d.Longitudes),
	} {
		if l != n {
			return fmt.Errorf("efts: %s length %d does not match %d stations", name, l, n)
		}
	}
	for name, vals := range map[string][]float64{"x": d.X, "y": d.Y, "areas": d.Areas, "elevations": d.Elevations} {
		if vals != nil && len(vals) != n {
			return fmt.Errorf("efts: %s length %d does not match %d stations", name, len(vals), n)
		}
	}
	return nil
}

func nanFull(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// varShape returns the dense array shape for a variable of kind k.
func (d *Dataset) varShape(k conventions.VarKind) []int {
	switch k {
	case conventions.PointSeries:
		return []int{len(d.IssueTimes), len(d.StationIDs)}
	case conventions.EnsembleSeries:
		return []int{len(d.IssueTimes), len(d.Members), len(d.StationIDs)}
	case conventions.EnsembleForecast:
		return []int{len(d.IssueTimes), len(d.Members), len(d.StationIDs), len(d.LeadTimes)}
	}
	return nil
}

// CreateVariables allocates NaN-filled data variables from the given
// definitions.
func (d *Dataset) CreateVariables(defs ...VariableDefinition) error {
	for _, def := range defs {
		if err := def.validate(); err != nil {
			return err
		}
		if _, ok := d.vars[def.Name]; ok {
			return fmt.Errorf("efts: variable %s already exists", def.Name)
		}
		data := sparse.ZerosDense(d.varShape(def.Kind)...)
		for i := range data.Elements {
			data.Elements[i] = math.NaN()
		}
		d.vars[def.Name] = &Variable{Def: def, Data: data}
	}
	return nil
}

// Variable returns the named data variable.
func (d *Dataset) Variable(name string) (*Variable, error) {
	v, ok := d.vars[name]
	if !ok {
		return nil, fmt.Errorf("efts: no variable named %q in the data set", name)
	}
	return v, nil
}

// VariableNames returns the names of the data variables, in no particular
// order.
func (d *Dataset) VariableNames() []string {
	names := make([]string, 0, len(d.vars))
	for n := range d.vars {
		names = append(names, n)
	}
	return names
}

// DimensionNames returns the names of the dimensions of the data set in
// on-disk order.
func (d *Dataset) DimensionNames() []string {
	return []string{
		conventions.TimeDim,
		conventions.EnsMemberDim,
		conventions.StationDim,
		conventions.LeadTimeDim,
		conventions.StrLenDim,
	}
}

// EnsembleSize returns the number of ensemble members.
func (d *Dataset) EnsembleSize() int { return len(d.Members) }

// LeadTimeCount returns the length of the lead time dimension.
func (d *Dataset) LeadTimeCount() int { return len(d.LeadTimes) }

// StationCount returns the number of stations.
func (d *Dataset) StationCount() int { return len(d.StationIDs) }

// LeadTimeValues returns the lead time offsets.
func (d *Dataset) LeadTimeValues() []float64 { return d.LeadTimes }

// SetLeadTimeValues replaces the lead time offsets.
func (d *Dataset) SetLeadTimeValues(values []float64) error {
	if len(values) != len(d.LeadTimes) {
		return fmt.Errorf("efts: got %d lead time values, want %d", len(values), len(d.LeadTimes))
	}
	d.LeadTimes = values
	return nil
}

// StationIndex returns the index of the station with the given identifier.
func (d *Dataset) StationIndex(stationID int32) (int, error) {
	for i, id := range d.StationIDs {
		if id == stationID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("efts: identifier '%d' not found in the dimension '%s'", stationID, conventions.StationIDVar)
}

// TimeIndex returns the index of the given issue time on the main time
// axis.
func (d *Dataset) TimeIndex(t time.Time) (int, error) {
	for i, it := range d.IssueTimes {
		if it.Equal(t) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("efts: time '%s' not found in the dimension '%s'", t.Format(time.RFC3339), conventions.TimeDim)
}

// EnsembleForecasts returns the forecast issued at issueTime for one
// station: an array of shape [lead_time, ens_member].
func (d *Dataset) EnsembleForecasts(variable string, stationID int32, issueTime time.Time) (*sparse.DenseArray, error) {
	v, si, ti, err := d.forecastIndices(variable, stationID, issueTime)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(len(d.LeadTimes), len(d.Members))
	for l := range d.LeadTimes {
		for m := range d.Members {
			// DenseArray.Set silently drops zero values, so assign
			// the element directly.
			out.Elements[out.Index1d(l, m)] = v.Data.Get(ti, m, si, l)
		}
	}
	return out, nil
}

// PutEnsembleForecasts stores the forecast issued at issueTime for one
// station; values must have shape [lead_time, ens_member].
func (d *Dataset) PutEnsembleForecasts(variable string, stationID int32, issueTime time.Time, values *sparse.DenseArray) error {
	v, si, ti, err := d.forecastIndices(variable, stationID, issueTime)
	if err != nil {
		return err
	}
	if err := d.checkShape(variable, values, len(d.LeadTimes), len(d.Members)); err != nil {
		return err
	}
	for l := range d.LeadTimes {
		for m := range d.Members {
			v.Data.Elements[v.Data.Index1d(ti, m, si, l)] = values.Get(l, m)
		}
	}
	return nil
}

func (d *Dataset) forecastIndices(variable string, stationID int32, issueTime time.Time) (*Variable, int, int, error) {
	v, err := d.Variable(variable)
	if err != nil {
		return nil, 0, 0, err
	}
	if v.Def.Kind != conventions.EnsembleForecast {
		return nil, 0, 0, fmt.Errorf("efts: variable %s is not an ensemble forecast variable", variable)
	}
	si, err := d.StationIndex(stationID)
	if err != nil {
		return nil, 0, 0, err
	}
	ti, err := d.TimeIndex(issueTime)
	if err != nil {
		return nil, 0, 0, err
	}
	return v, si, ti, nil
}

// EnsembleSeries returns the ensemble of time series for one station: an
// array of shape [ens_member, time].
func (d *Dataset) EnsembleSeries(variable string, stationID int32) (*sparse.DenseArray, error) {
	v, err := d.Variable(variable)
	if err != nil {
		return nil, err
	}
	if v.Def.Kind != conventions.EnsembleSeries {
		return nil, fmt.Errorf("efts: variable %s is not an ensemble series variable", variable)
	}
	si, err := d.StationIndex(stationID)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(len(d.Members), len(d.IssueTimes))
	for m := range d.Members {
		for t := range d.IssueTimes {
			out.Elements[out.Index1d(m, t)] = v.Data.Get(t, m, si)
		}
	}
	return out, nil
}

// PutEnsembleSeries stores an ensemble of time series for one station;
// values must have shape [ens_member, time].
func (d *Dataset) PutEnsembleSeries(variable string, stationID int32, values *sparse.DenseArray) error {
	v, err := d.Variable(variable)
	if err != nil {
		return err
	}
	if v.Def.Kind != conventions.EnsembleSeries {
		return fmt.Errorf("efts: variable %s is not an ensemble series variable", variable)
	}
	si, err := d.StationIndex(stationID)
	if err != nil {
		return err
	}
	if err := d.checkShape(variable, values, len(d.Members), len(d.IssueTimes)); err != nil {
		return err
	}
	for m := range d.Members {
		for t := range d.IssueTimes {
			v.Data.Elements[v.Data.Index1d(t, m, si)] = values.Get(m, t)
		}
	}
	return nil
}

// SingleSeries returns the point time series for one station.
func (d *Dataset) SingleSeries(variable string, stationID int32) ([]float64, error) {
	v, err := d.Variable(variable)
	if err != nil {
		return nil, err
	}
	if v.Def.Kind != conventions.PointSeries {
		return nil, fmt.Errorf("efts: variable %s is not a point series variable", variable)
	}
	si, err := d.StationIndex(stationID)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(d.IssueTimes))
	for t := range d.IssueTimes {
		out[t] = v.Data.Get(t, si)
	}
	return out, nil
}

// PutSingleSeries stores the point time series for one station.
func (d *Dataset) PutSingleSeries(variable string, stationID int32, values []float64) error {
	v, err := d.Variable(variable)
	if err != nil {
		return err
	}
	if v.Def.Kind != conventions.PointSeries {
		return fmt.Errorf("efts: variable %s is not a point series variable", variable)
	}
	si, err := d.StationIndex(stationID)
	if err != nil {
		return err
	}
	if len(values) != len(d.IssueTimes) {
		return fmt.Errorf("efts: variable %s: got %d values, want %d", variable, len(values), len(d.IssueTimes))
	}
	for t := range d.IssueTimes {
		v.Data.Elements[v.Data.Index1d(t, si)] = values[t]
	}
	return nil
}

func (d *Dataset) checkShape(variable string, values *sparse.DenseArray, want ...int) error {
	if len(values.Shape) != len(want) {
		return fmt.Errorf("efts: variable %s: got %d array dimensions, want %d", variable, len(values.Shape), len(want))
	}
	for i, w := range want {
		if values.Shape[i] != w {
			return fmt.Errorf("efts: variable %s: dimension %d has length %d, want %d", variable, i, values.Shape[i], w)
		}
	}
	return nil
}

// Validate checks the data set against the convention: consistent station
// metadata, non-empty mandatory global attributes, and data variables whose
// arrays match the dimension lengths. The history attribute may be empty
// since Write stamps it.
func (d *Dataset) Validate() error {
	if err := d.checkStationSlices(); err != nil {
		return err
	}
	attrs := d.Attrs.asMap()
	var empty []string
	for _, k := range conventions.MandatoryGlobalAttributes {
		if k != conventions.HistoryAttr && attrs[k] == "" {
			empty = append(empty, k)
		}
	}
	if len(empty) > 0 {
		sort.Strings(empty)
		return fmt.Errorf("efts: empty mandatory global attributes: %s", strings.Join(empty, ", "))
	}
	for name, v := range d.vars {
		if !v.Def.Kind.Valid() {
			return fmt.Errorf("efts: variable %s: invalid dimension kind %d", name, v.Def.Kind)
		}
		want := d.varShape(v.Def.Kind)
		if v.Data == nil || !slices.Equal(v.Data.Shape, want) {
			return fmt.Errorf("efts: variable %s: array shape %v does not match the dimensions %v", name, shapeOf(v.Data), want)
		}
	}
	return nil
}

func shapeOf(a *sparse.DenseArray) []int {
	if a == nil {
		return nil
	}
	return a.Shape
}

// Summary returns key/value pairs describing the data set, suitable for
// structured logging.
func (d *Dataset) Summary() []any {
	return []any{
		"stations", len(d.StationIDs),
		"issueTimes", len(d.IssueTimes),
		"leadTimes", len(d.LeadTimes),
		"members", len(d.Members),
		"variables", d.VariableNames(),
		"timeUnits", d.TimeUnits.String(),
	}
}
