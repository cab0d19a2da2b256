// Package conventions defines the naming conventions of the STF netCDF
// format for ensemble forecast time series, version 2.0, and helpers for
// checking that a file or in-memory data set follows them.
//
// The convention is documented at
// https://github.com/csiro-hydroinformatics/efts/blob/master/docs/netcdf_for_water_forecasting.md
package conventions

import "fmt"

// Dimension names.
const (
	TimeDim      = "time"
	StationDim   = "station"
	EnsMemberDim = "ens_member"
	LeadTimeDim  = "lead_time"
	StrLenDim    = "strLen"
)

// Conventional variable names.
const (
	// int station_id(station)
	StationIDVar = "station_id"
	// char station_name(station, strLen)
	StationNameVar = "station_name"
	// float lat(station)
	LatVar = "lat"
	// float lon(station)
	LonVar = "lon"
	// float x(station)
	XVar = "x"
	// float y(station)
	YVar = "y"
	// float area(station)
	AreaVar = "area"
	// float elevation(station)
	ElevationVar = "elevation"
)

// Global attribute keys the convention requires on every file.
const (
	TitleAttr             = "title"
	InstitutionAttr       = "institution"
	SourceAttr            = "source"
	CatchmentAttr         = "catchment"
	ConventionVersionAttr = "STF_convention_version"
	SpecAttr              = "STF_nc_spec"
	CommentAttr           = "comment"
	HistoryAttr           = "history"
)

// Attribute keys used on variables.
const (
	TimeStandardAttr = "time_standard"
	StandardNameAttr = "standard_name"
	LongNameAttr     = "long_name"
	AxisAttr         = "axis"
	UnitsAttr        = "units"
	FillValueAttr    = "_FillValue"
)

// SpecURL is the value of the STF_nc_spec attribute for version 2.0 files.
const SpecURL = "https://github.com/csiro-hydroinformatics/efts/blob/d7d43a995fb5e459bcb894e09b7bb89de03e285c/docs/netcdf_for_water_forecasting.md"

// ConventionVersion is the convention version this package implements.
const ConventionVersion = "2.0"

// DefaultFillValue is the conventional code for missing data.
const DefaultFillValue = -9999.0

// ConventionalVarNames lists every dimension and variable name reserved by
// the convention. Data variables may use any other name.
var ConventionalVarNames = []string{
	StationDim,
	LeadTimeDim,
	TimeDim,
	EnsMemberDim,
	StrLenDim,
	StationIDVar,
	StationNameVar,
	LatVar,
	LonVar,
	XVar,
	YVar,
	AreaVar,
	ElevationVar,
}

// MandatoryGlobalAttributes lists the global attributes every STF 2.0 file
// must carry.
var MandatoryGlobalAttributes = []string{
	TitleAttr,
	InstitutionAttr,
	SourceAttr,
	CatchmentAttr,
	ConventionVersionAttr,
	SpecAttr,
	CommentAttr,
	HistoryAttr,
}

// MandatoryDimensions lists the dimensions every STF 2.0 file must define.
var MandatoryDimensions = []string{
	TimeDim,
	StationDim,
	LeadTimeDim,
	StrLenDim,
	EnsMemberDim,
}

// MandatoryVariables lists the variables every STF 2.0 file must define.
var MandatoryVariables = []string{
	TimeDim,
	StationDim,
	LeadTimeDim,
	StationIDVar,
	StationNameVar,
	EnsMemberDim,
	LatVar,
	LonVar,
}

// VarKind identifies the dimension signature of a data variable.
type VarKind int

const (
	// PointSeries is a variable of shape [time, station].
	PointSeries VarKind = 2
	// EnsembleSeries is a variable of shape [time, ens_member, station].
	EnsembleSeries VarKind = 3
	// EnsembleForecast is a variable of shape
	// [time, ens_member, station, lead_time].
	EnsembleForecast VarKind = 4
)

// Valid reports whether k is one of the three defined kinds.
func (k VarKind) Valid() bool {
	return k == PointSeries || k == EnsembleSeries || k == EnsembleForecast
}

// Dims returns the on-disk dimension order for data variables of kind k,
// time (the record dimension) outermost. Dims returns nil for an invalid
// kind.
func (k VarKind) Dims() []string {
	switch k {
	case PointSeries:
		return []string{TimeDim, StationDim}
	case EnsembleSeries:
		return []string{TimeDim, EnsMemberDim, StationDim}
	case EnsembleForecast:
		return []string{TimeDim, EnsMemberDim, StationDim, LeadTimeDim}
	}
	return nil
}

// MissingNames returns the members of required that are absent from got.
func MissingNames(got []string, required []string) []string {
	present := make(map[string]struct{}, len(got))
	for _, n := range got {
		present[n] = struct{}{}
	}
	var missing []string
	for _, n := range required {
		if _, ok := present[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// CheckDimensions verifies that dims contains every mandatory dimension.
func CheckDimensions(dims []string) error {
	if m := MissingNames(dims, MandatoryDimensions); len(m) > 0 {
		return fmt.Errorf("conventions: missing dimensions: %v", m)
	}
	return nil
}

// CheckVariables verifies that vars contains every mandatory variable.
func CheckVariables(vars []string) error {
	if m := MissingNames(vars, MandatoryVariables); len(m) > 0 {
		return fmt.Errorf("conventions: missing variables: %v", m)
	}
	return nil
}

// CheckGlobalAttributes verifies that attrs contains every mandatory global
// attribute.
func CheckGlobalAttributes(attrs []string) error {
	if m := MissingNames(attrs, MandatoryGlobalAttributes); len(m) > 0 {
		return fmt.Errorf("conventions: missing global attributes: %v", m)
	}
	return nil
}

// IsConventional reports whether name is reserved by the convention for a
// dimension or metadata variable.
func IsConventional(name string) bool {
	for _, n := range ConventionalVarNames {
		if n == name {
			return true
		}
	}
	return false
}
