package efts

import (
	"fmt"
	"time"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
)

// VarAttributes holds the STF attributes describing the kind of data stored
// in a variable.
type VarAttributes struct {
	// TypeCode is a coded description of the data type, e.g. 2 for data
	// accumulated over the preceding interval.
	TypeCode        int
	TypeDescription string
	// DatType identifies the provenance of the data, e.g. "der" for derived.
	DatType            string
	DatTypeDescription string
	LocationType       string
}

// DefaultVarAttributes returns the attribute set used when a variable
// definition does not specify one.
func DefaultVarAttributes() VarAttributes {
	return VarAttributes{
		TypeCode:           2,
		TypeDescription:    "accumulated over the preceding interval",
		DatType:            "der",
		DatTypeDescription: "AWAP data interpolated from observations",
		LocationType:       "Point",
	}
}

// VariableDefinition describes a data variable to be created in an EFTS
// data set.
type VariableDefinition struct {
	Name     string
	LongName string
	Units    string
	// MissVal is the code for missing data; it becomes the variable's
	// _FillValue.
	MissVal float64
	// Precision is "double" for float64 storage, "float" or "single" for
	// float32.
	Precision  string
	Kind       conventions.VarKind
	Attributes VarAttributes
}

// NewVariableDefinition returns a definition for an ensemble forecast
// variable with the conventional defaults filled in.
func NewVariableDefinition(name string) VariableDefinition {
	return VariableDefinition{
		Name:       name,
		LongName:   name,
		Units:      "mm",
		MissVal:    conventions.DefaultFillValue,
		Precision:  "double",
		Kind:       conventions.EnsembleForecast,
		Attributes: DefaultVarAttributes(),
	}
}

// validate fills defaults for zero-valued fields and rejects definitions
// the format cannot represent.
func (v *VariableDefinition) validate() error {
	if v.Name == "" {
		return fmt.Errorf("efts: variable definition lacks a name")
	}
	if conventions.IsConventional(v.Name) {
		return fmt.Errorf("efts: variable name %q is reserved by the convention", v.Name)
	}
	if !v.Kind.Valid() {
		return fmt.Errorf("efts: variable %s: invalid dimension kind %d (must be 2, 3 or 4)", v.Name, v.Kind)
	}
	switch v.Precision {
	case "", "double", "float", "single":
	default:
		return fmt.Errorf("efts: variable %s: unsupported precision %q", v.Name, v.Precision)
	}
	if v.LongName == "" {
		v.LongName = v.Name
	}
	if v.Precision == "" {
		v.Precision = "double"
	}
	if v.MissVal == 0 {
		v.MissVal = conventions.DefaultFillValue
	}
	return nil
}

// float32Storage reports whether the variable is stored as 32-bit floats.
func (v *VariableDefinition) float32Storage() bool {
	return v.Precision == "float" || v.Precision == "single"
}

// OptionalVariableDefinitions returns the template definitions for the
// optional geolocation variables x, y, area and elevation of the 2.0
// convention.
func OptionalVariableDefinitions() []VariableDefinition {
	defs := []VariableDefinition{
		{Name: conventions.XVar, LongName: "easting from the GDA94 datum in MGA Zone 55", Units: ""},
		{Name: conventions.YVar, LongName: "northing from the GDA94 datum in MGA Zone 55", Units: ""},
		{Name: conventions.AreaVar, LongName: "catchment area", Units: "km^2", MissVal: conventions.DefaultFillValue},
		{Name: conventions.ElevationVar, LongName: "station elevation above sea level", Units: "m", MissVal: conventions.DefaultFillValue},
	}
	for i := range defs {
		defs[i].Precision = "float"
	}
	return defs
}

// GlobalAttributes holds the global attributes the convention requires on
// every file.
type GlobalAttributes struct {
	Title             string
	Institution       string
	Source            string
	Catchment         string
	Comment           string
	History           string
	ConventionVersion string
	SpecURL           string
}

// DefaultGlobalAttributes returns a placeholder attribute set; callers are
// expected to replace the "not provided" values.
func DefaultGlobalAttributes() GlobalAttributes {
	return GlobalAttributes{
		Title:             "not provided",
		Institution:       "not provided",
		Source:            "not provided",
		Catchment:         "not provided",
		Comment:           "not provided",
		History:           "not provided",
		ConventionVersion: conventions.ConventionVersion,
		SpecURL:           conventions.SpecURL,
	}
}

// asMap renders the attributes under their conventional keys.
func (g GlobalAttributes) asMap() map[string]string {
	return map[string]string{
		conventions.TitleAttr:             g.Title,
		conventions.InstitutionAttr:       g.Institution,
		conventions.SourceAttr:            g.Source,
		conventions.CatchmentAttr:         g.Catchment,
		conventions.CommentAttr:           g.Comment,
		conventions.HistoryAttr:           g.History,
		conventions.ConventionVersionAttr: g.ConventionVersion,
		conventions.SpecAttr:              g.SpecURL,
	}
}

// stampHistory appends a creation note to the history attribute.
func (g *GlobalAttributes) stampHistory(now time.Time) {
	note := fmt.Sprintf("%s UTC file created with efts-io", now.UTC().Format("2006-01-02 15:04:05"))
	if g.History == "" || g.History == "not provided" {
		g.History = note
		return
	}
	g.History = g.History + "\n" + note
}
