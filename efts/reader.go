package efts

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
	"github.com/csiro-hydroinformatics/efts-io/internal/cftime"
)

// Read loads an STF 2.0 netCDF file into memory. The file is validated
// against the convention first; missing value codes become NaN.
func Read(path string) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("efts: opening %s: %v", path, err)
	}
	defer nc.Close()
	d, err := load(nc)
	if err != nil {
		return nil, fmt.Errorf("efts: reading %s: %v", path, err)
	}
	return d, nil
}

// DataVariableNames returns the names of the data variables of the file at
// path, leaving out the dimension and metadata variables.
func DataVariableNames(path string) ([]string, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("efts: opening %s: %v", path, err)
	}
	defer nc.Close()
	var names []string
	for _, name := range nc.ListVariables() {
		if !conventions.IsConventional(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// ValidateFile checks that the file at path follows the convention without
// loading the data variables: the mandatory variables and global attributes
// must be present and the time units must parse.
func ValidateFile(path string) error {
	nc, err := netcdf.Open(path)
	if err != nil {
		return fmt.Errorf("efts: opening %s: %v", path, err)
	}
	defer nc.Close()
	if err := conventions.CheckVariables(nc.ListVariables()); err != nil {
		return err
	}
	if err := conventions.CheckGlobalAttributes(nc.Attributes().Keys()); err != nil {
		return err
	}
	tv, err := nc.GetVarGetter(conventions.TimeDim)
	if err != nil {
		return err
	}
	units, ok := attrString(tv.Attributes(), conventions.UnitsAttr)
	if !ok {
		return fmt.Errorf("efts: variable %s has no units attribute", conventions.TimeDim)
	}
	if _, err := cftime.Parse(units); err != nil {
		return err
	}
	return nil
}

func load(nc api.Group) (*Dataset, error) {
	if err := conventions.CheckVariables(nc.ListVariables()); err != nil {
		return nil, err
	}
	if err := conventions.CheckGlobalAttributes(nc.Attributes().Keys()); err != nil {
		return nil, err
	}

	d := &Dataset{vars: make(map[string]*Variable)}
	d.Attrs = readGlobalAttributes(nc.Attributes())

	tv, err := nc.GetVariable(conventions.TimeDim)
	if err != nil {
		return nil, err
	}
	units, ok := attrString(tv.Attributes, conventions.UnitsAttr)
	if !ok {
		return nil, fmt.Errorf("variable %s has no units attribute", conventions.TimeDim)
	}
	d.TimeUnits, err = cftime.Parse(units)
	if err != nil {
		return nil, err
	}
	d.TimeStandard, _ = attrString(tv.Attributes, conventions.TimeStandardAttr)
	offsets, err := toFloat64s(tv.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", conventions.TimeDim, err)
	}
	d.IssueTimes, err = d.TimeUnits.Decode(offsets)
	if err != nil {
		return nil, err
	}

	lv, err := nc.GetVariable(conventions.LeadTimeDim)
	if err != nil {
		return nil, err
	}
	d.LeadTimes, err = toFloat64s(lv.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", conventions.LeadTimeDim, err)
	}
	d.LeadTimeStep = leadTimeStep(lv.Attributes)

	mv, err := nc.GetVariable(conventions.EnsMemberDim)
	if err != nil {
		return nil, err
	}
	d.Members, err = int32s(mv.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", conventions.EnsMemberDim, err)
	}

	iv, err := nc.GetVariable(conventions.StationIDVar)
	if err != nil {
		return nil, err
	}
	d.StationIDs, err = int32s(iv.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", conventions.StationIDVar, err)
	}

	nv, err := nc.GetVariable(conventions.StationNameVar)
	if err != nil {
		return nil, err
	}
	d.StationNames, err = stationNames(nv.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", conventions.StationNameVar, err)
	}

	d.Latitudes, err = stationFloats(nc, conventions.LatVar)
	if err != nil {
		return nil, err
	}
	d.Longitudes, err = stationFloats(nc, conventions.LonVar)
	if err != nil {
		return nil, err
	}
	optional := map[string]*[]float64{
		conventions.XVar:         &d.X,
		conventions.YVar:         &d.Y,
		conventions.AreaVar:      &d.Areas,
		conventions.ElevationVar: &d.Elevations,
	}
	for _, name := range nc.ListVariables() {
		if dst, ok := optional[name]; ok {
			*dst, err = stationFloats(nc, name)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := d.checkStationSlices(); err != nil {
		return nil, err
	}

	for _, name := range nc.ListVariables() {
		if conventions.IsConventional(name) {
			continue
		}
		if err := d.loadDataVariable(nc, name); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dataset) loadDataVariable(nc api.Group, name string) error {
	v, err := nc.GetVariable(name)
	if err != nil {
		return err
	}
	kind := conventions.VarKind(len(v.Dimensions))
	if !kind.Valid() {
		return fmt.Errorf("variable %s: unsupported rank %d", name, len(v.Dimensions))
	}
	if v.Dimensions[0] != conventions.TimeDim {
		return fmt.Errorf("variable %s: first dimension is %s, want %s", name, v.Dimensions[0], conventions.TimeDim)
	}

	def := NewVariableDefinition(name)
	def.Kind = kind
	if s, ok := attrString(v.Attributes, conventions.LongNameAttr); ok {
		def.LongName = s
	}
	if s, ok := attrString(v.Attributes, conventions.UnitsAttr); ok {
		def.Units = s
	}
	if fill, ok := attrFloat(v.Attributes, conventions.FillValueAttr); ok {
		def.MissVal = fill
	}
	def.Precision = storagePrecision(v.Values)

	shape := d.varShape(kind)
	data := sparse.ZerosDense(shape...)
	flat, err := flattenFloats(v.Values, make([]float64, 0, len(data.Elements)))
	if err != nil {
		return fmt.Errorf("variable %s: %v", name, err)
	}
	if len(flat) != len(data.Elements) {
		return fmt.Errorf("variable %s: got %d values, want %d for shape %v", name, len(flat), len(data.Elements), shape)
	}
	for i, val := range flat {
		if val == def.MissVal {
			val = math.NaN()
		}
		data.Elements[i] = val
	}
	d.vars[name] = &Variable{Def: def, Data: data}
	return nil
}

func readGlobalAttributes(am api.AttributeMap) GlobalAttributes {
	g := GlobalAttributes{}
	for key, dst := range map[string]*string{
		conventions.TitleAttr:             &g.Title,
		conventions.InstitutionAttr:       &g.Institution,
		conventions.SourceAttr:            &g.Source,
		conventions.CatchmentAttr:         &g.Catchment,
		conventions.CommentAttr:           &g.Comment,
		conventions.HistoryAttr:           &g.History,
		conventions.ConventionVersionAttr: &g.ConventionVersion,
		conventions.SpecAttr:              &g.SpecURL,
	} {
		*dst, _ = attrString(am, key)
	}
	return g
}

// leadTimeStep extracts the step name from a lead time units attribute such
// as "hours since forecast time".
func leadTimeStep(am api.AttributeMap) string {
	units, ok := attrString(am, conventions.UnitsAttr)
	if !ok {
		return "hours"
	}
	step := strings.Fields(units)
	if len(step) == 0 {
		return "hours"
	}
	if _, err := cftime.StepDuration(step[0]); err != nil {
		return "hours"
	}
	return step[0]
}

func stationFloats(nc api.Group, name string) ([]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, err
	}
	vals, err := toFloat64s(v.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", name, err)
	}
	fill := conventions.DefaultFillValue
	if f, ok := attrFloat(v.Attributes, conventions.FillValueAttr); ok {
		fill = f
	}
	for i, val := range vals {
		if val == fill {
			vals[i] = math.NaN()
		}
	}
	return vals, nil
}

func attrString(am api.AttributeMap, key string) (string, bool) {
	if am == nil {
		return "", false
	}
	v, ok := am.Get(key)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []string:
		if len(s) > 0 {
			return s[0], true
		}
	case []uint8:
		return string(s), true
	}
	return "", false
}

func attrFloat(am api.AttributeMap, key string) (float64, bool) {
	if am == nil {
		return 0, false
	}
	v, ok := am.Get(key)
	if !ok {
		return 0, false
	}
	vals, err := toFloat64s(v)
	if err != nil || len(vals) == 0 {
		switch s := v.(type) {
		case float64:
			return s, true
		case float32:
			return float64(s), true
		case int32:
			return float64(s), true
		}
		return 0, false
	}
	return vals[0], true
}

// storagePrecision reports the precision keyword matching the on-disk
// element type of a variable's values: "single" for 32-bit floats,
// "double" otherwise.
func storagePrecision(v interface{}) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Float32 {
		return "single"
	}
	return "double"
}

// toFloat64s coerces a one-dimensional netCDF value slice to float64.
func toFloat64s(v interface{}) ([]float64, error) {
	switch vv := v.(type) {
	case []float64:
		return vv, nil
	case []float32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(vv))
		for i, x := range vv {
			out[i] = float64(x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected value type %T", v)
}

func int32s(v interface{}) ([]int32, error) {
	switch vv := v.(type) {
	case []int32:
		return vv, nil
	case []int64:
		out := make([]int32, len(vv))
		for i, x := range vv {
			out[i] = int32(x)
		}
		return out, nil
	case []int16:
		out := make([]int32, len(vv))
		for i, x := range vv {
			out[i] = int32(x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected value type %T", v)
}

// stationNames handles both readings of a char matrix: a slice of strings,
// or rows of bytes padded with NULs.
func stationNames(v interface{}) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		out := make([]string, len(vv))
		for i, s := range vv {
			out[i] = strings.TrimRight(s, "\x00 ")
		}
		return out, nil
	case [][]uint8:
		out := make([]string, len(vv))
		for i, row := range vv {
			out[i] = strings.TrimRight(string(row), "\x00 ")
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected value type %T", v)
}

// flattenFloats appends the values of an arbitrarily nested numeric slice
// to dst in row-major order. The netCDF readers return multi-dimensional
// variables as nested slices of varying element types, so this is the one
// place the package reaches for reflection.
func flattenFloats(v interface{}, dst []float64) ([]float64, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unexpected value type %T", v)
	}
	if rv.Type().Elem().Kind() != reflect.Slice {
		vals, err := toFloat64s(v)
		if err != nil {
			return nil, err
		}
		return append(dst, vals...), nil
	}
	var err error
	for i := 0; i < rv.Len(); i++ {
		dst, err = flattenFloats(rv.Index(i).Interface(), dst)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}
