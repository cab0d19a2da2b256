package efts

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ctessum/cdf"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
)

// defaultStrLen is the conventional width of the station_name character
// matrix. It grows when a station name is longer.
const defaultStrLen = 30

// Write stores the data set as a new STF 2.0 netCDF file at path. The time
// dimension is the record dimension. NaN values are stored as the missing
// value code of each variable. Write refuses to overwrite an existing file.
func Write(path string, d *Dataset) error {
	return write(path, d, time.Now())
}

func write(path string, d *Dataset, now time.Time) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("efts: file %s already exists; remove it first", path)
	}
	if err := d.checkStationSlices(); err != nil {
		return err
	}

	strLen := defaultStrLen
	for _, name := range d.StationNames {
		if len(name) > strLen {
			strLen = len(name)
		}
	}

	h := cdf.NewHeader(
		[]string{
			conventions.TimeDim,
			conventions.EnsMemberDim,
			conventions.StationDim,
			conventions.LeadTimeDim,
			conventions.StrLenDim,
		},
		// Length zero marks the record dimension.
		[]int{0, len(d.Members), len(d.StationIDs), len(d.LeadTimes), strLen},
	)

	attrs := d.Attrs
	attrs.stampHistory(now)
	for k, v := range attrs.asMap() {
		h.AddAttribute("", k, v)
	}

	addCoordinateVariables(h, d)
	for _, name := range d.VariableNames() {
		addDataVariable(h, d.vars[name])
	}

	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("efts: defining %s: %v", path, err)
	}

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("efts: creating %s: %v", path, err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("efts: creating %s: %v", path, err)
	}

	if err := writeCoordinateVariables(f, d, strLen); err != nil {
		return fmt.Errorf("efts: writing %s: %v", path, err)
	}
	for _, name := range d.VariableNames() {
		if err := writeDataVariable(f, d.vars[name]); err != nil {
			return fmt.Errorf("efts: writing %s to %s: %v", name, path, err)
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("efts: finalizing %s: %v", path, err)
	}
	return nil
}

func addCoordinateVariables(h *cdf.Header, d *Dataset) {
	h.AddVariable(conventions.TimeDim, []string{conventions.TimeDim}, []float64{0})
	h.AddAttribute(conventions.TimeDim, conventions.StandardNameAttr, conventions.TimeDim)
	h.AddAttribute(conventions.TimeDim, conventions.LongNameAttr, conventions.TimeDim)
	h.AddAttribute(conventions.TimeDim, conventions.UnitsAttr, d.TimeUnits.String())
	h.AddAttribute(conventions.TimeDim, conventions.TimeStandardAttr, d.TimeStandard)
	h.AddAttribute(conventions.TimeDim, conventions.AxisAttr, "t")

	h.AddVariable(conventions.LeadTimeDim, []string{conventions.LeadTimeDim}, []float64{0})
	h.AddAttribute(conventions.LeadTimeDim, conventions.StandardNameAttr, "lead time")
	h.AddAttribute(conventions.LeadTimeDim, conventions.LongNameAttr, "forecast lead time")
	h.AddAttribute(conventions.LeadTimeDim, conventions.UnitsAttr, d.LeadTimeStep+" since forecast time")
	h.AddAttribute(conventions.LeadTimeDim, conventions.AxisAttr, "v")

	h.AddVariable(conventions.EnsMemberDim, []string{conventions.EnsMemberDim}, []int32{0})
	h.AddAttribute(conventions.EnsMemberDim, conventions.StandardNameAttr, conventions.EnsMemberDim)
	h.AddAttribute(conventions.EnsMemberDim, conventions.LongNameAttr, "ensemble member")
	h.AddAttribute(conventions.EnsMemberDim, conventions.UnitsAttr, "member id")
	h.AddAttribute(conventions.EnsMemberDim, conventions.AxisAttr, "u")

	h.AddVariable(conventions.StationDim, []string{conventions.StationDim}, []int32{0})
	h.AddAttribute(conventions.StationDim, conventions.LongNameAttr, "station index")

	h.AddVariable(conventions.StationIDVar, []string{conventions.StationDim}, []int32{0})
	h.AddAttribute(conventions.StationIDVar, conventions.LongNameAttr, "station or node identification code")

	// The string prototype makes the variable CHAR rather than BYTE.
	h.AddVariable(conventions.StationNameVar, []string{conventions.StationDim, conventions.StrLenDim}, "")
	h.AddAttribute(conventions.StationNameVar, conventions.LongNameAttr, "station or node name")

	h.AddVariable(conventions.LatVar, []string{conventions.StationDim}, []float32{0})
	h.AddAttribute(conventions.LatVar, conventions.LongNameAttr, "latitude")
	h.AddAttribute(conventions.LatVar, conventions.UnitsAttr, "degrees_north")
	h.AddAttribute(conventions.LatVar, conventions.AxisAttr, "y")

	h.AddVariable(conventions.LonVar, []string{conventions.StationDim}, []float32{0})
	h.AddAttribute(conventions.LonVar, conventions.LongNameAttr, "longitude")
	h.AddAttribute(conventions.LonVar, conventions.UnitsAttr, "degrees_east")
	h.AddAttribute(conventions.LonVar, conventions.AxisAttr, "x")

	optional := map[string][]float64{
		conventions.XVar:         d.X,
		conventions.YVar:         d.Y,
		conventions.AreaVar:      d.Areas,
		conventions.ElevationVar: d.Elevations,
	}
	for _, def := range OptionalVariableDefinitions() {
		if optional[def.Name] == nil {
			continue
		}
		h.AddVariable(def.Name, []string{conventions.StationDim}, []float32{0})
		h.AddAttribute(def.Name, conventions.LongNameAttr, def.LongName)
		if def.Units != "" {
			h.AddAttribute(def.Name, conventions.UnitsAttr, def.Units)
		}
		if def.MissVal != 0 {
			h.AddAttribute(def.Name, conventions.FillValueAttr, []float32{float32(def.MissVal)})
		}
	}
}

func addDataVariable(h *cdf.Header, v *Variable) {
	def := v.Def
	if def.float32Storage() {
		h.AddVariable(def.Name, def.Kind.Dims(), []float32{0})
		h.AddAttribute(def.Name, conventions.FillValueAttr, []float32{float32(def.MissVal)})
	} else {
		h.AddVariable(def.Name, def.Kind.Dims(), []float64{0})
		h.AddAttribute(def.Name, conventions.FillValueAttr, []float64{def.MissVal})
	}
	h.AddAttribute(def.Name, conventions.LongNameAttr, def.LongName)
	h.AddAttribute(def.Name, conventions.UnitsAttr, def.Units)
	a := def.Attributes
	h.AddAttribute(def.Name, "type", []int32{int32(a.TypeCode)})
	h.AddAttribute(def.Name, "type_description", a.TypeDescription)
	h.AddAttribute(def.Name, "dat_type", a.DatType)
	h.AddAttribute(def.Name, "dat_type_description", a.DatTypeDescription)
	h.AddAttribute(def.Name, "location_type", a.LocationType)
}

func writeCoordinateVariables(f *cdf.File, d *Dataset, strLen int) error {
	offsets, err := d.TimeUnits.Encode(d.IssueTimes)
	if err != nil {
		return err
	}
	w := f.Writer(conventions.TimeDim, []int{0}, []int{len(offsets)})
	if _, err := w.Write(offsets); err != nil {
		return fmt.Errorf("variable %s: %v", conventions.TimeDim, err)
	}

	// Fixed-size variables need explicit bounds; a nil-bounded writer
	// reports EOF once the values fill the variable exactly.
	nStations := len(d.StationIDs)
	w = f.Writer(conventions.LeadTimeDim, []int{0}, []int{len(d.LeadTimes)})
	if _, err := w.Write(d.LeadTimes); err != nil {
		return fmt.Errorf("variable %s: %v", conventions.LeadTimeDim, err)
	}
	w = f.Writer(conventions.EnsMemberDim, []int{0}, []int{len(d.Members)})
	if _, err := w.Write(d.Members); err != nil {
		return fmt.Errorf("variable %s: %v", conventions.EnsMemberDim, err)
	}
	idx := make([]int32, nStations)
	for i := range idx {
		idx[i] = int32(i + 1)
	}
	w = f.Writer(conventions.StationDim, []int{0}, []int{nStations})
	if _, err := w.Write(idx); err != nil {
		return fmt.Errorf("variable %s: %v", conventions.StationDim, err)
	}
	w = f.Writer(conventions.StationIDVar, []int{0}, []int{nStations})
	if _, err := w.Write(d.StationIDs); err != nil {
		return fmt.Errorf("variable %s: %v", conventions.StationIDVar, err)
	}

	names := make([]uint8, len(d.StationNames)*strLen)
	for i, name := range d.StationNames {
		copy(names[i*strLen:(i+1)*strLen], name)
	}
	w = f.Writer(conventions.StationNameVar, []int{0, 0}, []int{nStations, strLen})
	if _, err := w.Write(names); err != nil {
		return fmt.Errorf("variable %s: %v", conventions.StationNameVar, err)
	}

	station32 := map[string][]float64{
		conventions.LatVar:       d.Latitudes,
		conventions.LonVar:       d.Longitudes,
		conventions.XVar:         d.X,
		conventions.YVar:         d.Y,
		conventions.AreaVar:      d.Areas,
		conventions.ElevationVar: d.Elevations,
	}
	for name, vals := range station32 {
		if vals == nil {
			continue
		}
		w = f.Writer(name, []int{0}, []int{nStations})
		if _, err := w.Write(float32sWithFill(vals, conventions.DefaultFillValue)); err != nil {
			return fmt.Errorf("variable %s: %v", name, err)
		}
	}
	return nil
}

func writeDataVariable(f *cdf.File, v *Variable) error {
	begin := make([]int, len(v.Data.Shape))
	w := f.Writer(v.Def.Name, begin, v.Data.Shape)
	var vals interface{}
	if v.Def.float32Storage() {
		vals = float32sWithFill(v.Data.Elements, v.Def.MissVal)
	} else {
		vals = float64sWithFill(v.Data.Elements, v.Def.MissVal)
	}
	_, err := w.Write(vals)
	return err
}

// float32sWithFill converts values to 32-bit floats, substituting fill for
// NaN.
func float32sWithFill(values []float64, fill float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = float32(fill)
		} else {
			out[i] = float32(v)
		}
	}
	return out
}

// float64sWithFill copies values, substituting fill for NaN.
func float64sWithFill(values []float64, fill float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fill
		} else {
			out[i] = v
		}
	}
	return out
}
