package efts

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/cdf"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
	"github.com/csiro-hydroinformatics/efts-io/internal/cftime"
)

// Scanner retrieves the values of one data variable from an STF 2.0 file
// one issue time at a time, without loading the whole variable into memory.
type Scanner struct {
	nc         api.Group
	variable   string
	kind       conventions.VarKind
	fill       float64
	issueTimes []time.Time
	stationIDs []int32
	members    []int32
	leadTimes  []float64
	src        recordSource
	pos        int
	recs       []Record
	err        error
}

// recordSource reads the values of one record (one issue time) of a
// variable as a flat row-major slice.
type recordSource interface {
	read(pos int) ([]float64, error)
	close() error
}

// NewScanner creates a scanner over the named data variable of the file at
// filePath.
func NewScanner(filePath, variable string) (*Scanner, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	s, err := newScanner(nc, variable)
	if err != nil {
		nc.Close()
		return nil, err
	}
	// The generic getter cannot slice record variables of classic-format
	// files past the first record, so those go through a dedicated reader.
	classic, err := hasClassicMagic(filePath)
	if err != nil {
		nc.Close()
		return nil, err
	}
	if classic {
		src, err := newClassicSource(filePath, variable, s.recordExtents())
		if err != nil {
			nc.Close()
			return nil, err
		}
		s.src = src
	}
	return s, nil
}

func newScanner(nc api.Group, variable string) (*Scanner, error) {
	if conventions.IsConventional(variable) {
		return nil, fmt.Errorf("efts: %s is not a data variable", variable)
	}
	s := &Scanner{nc: nc, variable: variable}

	tv, err := nc.GetVariable(conventions.TimeDim)
	if err != nil {
		return nil, err
	}
	units, ok := attrString(tv.Attributes, conventions.UnitsAttr)
	if !ok {
		return nil, fmt.Errorf("efts: variable %s has no units attribute", conventions.TimeDim)
	}
	tu, err := cftime.Parse(units)
	if err != nil {
		return nil, err
	}
	offsets, err := toFloat64s(tv.Values)
	if err != nil {
		return nil, fmt.Errorf("efts: variable %s: %v", conventions.TimeDim, err)
	}
	s.issueTimes, err = tu.Decode(offsets)
	if err != nil {
		return nil, err
	}

	iv, err := nc.GetVariable(conventions.StationIDVar)
	if err != nil {
		return nil, err
	}
	s.stationIDs, err = int32s(iv.Values)
	if err != nil {
		return nil, fmt.Errorf("efts: variable %s: %v", conventions.StationIDVar, err)
	}

	mv, err := nc.GetVariable(conventions.EnsMemberDim)
	if err != nil {
		return nil, err
	}
	s.members, err = int32s(mv.Values)
	if err != nil {
		return nil, fmt.Errorf("efts: variable %s: %v", conventions.EnsMemberDim, err)
	}

	lv, err := nc.GetVariable(conventions.LeadTimeDim)
	if err != nil {
		return nil, err
	}
	s.leadTimes, err = toFloat64s(lv.Values)
	if err != nil {
		return nil, fmt.Errorf("efts: variable %s: %v", conventions.LeadTimeDim, err)
	}

	vg, err := nc.GetVarGetter(variable)
	if err != nil {
		return nil, err
	}
	s.kind = conventions.VarKind(len(vg.Dimensions()))
	if !s.kind.Valid() {
		return nil, fmt.Errorf("efts: variable %s: unsupported rank %d", variable, len(vg.Dimensions()))
	}
	s.fill = conventions.DefaultFillValue
	if f, ok := attrFloat(vg.Attributes(), conventions.FillValueAttr); ok {
		s.fill = f
	}
	s.src = &getterSource{vg: vg, recLen: s.recordLen()}
	return s, nil
}

// recordExtents returns the per-record dimension lengths of the variable,
// the time dimension left out.
func (s *Scanner) recordExtents() []int {
	switch s.kind {
	case conventions.EnsembleSeries:
		return []int{len(s.members), len(s.stationIDs)}
	case conventions.EnsembleForecast:
		return []int{len(s.members), len(s.stationIDs), len(s.leadTimes)}
	}
	return []int{len(s.stationIDs)}
}

func (s *Scanner) recordLen() int {
	n := 1
	for _, e := range s.recordExtents() {
		n *= e
	}
	return n
}

// Close closes the scanner.
func (s *Scanner) Close() {
	s.src.close()
	s.nc.Close()
}

// Err returns the first error encountered by Scan.
func (s *Scanner) Err() error {
	return s.err
}

// Summary returns summary information about the variable being scanned,
// suitable for logging.
func (s *Scanner) Summary() []any {
	return []any{
		"variable", s.variable,
		"issueTimeCnt", len(s.issueTimes),
		"stationCnt", len(s.stationIDs),
		"memberCnt", s.memberCount(),
		"leadTimeCnt", s.leadTimeCount(),
		"totalRecCnt", s.TotalRecCount(),
	}
}

func (s *Scanner) memberCount() int {
	if s.kind == conventions.PointSeries {
		return 1
	}
	return len(s.members)
}

func (s *Scanner) leadTimeCount() int {
	if s.kind != conventions.EnsembleForecast {
		return 1
	}
	return len(s.leadTimes)
}

// TotalRecCount returns the total number of records in the variable.
func (s *Scanner) TotalRecCount() int {
	return len(s.issueTimes) * len(s.stationIDs) * s.memberCount() * s.leadTimeCount()
}

// Scan reads all records for the next issue time.
func (s *Scanner) Scan() bool {
	if s.pos >= len(s.issueTimes) || s.err != nil {
		return false
	}
	flat, err := s.src.read(s.pos)
	if err != nil {
		s.err = fmt.Errorf("efts: variable %s: %v", s.variable, err)
		return false
	}
	if len(flat) != s.recordLen() {
		s.err = fmt.Errorf("efts: variable %s: got %d values at issue time %d, want %d", s.variable, len(flat), s.pos, s.recordLen())
		return false
	}

	it := s.issueTimes[s.pos]
	s.recs = make([]Record, 0, len(flat))
	k := 0
	for m := 0; m < s.memberCount(); m++ {
		for _, id := range s.stationIDs {
			for l := 0; l < s.leadTimeCount(); l++ {
				val := flat[k]
				k++
				if val == s.fill {
					val = math.NaN()
				}
				rec := Record{IssueTime: it, StationID: id, Value: val}
				if s.kind != conventions.PointSeries {
					rec.Member = s.members[m]
				}
				if s.kind == conventions.EnsembleForecast {
					rec.LeadTime = s.leadTimes[l]
				}
				s.recs = append(s.recs, rec)
			}
		}
	}
	s.pos++
	return true
}

// Records returns the records read by the last Scan. Ownership transfers
// to the caller; calling Records again without another Scan returns nil.
func (s *Scanner) Records() []Record {
	recs := s.recs
	s.recs = nil
	return recs
}

// getterSource reads records through the generic netCDF API.
type getterSource struct {
	vg     api.VarGetter
	recLen int
}

func (g *getterSource) read(pos int) ([]float64, error) {
	v, err := g.vg.GetSlice(int64(pos), int64(pos)+1)
	if err != nil {
		return nil, err
	}
	return flattenFloats(v, make([]float64, 0, g.recLen))
}

func (g *getterSource) close() error { return nil }

// classicSource reads records of a classic-format (CDF) file.
type classicSource struct {
	ff       *os.File
	f        *cdf.File
	variable string
	extents  []int
	recLen   int
}

func newClassicSource(path, variable string, extents []int) (*classicSource, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, err
	}
	n := 1
	for _, e := range extents {
		n *= e
	}
	return &classicSource{ff: ff, f: f, variable: variable, extents: extents, recLen: n}, nil
}

func (c *classicSource) read(pos int) ([]float64, error) {
	begin := make([]int, len(c.extents)+1)
	end := make([]int, len(c.extents)+1)
	begin[0] = pos
	end[0] = pos + 1
	for i, e := range c.extents {
		end[i+1] = e
	}
	r := c.f.Reader(c.variable, begin, end)
	buf := r.Zero(c.recLen)
	// A read that exactly exhausts the requested range reports EOF.
	if _, err := r.Read(buf); err != nil && err != io.EOF {
		return nil, err
	}
	return toFloat64s(buf)
}

func (c *classicSource) close() error { return c.ff.Close() }

// hasClassicMagic reports whether the file at path is in the classic netCDF
// format rather than HDF5.
func hasClassicMagic(path string) (bool, error) {
	ff, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer ff.Close()
	var magic [3]byte
	if _, err := io.ReadFull(ff, magic[:]); err != nil {
		return false, err
	}
	return string(magic[:]) == "CDF", nil
}
