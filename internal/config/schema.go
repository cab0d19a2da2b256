package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/csiro-hydroinformatics/efts-io/conventions"
	"github.com/csiro-hydroinformatics/efts-io/efts"
	"github.com/csiro-hydroinformatics/efts-io/internal/cftime"
)

// Schema describes a data set to be created: the stations, axes and
// variables, plus the file-level attributes.
type Schema struct {
	Title       string `yaml:"title"`
	Institution string `yaml:"institution"`
	Source      string `yaml:"source"`
	Catchment   string `yaml:"catchment"`
	Comment     string `yaml:"comment"`

	Stations     []StationSchema  `yaml:"stations"`
	IssueTimes   TimeAxisSchema   `yaml:"issue_times"`
	LeadTimes    LeadTimeSchema   `yaml:"lead_times"`
	EnsembleSize int              `yaml:"ensemble_size"`
	Variables    []VariableSchema `yaml:"variables"`
}

// StationSchema describes one station. Area is optional.
type StationSchema struct {
	ID   int32    `yaml:"id"`
	Name string   `yaml:"name"`
	Lat  float64  `yaml:"lat"`
	Lon  float64  `yaml:"lon"`
	Area *float64 `yaml:"area"`
}

// TimeAxisSchema describes a regular time axis: Count instants Step apart
// starting at Start.
type TimeAxisSchema struct {
	Start time.Time `yaml:"start"`
	Count int       `yaml:"count"`
	Step  string    `yaml:"step"`
}

// LeadTimeSchema describes the lead time axis. Values wins when given;
// otherwise Count offsets starting at First, one Step apart.
type LeadTimeSchema struct {
	Values []float64 `yaml:"values"`
	Count  int       `yaml:"count"`
	First  float64   `yaml:"first"`
	Step   string    `yaml:"step"`
}

// VariableSchema describes one data variable. Kind is the number of
// dimensions: 2 for a point series, 3 for an ensemble series, 4 for an
// ensemble forecast.
type VariableSchema struct {
	Name      string `yaml:"name"`
	LongName  string `yaml:"long_name"`
	Units     string `yaml:"units"`
	Precision string `yaml:"precision"`
	Kind      int    `yaml:"kind"`
}

// LoadSchema parses a data set schema from a YAML file.
func LoadSchema(path string) (*Schema, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var s Schema
	if err := yaml.Unmarshal(yamlData, &s); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &s, nil
}

// Dataset builds an empty data set, every data variable filled with NaN.
func (s *Schema) Dataset() (*efts.Dataset, error) {
	if len(s.Stations) == 0 {
		return nil, fmt.Errorf("config: schema has no stations")
	}
	if s.IssueTimes.Count <= 0 {
		return nil, fmt.Errorf("config: issue_times.count must be positive")
	}

	step := s.IssueTimes.Step
	if step == "" {
		step = "days"
	}
	d, err := cftime.StepDuration(step)
	if err != nil {
		return nil, err
	}
	issueTimes := make([]time.Time, s.IssueTimes.Count)
	for i := range issueTimes {
		issueTimes[i] = s.IssueTimes.Start.Add(time.Duration(i) * d)
	}

	ids := make([]int32, len(s.Stations))
	names := make([]string, len(s.Stations))
	lat := make([]float64, len(s.Stations))
	lon := make([]float64, len(s.Stations))
	var areas []float64
	for _, st := range s.Stations {
		if st.Area != nil {
			areas = make([]float64, len(s.Stations))
			break
		}
	}
	for i, st := range s.Stations {
		ids[i] = st.ID
		names[i] = st.Name
		lat[i] = st.Lat
		lon[i] = st.Lon
		if areas != nil {
			areas[i] = math.NaN()
			if st.Area != nil {
				areas[i] = *st.Area
			}
		}
	}

	leadStep := s.LeadTimes.Step
	if leadStep == "" {
		leadStep = "hours"
	}
	leadTimes := s.LeadTimes.Values
	if leadTimes == nil {
		n := s.LeadTimes.Count
		if n <= 0 {
			n = 1
		}
		leadTimes = make([]float64, n)
		for i := range leadTimes {
			leadTimes[i] = s.LeadTimes.First + float64(i)
		}
	}

	size := s.EnsembleSize
	if size <= 0 {
		size = 1
	}

	attrs := efts.DefaultGlobalAttributes()
	if s.Title != "" {
		attrs.Title = s.Title
	}
	if s.Institution != "" {
		attrs.Institution = s.Institution
	}
	if s.Source != "" {
		attrs.Source = s.Source
	}
	if s.Catchment != "" {
		attrs.Catchment = s.Catchment
	}
	if s.Comment != "" {
		attrs.Comment = s.Comment
	}

	opts := []efts.Option{
		efts.WithStationNames(names),
		efts.WithCoordinates(lat, lon),
		efts.WithLeadTimes(leadTimes, leadStep),
		efts.WithEnsembleSize(size),
		efts.WithGlobalAttributes(attrs),
	}
	if areas != nil {
		opts = append(opts, efts.WithAreas(areas))
	}
	ds, err := efts.NewDataset(issueTimes, ids, opts...)
	if err != nil {
		return nil, err
	}

	for _, v := range s.Variables {
		def := efts.NewVariableDefinition(v.Name)
		if v.LongName != "" {
			def.LongName = v.LongName
		}
		if v.Units != "" {
			def.Units = v.Units
		}
		if v.Precision != "" {
			def.Precision = v.Precision
		}
		if v.Kind != 0 {
			def.Kind = conventions.VarKind(v.Kind)
		}
		if err := ds.CreateVariables(def); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
