package conventions

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMissingNames(t *testing.T) {
	got := []string{"time", "station", "lead_time"}
	want := []string{"strLen", "ens_member"}
	if diff := cmp.Diff(want, MissingNames(got, MandatoryDimensions)); diff != "" {
		t.Errorf("missing dimensions mismatch (-want +got):\n%s", diff)
	}
	if m := MissingNames(MandatoryDimensions, MandatoryDimensions); m != nil {
		t.Errorf("expected nothing missing, got %v", m)
	}
}

func TestCheckDimensions(t *testing.T) {
	if err := CheckDimensions(MandatoryDimensions); err != nil {
		t.Errorf("mandatory dimensions rejected: %v", err)
	}
	err := CheckDimensions([]string{TimeDim, StationDim})
	if err == nil {
		t.Fatal("expected an error for incomplete dimensions")
	}
}

func TestCheckGlobalAttributes(t *testing.T) {
	if err := CheckGlobalAttributes(MandatoryGlobalAttributes); err != nil {
		t.Errorf("mandatory attributes rejected: %v", err)
	}
	if err := CheckGlobalAttributes([]string{TitleAttr}); err == nil {
		t.Fatal("expected an error for incomplete attributes")
	}
}

func TestVarKindDims(t *testing.T) {
	cases := []struct {
		kind VarKind
		want []string
	}{
		{PointSeries, []string{"time", "station"}},
		{EnsembleSeries, []string{"time", "ens_member", "station"}},
		{EnsembleForecast, []string{"time", "ens_member", "station", "lead_time"}},
		{VarKind(5), nil},
	}
	for _, c := range cases {
		if diff := cmp.Diff(c.want, c.kind.Dims()); diff != "" {
			t.Errorf("kind %d dims mismatch (-want +got):\n%s", c.kind, diff)
		}
	}
	if VarKind(5).Valid() {
		t.Error("kind 5 should not be valid")
	}
}

func TestIsConventional(t *testing.T) {
	if !IsConventional(StationIDVar) {
		t.Errorf("%s should be conventional", StationIDVar)
	}
	if IsConventional("rain_fcast_ens") {
		t.Error("data variable names should not be conventional")
	}
}
