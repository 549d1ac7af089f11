package registry

import (
	"errors"
	"math"
	"testing"
)

func TestLookupVariable(t *testing.T) {
	v, err := LookupVariable("u_bat")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if v.ID != VarUBat || v.Scale != 0.01 {
		t.Fatalf("unexpected info %+v", v)
	}

	byID, err := VariableByID(VarUBat)
	if err != nil {
		t.Fatalf("lookup by id: %v", err)
	}
	if byID.Name != "u_bat" {
		t.Fatalf("id lookup disagrees with name lookup: %+v", byID)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := LookupVariable("u_flux_capacitor"); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected ErrUnknownVariable, got %v", err)
	}
	if _, err := LookupSetting("nope"); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
	if _, err := LookupFlag("nope"); !errors.Is(err, ErrUnknownFlag) {
		t.Fatalf("expected ErrUnknownFlag, got %v", err)
	}
	if _, err := SettingByID(9999); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}

func TestScaledValue(t *testing.T) {
	v, _ := VariableByID(VarIBat)
	if got := v.ToScaled(98); got != 0.49 {
		t.Fatalf("scaling: got %v want 0.49", got)
	}
	// signed variables sign-extend the raw value
	if got := v.ToScaled(0xFFFF); got != -0.005 {
		t.Fatalf("signed scaling: got %v want -0.005", got)
	}
}

func TestScalingRoundTrip(t *testing.T) {
	for _, v := range Variables() {
		min, max := int64(0), int64(0xFFFF)
		if v.Type.Signed {
			min, max = -0x8000, 0x7FFF
		}
		for _, raw := range []int64{min, min / 2, 0, 42, max / 2, max} {
			wire := uint16(raw)
			back, err := v.ToRaw(v.ToScaled(wire))
			if err != nil {
				t.Fatalf("%s: raw %d: %v", v.Name, raw, err)
			}
			if back != wire {
				t.Fatalf("%s: round trip %d -> %d", v.Name, wire, back)
			}
		}
	}
}

func TestToRawOutOfRange(t *testing.T) {
	v, _ := LookupVariable("u_bat") // unsigned, scale 0.01
	if _, err := v.ToRaw(-1.0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for negative unsigned, got %v", err)
	}
	if _, err := v.ToRaw(656.0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange above span, got %v", err)
	}

	i, _ := LookupVariable("i_bat") // signed
	if _, err := i.ToRaw(1000.0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange above signed span, got %v", err)
	}
	if _, err := i.ToRaw(math.NaN()); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for NaN, got %v", err)
	}
}

func TestSettingRangeCheck(t *testing.T) {
	s, err := LookupSetting("bat_soc_bulk_end") // raw range 0..100
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	raw, err := s.ToRaw(95)
	if err != nil || raw != 95 {
		t.Fatalf("in-range conversion failed: raw=%d err=%v", raw, err)
	}
	if _, err := s.ToRaw(101); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange beyond setting max, got %v", err)
	}
}

func TestToRawRounding(t *testing.T) {
	v, _ := LookupVariable("u_bat")
	raw, err := v.ToRaw(12.804) // 1280.4 -> 1280
	if err != nil {
		t.Fatalf("conversion: %v", err)
	}
	if raw != 1280 {
		t.Fatalf("rounding: got %d want 1280", raw)
	}
}

func TestFlagTable(t *testing.T) {
	f, err := LookupFlag("disable_wave_check")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if f.SettingID != SettingFlags0 || f.Bit != 3 || f.InvertedBit != 7 {
		t.Fatalf("unexpected flag info %+v", f)
	}
	if len(Flags()) == 0 || len(Variables()) == 0 || len(Settings()) == 0 {
		t.Fatalf("enumerations must not be empty")
	}
}
