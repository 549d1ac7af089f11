package registry

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownVariable = errors.New("registry: unknown variable")
	ErrUnknownSetting  = errors.New("registry: unknown setting")
	ErrUnknownFlag     = errors.New("registry: unknown flag")
	ErrOutOfRange      = errors.New("registry: value out of range")
)

// NumType describes the raw wire representation of a value.
type NumType struct {
	Signed bool
	Bits   uint8
}

var (
	U16 = NumType{Signed: false, Bits: 16}
	S16 = NumType{Signed: true, Bits: 16}
)

// span returns the representable raw range, inclusive.
func (t NumType) span() (min, max int64) {
	if t.Signed {
		return -(1 << (t.Bits - 1)), 1<<(t.Bits-1) - 1
	}
	return 0, 1<<t.Bits - 1
}

// VariableInfo is the static record for one runtime RAM variable.
// Scaled value = raw*Scale + Offset.
type VariableInfo struct {
	ID     uint8
	Name   string
	Type   NumType
	Scale  float64
	Offset float64
	Unit   string
	// Unverified marks entries whose scaling is not confirmed by the
	// protocol document or traces.
	Unverified bool
}

// SettingInfo is the static record for one persisted setting. Default,
// Minimum and Maximum are raw values; some information is lost scaling
// them, so they stay raw as the device reports them.
type SettingInfo struct {
	ID      uint16
	Name    string
	Type    NumType
	Scale   float64
	Offset  float64
	Unit    string
	Default uint16
	Minimum uint16
	Maximum uint16

	Unverified bool
}

// FlagInfo locates one boolean inside a setting acting as a bitmask.
// InvertedBit, when >= 0, names a companion bit in the same word the device
// requires to hold the complement; writers must maintain it.
type FlagInfo struct {
	Name        string
	SettingID   uint16
	Bit         uint8
	InvertedBit int8
}

// ToScaled converts a raw wire value to engineering units.
func (v VariableInfo) ToScaled(raw uint16) float64 {
	return float64(signedRaw(raw, v.Type))*v.Scale + v.Offset
}

// ToRaw converts an engineering value to the raw wire encoding, rounding to
// the nearest representable step. It fails with ErrOutOfRange before any
// value could reach the wire.
func (v VariableInfo) ToRaw(value float64) (uint16, error) {
	return toRaw(value, v.Scale, v.Offset, v.Type, nil)
}

// ToScaled converts a raw setting value to engineering units.
func (s SettingInfo) ToScaled(raw uint16) float64 {
	return float64(signedRaw(raw, s.Type))*s.Scale + s.Offset
}

// ToRaw converts an engineering value to the raw wire encoding, checking
// both the data type span and the setting's declared raw range.
func (s SettingInfo) ToRaw(value float64) (uint16, error) {
	bounds := [2]int64{int64(s.Minimum), int64(s.Maximum)}
	return toRaw(value, s.Scale, s.Offset, s.Type, &bounds)
}

func signedRaw(raw uint16, t NumType) int64 {
	if t.Signed {
		return int64(int16(raw))
	}
	return int64(raw)
}

func toRaw(value, scale, offset float64, t NumType, bounds *[2]int64) (uint16, error) {
	scaled := math.Round((value - offset) / scale)
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) {
		return 0, fmt.Errorf("%w: %v is not representable", ErrOutOfRange, value)
	}
	raw := int64(scaled)
	min, max := t.span()
	if raw < min || raw > max {
		return 0, fmt.Errorf("%w: %v maps to raw %d outside [%d, %d]", ErrOutOfRange, value, raw, min, max)
	}
	if bounds != nil && (raw < bounds[0] || raw > bounds[1]) {
		return 0, fmt.Errorf("%w: %v maps to raw %d outside setting range [%d, %d]",
			ErrOutOfRange, value, raw, bounds[0], bounds[1])
	}
	return uint16(raw), nil
}

// LookupVariable resolves a RAM variable by name.
func LookupVariable(name string) (VariableInfo, error) {
	v, ok := variablesByName[name]
	if !ok {
		return VariableInfo{}, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return v, nil
}

// VariableByID resolves a RAM variable by numeric id.
func VariableByID(id uint8) (VariableInfo, error) {
	v, ok := variablesByID[id]
	if !ok {
		return VariableInfo{}, fmt.Errorf("%w: id %d", ErrUnknownVariable, id)
	}
	return v, nil
}

// LookupSetting resolves a setting by name.
func LookupSetting(name string) (SettingInfo, error) {
	s, ok := settingsByName[name]
	if !ok {
		return SettingInfo{}, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	return s, nil
}

// SettingByID resolves a setting by numeric id.
func SettingByID(id uint16) (SettingInfo, error) {
	s, ok := settingsByID[id]
	if !ok {
		return SettingInfo{}, fmt.Errorf("%w: id %d", ErrUnknownSetting, id)
	}
	return s, nil
}

// LookupFlag resolves a flag bit by name.
func LookupFlag(name string) (FlagInfo, error) {
	f, ok := flagsByName[name]
	if !ok {
		return FlagInfo{}, fmt.Errorf("%w: %q", ErrUnknownFlag, name)
	}
	return f, nil
}

// Variables lists every known RAM variable ordered by id.
func Variables() []VariableInfo {
	out := make([]VariableInfo, 0, len(variablesByID))
	for _, v := range variablesByID {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Settings lists every known setting ordered by id.
func Settings() []SettingInfo {
	out := make([]SettingInfo, 0, len(settingsByID))
	for _, s := range settingsByID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Flags lists every known flag ordered by name.
func Flags() []FlagInfo {
	out := make([]FlagInfo, 0, len(flagsByName))
	for _, f := range flagsByName {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
