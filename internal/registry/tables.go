package registry

// Variable ids used elsewhere in the module.
const (
	VarUBat           uint8 = 4
	VarIBat           uint8 = 5
	VarUMainsRMS      uint8 = 0
	VarIMainsRMS      uint8 = 1
	VarUInverterRMS   uint8 = 2
	VarIInverterRMS   uint8 = 3
	VarInverterPeriod uint8 = 7
	VarMainsPeriod    uint8 = 8
)

// Setting ids used elsewhere in the module.
const (
	SettingFlags0 uint16 = 0
	SettingFlags1 uint16 = 1
)

var variables = []VariableInfo{
	{ID: 0, Name: "u_mains_rms", Type: U16, Scale: 0.01, Unit: "V"},
	{ID: 1, Name: "i_mains_rms", Type: S16, Scale: 0.01, Unit: "A"},
	{ID: 2, Name: "u_inverter_rms", Type: U16, Scale: 0.01, Unit: "V"},
	{ID: 3, Name: "i_inverter_rms", Type: S16, Scale: 0.01, Unit: "A"},
	{ID: 4, Name: "u_bat", Type: U16, Scale: 0.01, Unit: "V"},
	{ID: 5, Name: "i_bat", Type: S16, Scale: 0.005, Unit: "A"},
	{ID: 6, Name: "u_bat_rms", Type: U16, Scale: 0.01, Unit: "V"},
	{ID: 7, Name: "inverter_period", Type: U16, Scale: 0.1, Unit: "us"},
	{ID: 8, Name: "mains_period", Type: U16, Scale: 0.1, Unit: "us"},
	{ID: 9, Name: "signed_ac_load_current", Type: S16, Scale: 0.01, Unit: "A"},
	{ID: 10, Name: "virtual_switch_position", Type: U16, Scale: 1},
	{ID: 11, Name: "ignore_ac_input", Type: U16, Scale: 1},
	{ID: 12, Name: "multi_functional_relay_state", Type: U16, Scale: 1},
	{ID: 13, Name: "charge_state", Type: U16, Scale: 0.005},
	// power through the inverter, towards the battery (+ve charging);
	// includes pass-through inefficiency, so it does not always match the
	// charge current
	{ID: 14, Name: "inverter_power", Type: S16, Scale: 1, Unit: "W"},
	// power through the AC input, towards the input (-ve consuming)
	{ID: 15, Name: "input_power", Type: S16, Scale: 1, Unit: "W"},
	// power through the AC output, towards the output (+ve load)
	{ID: 16, Name: "output_power", Type: S16, Scale: 1, Unit: "W"},
	{ID: 17, Name: "inverter_power_unfiltered", Type: S16, Scale: 1, Unit: "W"},
	{ID: 18, Name: "input_power_unfiltered", Type: S16, Scale: 1, Unit: "W"},
	{ID: 19, Name: "output_power_unfiltered", Type: S16, Scale: 1, Unit: "W"},
	// present on the device but absent from the document; unit unknown
	{ID: 21, Name: "bat_temperature", Type: S16, Scale: 1, Unverified: true},
}

var settings = []SettingInfo{
	// the flag words; use the flag operations instead of writing these
	// directly
	{ID: 0, Name: "flags0", Type: U16, Scale: 1, Minimum: 0, Maximum: 0xFFFF},
	{ID: 1, Name: "flags1", Type: U16, Scale: 1, Minimum: 0, Maximum: 0xFFFF},
	{ID: 4, Name: "i_bat_bulk", Type: U16, Scale: 0.1, Unit: "A", Default: 700, Minimum: 0, Maximum: 2500},
	{ID: 15, Name: "vs_usage", Type: U16, Scale: 1, Default: 0, Minimum: 0, Maximum: 5},
	{ID: 28, Name: "vs_off_i_inv_low", Type: U16, Scale: 0.1, Unit: "A", Default: 0, Minimum: 0, Maximum: 1000},
	{ID: 31, Name: "vs_t_off_i_inv_low", Type: U16, Scale: 1, Unit: "s", Default: 0, Minimum: 0, Maximum: 3600},
	// lower ignore-AC limits used with dedicated ignore AC input
	{ID: 56, Name: "vs2_off_i_load_low", Type: U16, Scale: 0.1, Unit: "A", Default: 0, Minimum: 0, Maximum: 1000},
	{ID: 57, Name: "vs2_t_off_i_load_low", Type: U16, Scale: 1, Unit: "s", Default: 0, Minimum: 0, Maximum: 3600},
	{ID: 58, Name: "vs2_off_u_bat_high", Type: U16, Scale: 0.01, Unit: "V", Default: 0, Minimum: 0, Maximum: 4000},
	{ID: 64, Name: "bat_capacity", Type: U16, Scale: 1, Unit: "Ah", Default: 200, Minimum: 0, Maximum: 10000},
	{ID: 65, Name: "bat_soc_bulk_end", Type: U16, Scale: 1, Unit: "%", Default: 95, Minimum: 0, Maximum: 100},
	// set by the vendor configuration tool, not in the document
	{ID: 70, Name: "vs_soc_limit_percent", Type: U16, Scale: 1, Unit: "%", Default: 50, Minimum: 0, Maximum: 100, Unverified: true},
}

var flags = []FlagInfo{
	// the device keeps an inverted copy of the wave-check flag in bit 7;
	// writes must update both or it rejects the word
	{Name: "disable_wave_check", SettingID: 0, Bit: 3, InvertedBit: 7},
	{Name: "disable_charge", SettingID: 0, Bit: 6, InvertedBit: -1},
}

var (
	variablesByID   = make(map[uint8]VariableInfo, len(variables))
	variablesByName = make(map[string]VariableInfo, len(variables))
	settingsByID    = make(map[uint16]SettingInfo, len(settings))
	settingsByName  = make(map[string]SettingInfo, len(settings))
	flagsByName     = make(map[string]FlagInfo, len(flags))
)

func init() {
	for _, v := range variables {
		variablesByID[v.ID] = v
		variablesByName[v.Name] = v
	}
	for _, s := range settings {
		settingsByID[s.ID] = s
		settingsByName[s.Name] = s
	}
	for _, f := range flags {
		flagsByName[f.Name] = f
	}
}
