package monitor

import (
	"time"

	"github.com/tomjnixon/mk2go/internal/frames"
	"github.com/tomjnixon/mk2go/internal/vebus"
)

// Status is the cached JSON view served by /v1/status.
type Status struct {
	UpdatedAt time.Time         `json:"updated_at"`
	Version   string            `json:"version,omitempty"`
	DC        *DCView           `json:"dc,omitempty"`
	AC        *ACView           `json:"ac,omitempty"`
	LEDs      map[string]string `json:"leds,omitempty"`
	LastError string            `json:"last_error,omitempty"`
}

type DCView struct {
	Voltage         float64 `json:"voltage"`
	InverterCurrent float64 `json:"inverter_current"`
	ChargerCurrent  float64 `json:"charger_current"`
	InverterPeriod  float64 `json:"inverter_period"`
}

type ACView struct {
	Phase           uint8   `json:"phase"`
	NumPhases       uint8   `json:"num_phases,omitempty"`
	State           string  `json:"state"`
	MainsVoltage    float64 `json:"mains_voltage"`
	MainsCurrent    float64 `json:"mains_current"`
	InverterVoltage float64 `json:"inverter_voltage"`
	InverterCurrent float64 `json:"inverter_current"`
	MainsPeriod     float64 `json:"mains_period"`
}

func newDCView(dc *vebus.DCStatus) *DCView {
	return &DCView{
		Voltage:         dc.Voltage,
		InverterCurrent: dc.InverterCurrent,
		ChargerCurrent:  dc.ChargerCurrent,
		InverterPeriod:  dc.InverterPeriod,
	}
}

func newACView(ac *vebus.ACStatus) *ACView {
	return &ACView{
		Phase:           ac.Phase,
		NumPhases:       ac.NumPhases,
		State:           StateName(ac.State),
		MainsVoltage:    ac.MainsVoltage,
		MainsCurrent:    ac.MainsCurrent,
		InverterVoltage: ac.InverterVoltage,
		InverterCurrent: ac.InverterCurrent,
		MainsPeriod:     ac.MainsPeriod,
	}
}

var stateNames = map[frames.MainState]string{
	frames.StateDown:        "down",
	frames.StateStartup:     "startup",
	frames.StateOff:         "off",
	frames.StateSlave:       "slave",
	frames.StateInvertFull:  "invert_full",
	frames.StateInvertHalf:  "invert_half",
	frames.StateInvertAES:   "invert_aes",
	frames.StatePowerAssist: "power_assist",
	frames.StateBypass:      "bypass",
	frames.StateCharge:      "charge",
}

// StateName renders a device state for humans and JSON.
func StateName(s frames.MainState) string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

var ledNames = []struct {
	led  frames.LED
	name string
}{
	{frames.LEDMains, "mains"},
	{frames.LEDAbsorption, "absorption"},
	{frames.LEDBulk, "bulk"},
	{frames.LEDFloat, "float"},
	{frames.LEDInverter, "inverter"},
	{frames.LEDOverload, "overload"},
	{frames.LEDLowBattery, "low_battery"},
	{frames.LEDTemperature, "temperature"},
}

var ledStateNames = map[frames.LEDState]string{
	frames.LEDOff:            "off",
	frames.LEDOn:             "on",
	frames.LEDBlink:          "blink",
	frames.LEDBlinkAntiphase: "blink_antiphase",
}

func newLEDView(r *frames.LEDStatusReply) map[string]string {
	if !r.Known {
		return nil
	}
	out := make(map[string]string, len(ledNames))
	for _, l := range ledNames {
		out[l.name] = ledStateNames[r.State(l.led)]
	}
	return out
}
