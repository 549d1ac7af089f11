// mk2ctl is a one-shot CLI for reading and writing device variables,
// settings and flags over the serial interface.
//
// Examples:
//
//	mk2ctl -list
//	mk2ctl -device /dev/ttyUSB0 -get u_bat
//	mk2ctl -device /dev/ttyUSB0 -setting -set i_bat_bulk=55
//	mk2ctl -device /dev/ttyUSB0 -flag disable_charge=on -ram-only
//	mk2ctl -device /dev/ttyUSB0 -status
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/tomjnixon/mk2go/internal/frames"
	"github.com/tomjnixon/mk2go/internal/logging"
	"github.com/tomjnixon/mk2go/internal/monitor"
	"github.com/tomjnixon/mk2go/internal/registry"
	"github.com/tomjnixon/mk2go/internal/vebus"
)

type options struct {
	device  string
	baud    int
	address uint
	timeout time.Duration
	retries int
	ramOnly bool
	setting bool

	list    bool
	get     string
	set     string
	flagOp  string
	info    string
	status  bool
	version bool
	reset   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.device, "device", "/dev/ttyUSB0", "serial device")
	flag.IntVar(&opts.baud, "baud", 2400, "baud rate")
	flag.UintVar(&opts.address, "address", 0, "device address on the bus")
	flag.DurationVar(&opts.timeout, "timeout", 500*time.Millisecond, "per-attempt reply timeout")
	flag.IntVar(&opts.retries, "retries", 3, "resend budget per exchange")
	flag.BoolVar(&opts.ramOnly, "ram-only", false, "make setting writes volatile")
	flag.BoolVar(&opts.setting, "setting", false, "operate on a setting instead of a variable")
	flag.BoolVar(&opts.list, "list", false, "print the known variables, settings and flags")
	flag.StringVar(&opts.get, "get", "", "read NAME")
	flag.StringVar(&opts.set, "set", "", "write NAME=VALUE")
	flag.StringVar(&opts.flagOp, "flag", "", "set NAME=on|off")
	flag.StringVar(&opts.info, "info", "", "query the device's own scaling info for NAME (or a numeric id)")
	flag.BoolVar(&opts.status, "status", false, "print a DC/AC/LED snapshot")
	flag.BoolVar(&opts.version, "version", false, "print the interface version")
	flag.BoolVar(&opts.reset, "reset", false, "restart the device")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "mk2ctl: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.list {
		printCatalog()
		return nil
	}
	if opts.get == "" && opts.set == "" && opts.flagOp == "" && opts.info == "" &&
		!opts.status && !opts.version && !opts.reset {
		return errors.New("nothing to do; see -help")
	}

	log := logging.ConfigureRuntime("mk2ctl")

	port, err := serial.Open(opts.device, &serial.Mode{BaudRate: opts.baud})
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.device, err)
	}
	conn := vebus.NewConnection(port, vebus.Config{
		ReplyTimeout: opts.timeout,
		Retries:      opts.retries,
	}, log)
	conn.Start()
	defer conn.Close()

	ctx := context.Background()
	sess := vebus.NewSession(conn, byte(opts.address), log)
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	switch {
	case opts.get != "":
		return doGet(ctx, sess, opts)
	case opts.set != "":
		return doSet(ctx, sess, opts)
	case opts.flagOp != "":
		return doFlag(ctx, sess, opts)
	case opts.info != "":
		return doInfo(ctx, sess, opts)
	case opts.status:
		return doStatus(ctx, sess)
	case opts.version:
		v, err := sess.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("version %08x mode %d\n", v.Version, v.Mode)
		return nil
	case opts.reset:
		return sess.Reset(uint32(opts.address))
	}
	return nil
}

func printCatalog() {
	fmt.Println("variables:")
	for _, v := range registry.Variables() {
		printEntry(uint16(v.ID), v.Name, v.Unit, v.Unverified)
	}
	fmt.Println("settings:")
	for _, s := range registry.Settings() {
		printEntry(s.ID, s.Name, s.Unit, s.Unverified)
	}
	fmt.Println("flags:")
	for _, f := range registry.Flags() {
		fmt.Printf("  %-28s setting %d bit %d\n", f.Name, f.SettingID, f.Bit)
	}
}

func printEntry(id uint16, name, unit string, unverified bool) {
	suffix := ""
	if unverified {
		suffix = " (unverified)"
	}
	if unit != "" {
		suffix = " [" + unit + "]" + suffix
	}
	fmt.Printf("  %3d %s%s\n", id, name, suffix)
}

func doGet(ctx context.Context, sess *vebus.Session, opts options) error {
	var value float64
	var unit string
	var err error
	if opts.setting {
		var info registry.SettingInfo
		if info, err = registry.LookupSetting(opts.get); err != nil {
			return err
		}
		unit = info.Unit
		value, err = sess.GetSetting(ctx, opts.get)
	} else {
		var info registry.VariableInfo
		if info, err = registry.LookupVariable(opts.get); err != nil {
			return err
		}
		unit = info.Unit
		value, err = sess.GetRAMVar(ctx, opts.get)
	}
	if err != nil {
		return err
	}
	if unit != "" {
		fmt.Printf("%s = %g %s\n", opts.get, value, unit)
	} else {
		fmt.Printf("%s = %g\n", opts.get, value)
	}
	return nil
}

func doSet(ctx context.Context, sess *vebus.Session, opts options) error {
	name, raw, ok := strings.Cut(opts.set, "=")
	if !ok {
		return fmt.Errorf("-set wants NAME=VALUE, got %q", opts.set)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	if opts.setting {
		return sess.SetSetting(ctx, name, value, opts.ramOnly)
	}
	return sess.SetRAMVar(ctx, name, value)
}

func doFlag(ctx context.Context, sess *vebus.Session, opts options) error {
	name, state, ok := strings.Cut(opts.flagOp, "=")
	if !ok {
		return fmt.Errorf("-flag wants NAME=on|off, got %q", opts.flagOp)
	}
	var enabled bool
	switch state {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("-flag wants on or off, got %q", state)
	}
	return sess.SetFlag(ctx, name, enabled, opts.ramOnly)
}

func doInfo(ctx context.Context, sess *vebus.Session, opts options) error {
	id, err := resolveInfoID(opts)
	if err != nil {
		return err
	}
	if opts.setting {
		info, err := sess.SettingDeviceInfo(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("setting %d: scale %g offset %d default %d range %d..%d access %d\n",
			id, info.Scale, info.Offset, info.Default, info.Minimum, info.Maximum, info.AccessLevel)
		return nil
	}
	info, err := sess.VariableDeviceInfo(ctx, id)
	if err != nil {
		return err
	}
	if info.IsBit {
		fmt.Printf("variable %d: bit %d\n", id, info.Bit)
		return nil
	}
	fmt.Printf("variable %d: scale %g offset %d signed %v\n", id, info.Scale, info.Offset, info.Signed)
	return nil
}

func resolveInfoID(opts options) (uint16, error) {
	if opts.setting {
		if info, err := registry.LookupSetting(opts.info); err == nil {
			return info.ID, nil
		}
	} else {
		if info, err := registry.LookupVariable(opts.info); err == nil {
			return uint16(info.ID), nil
		}
	}
	id, err := strconv.ParseUint(opts.info, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("-info wants a registry name or numeric id, got %q", opts.info)
	}
	return uint16(id), nil
}

func doStatus(ctx context.Context, sess *vebus.Session) error {
	dc, err := sess.DCStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("dc: %.2f V, inverter %.2f A, charger %.2f A\n",
		dc.Voltage, dc.InverterCurrent, dc.ChargerCurrent)

	ac, err := sess.ACStatus(ctx, frames.L1Info)
	if err != nil {
		return err
	}
	fmt.Printf("ac L%d (%s): mains %.2f V %.2f A, inverter %.2f V %.2f A\n",
		ac.Phase, monitor.StateName(ac.State), ac.MainsVoltage, ac.MainsCurrent,
		ac.InverterVoltage, ac.InverterCurrent)

	leds, err := sess.LEDStatus(ctx)
	if err != nil {
		return err
	}
	if !leds.Known {
		fmt.Println("leds: unknown")
		return nil
	}
	fmt.Printf("leds: on %08b blink %08b\n", leds.On, leds.Blink)
	return nil
}
