// Command codec converts between air conditioner settings, AEHA hex and raw
// mark/space waveforms.
//
//	codec encode -power on -mode cool -temp 26 [-format Panasonic|AEHA] [-json]
//	codec decode -f codes.json [-unit 425]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/derktes/ir-signal-codec/aeha"
	"github.com/derktes/ir-signal-codec/config"
	"github.com/derktes/ir-signal-codec/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: codec encode|decode [flags]")
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		usage(stderr)
		return errors.New("no subcommand given")
	}
	switch args[0] {
	case "encode":
		return encode(args[1:], stdout, stderr)
	case "decode":
		return decode(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown subcommand '%s'", args[0])
	}
}

type encodeOutput struct {
	Format   aeha.Format `json:"format"`
	Hex      aeha.Hex    `json:"hex"`
	Waveform []int       `json:"waveform"`
}

func encode(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("encode", flag.ContinueOnError)
	flags.SetOutput(stderr)
	power := flags.String("power", "on", "on or off")
	mode := flags.String("mode", "auto", "auto, fan, dry, cool or heat")
	temp := flags.Int("temp", 25, "temperature in °C, 16 to 30")
	strength := flags.String("strength", "auto", "fan strength: 1-4, auto or quiet")
	direction := flags.String("direction", "auto", "vane direction: 1-5 or auto")
	powerful := flags.String("powerful", "off", "powerful mode, on or off")
	format := flags.String("format", "Panasonic", "frame layout, Panasonic or AEHA")
	unit := flags.Int("unit", aeha.DefaultUnit, "unit time T in microseconds")
	repeat := flags.Int("repeat", 1, "number of times the transmission repeats, at most 32")
	asJSON := flags.Bool("json", false, "print a JSON object instead of the bare waveform")
	if err := flags.Parse(args); err != nil {
		return err
	}

	f, err := aeha.ParseFormat(*format)
	if err != nil {
		return err
	}
	h, err := aeha.EncodePanasonic(aeha.Message{
		Power:       aeha.Switch(*power),
		Mode:        aeha.Mode(*mode),
		Temperature: *temp,
		Strength:    aeha.Strength(*strength),
		Direction:   aeha.Direction(*direction),
		Powerful:    aeha.Switch(*powerful),
	})
	if err != nil {
		return err
	}
	wave, err := aeha.Waveform(f, h, *unit, *repeat)
	if err != nil {
		return err
	}

	if *asJSON {
		out, err := json.Marshal(encodeOutput{Format: f, Hex: h, Waveform: wave.Ints()})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", out)
		return nil
	}
	values := make([]string, len(wave))
	for i, v := range wave.Ints() {
		values[i] = strconv.Itoa(v)
	}
	fmt.Fprintln(stdout, "["+strings.Join(values, ", ")+"]")
	return nil
}

func decode(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("decode", flag.ContinueOnError)
	flags.SetOutput(stderr)
	file := flags.String("f", "codes.json", "signal database to decode")
	backend := flags.String("backend", config.BackendJSON, "store backend, json or badger")
	unit := flags.Int("unit", aeha.DefaultUnit, "unit time T in microseconds")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *unit <= 0 {
		return fmt.Errorf("unit time must be positive, got %d", *unit)
	}

	log := config.LoggingConfig{Level: "warn", Format: "text"}.NewLogger(stderr)
	st, err := store.Open(config.StoreConfig{Backend: *backend, Path: *file}, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if *backend == config.BackendJSON {
		if _, err := os.Stat(*file); err != nil {
			return err
		}
	}
	db, err := st.Load(context.Background())
	if err != nil {
		return err
	}
	for _, res := range aeha.DecodeAll(db, *unit) {
		fmt.Fprintln(stdout, res)
	}
	return nil
}
