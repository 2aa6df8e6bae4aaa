// Package collector records IR commands from a receiver into the signal
// database.
package collector

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tarm/serial"

	"github.com/derktes/ir-signal-codec/config"
	"github.com/derktes/ir-signal-codec/pulse"
	"github.com/derktes/ir-signal-codec/store"
)

type flagSet struct {
	configFile  *string
	serialPort  *string
	baudRate    *int
	inputFile   *string
	dbFile      *string
	serverURL   *string
	collectorID *string
	noConfirm   *bool
	tolerance   *float64
	short       *int
	ids         []string
}

func (fs *flagSet) parse(args []string, output io.Writer) error {
	flags := flag.NewFlagSet("collector", flag.ContinueOnError)
	flags.SetOutput(output)
	fs.configFile = flags.String("config", "", "Specifies a YAML configuration file")
	fs.serialPort = flags.String("serial", "", "Specifies the serial port in the form /dev/xxx")
	fs.baudRate = flags.Int("baud", 0, "Specifies the baud rate of the serial port")
	fs.inputFile = flags.String("in", "", "Reads captures from a file instead of the serial port, - for stdin")
	fs.dbFile = flags.String("f", "", "Specifies the signal database path")
	fs.serverURL = flags.String("server", "", "Publishes confirmed signals to this server instead of the local database")
	fs.collectorID = flags.String("collectorId", "", "Specifies the id of this instance of collector")
	fs.noConfirm = flags.Bool("no-confirm", false, "Accepts the first capture of each command")
	fs.tolerance = flags.Float64("tolerance", -1, "Overrides the tolerance percentage")
	fs.short = flags.Int("short", -1, "Overrides the short code threshold")
	flags.Usage = func() {
		fmt.Fprintln(output, "Usage: collector [flags] id...")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	fs.ids = flags.Args()
	if len(fs.ids) < 1 {
		flags.Usage()
		return errors.New("no command ids given")
	}
	return nil
}

// apply layers the command line over the file configuration.
func (fs *flagSet) apply(cfg *config.Config) {
	if *fs.serialPort != "" {
		cfg.Serial.Port = *fs.serialPort
	}
	if *fs.baudRate > 0 {
		cfg.Serial.Baud = *fs.baudRate
	}
	if *fs.dbFile != "" {
		cfg.Store.Path = *fs.dbFile
	}
	if *fs.serverURL != "" {
		cfg.Server.PublishURL = *fs.serverURL
	}
	if *fs.noConfirm {
		cfg.Record.Confirm = false
	}
	if *fs.tolerance >= 0 {
		cfg.Tolerance = *fs.tolerance
	}
	if *fs.short >= 0 {
		cfg.Record.Short = *fs.short
	}
}

// Start runs one recording session: it prompts for every id given on the
// command line, then hands the confirmed signals to the local database or to
// the server.
func Start(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var collectorFlag flagSet
	if err := collectorFlag.parse(args, stderr); err != nil {
		return err
	}

	cfg := config.Default()
	if *collectorFlag.configFile != "" {
		var err error
		if cfg, err = config.Load(*collectorFlag.configFile); err != nil {
			return err
		}
	}
	collectorFlag.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := cfg.Logging.NewLogger(stderr)

	input, closeInput, err := openInput(*collectorFlag.inputFile, cfg.Serial, stdin, log)
	if err != nil {
		return err
	}
	defer closeInput()

	source := NewLineSource(input, log)
	defer source.Close()

	sink, closeSink, err := openSink(cfg, *collectorFlag.collectorID, log)
	if err != nil {
		return err
	}
	defer closeSink()

	rec := NewRecorder(source, cfg.ToleranceWindow(), stdout, log)
	rec.Confirm = cfg.Record.Confirm
	rec.Retries = cfg.Record.Retries
	rec.Short = cfg.Record.Short
	rec.AttemptTimeout = cfg.Record.AttemptTimeout

	return Run(ctx, rec, sink, collectorFlag.ids, log)
}

// Run records ids and commits whatever was confirmed, even when the session
// ends early.
func Run(ctx context.Context, rec *Recorder, sink Sink, ids []string, log *slog.Logger) error {
	recorded, recErr := rec.RecordAll(ctx, ids)
	if len(recorded) == 0 {
		if recErr != nil {
			return recErr
		}
		return errors.New("collector: nothing recorded")
	}

	// commit even if the session was interrupted
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := sink.Commit(commitCtx, recorded); err != nil {
		return errors.Join(recErr, err)
	}
	log.Info("Recording session committed", "commands", len(recorded), "requested", len(ids))
	if errors.Is(recErr, io.EOF) {
		return nil
	}
	return recErr
}

func openInput(inputFile string, sc config.SerialConfig, stdin io.Reader, log *slog.Logger) (io.Reader, func(), error) {
	switch inputFile {
	case "-":
		return stdin, func() {}, nil
	case "":
	default:
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("collector: %w", err)
		}
		return f, func() { f.Close() }, nil
	}

	if _, err := os.Stat(sc.Port); err != nil {
		return nil, nil, fmt.Errorf("collector: checking serial port: %w", err)
	}
	port, err := serial.OpenPort(&serial.Config{Name: sc.Port, Baud: sc.Baud})
	if err != nil {
		return nil, nil, fmt.Errorf("collector: opening serial port: %w", err)
	}
	log.Info("Opened serial port", "port", sc.Port, "baud", sc.Baud)
	return port, func() {
		log.Info("Closing serial port")
		port.Close()
	}, nil
}

func openSink(cfg *config.Config, collectorID string, log *slog.Logger) (Sink, func(), error) {
	if cfg.Server.PublishURL != "" {
		client, err := newPublishClient(cfg.Server.PublishURL, collectorID, log)
		if err != nil {
			return nil, nil, fmt.Errorf("collector: creating publish client: %w", err)
		}
		log.Info("Signals will be published", "url", client.serverURL)
		return client, func() {}, nil
	}

	st, err := store.Open(cfg.Store, log)
	if err != nil {
		return nil, nil, err
	}
	return &storeSink{store: st, tidier: pulse.NewTidier(cfg.ToleranceWindow()), log: log}, func() { st.Close() }, nil
}
