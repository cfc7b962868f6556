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
	"time"

	"github.com/socialdrones/crazyflie-scripts/internal/config"
	"github.com/socialdrones/crazyflie-scripts/internal/db"
	"github.com/socialdrones/crazyflie-scripts/internal/demo"
	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
	"github.com/socialdrones/crazyflie-scripts/internal/monitoring"
	"github.com/socialdrones/crazyflie-scripts/internal/pose"
	"github.com/socialdrones/crazyflie-scripts/internal/remap"
	"github.com/socialdrones/crazyflie-scripts/internal/report"
	"github.com/socialdrones/crazyflie-scripts/internal/timeutil"
	"github.com/socialdrones/crazyflie-scripts/internal/version"
)

// errNoHardware is returned by run without -dev: only simulated devices
// ship with this binary.
var errNoHardware = errors.New("no hardware adapters available, run with -dev to use simulated devices")

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func handleRemap(args []string, stdout io.Writer) error {
	fs := newFlagSet("remap", stdout)
	value := fs.Float64("value", 0, "Value to remap")
	srcMin := fs.Float64("src-min", 0, "Source interval start")
	srcMax := fs.Float64("src-max", 1, "Source interval end")
	dstMin := fs.Float64("dst-min", 0, "Target interval start")
	dstMax := fs.Float64("dst-max", 1, "Target interval end")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	v, err := remap.Remap(*value, *srcMin, *srcMax, *dstMin, *dstMax)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%g\n", v)
	return nil
}

// parseMatrix reads nine comma or space separated values in row-major order.
func parseMatrix(s string) (pose.RotationMatrix, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 9 {
		return pose.RotationMatrix{}, fmt.Errorf("matrix needs 9 values, got %d", len(fields))
	}
	var m pose.RotationMatrix
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return pose.RotationMatrix{}, fmt.Errorf("matrix element %d: %w", i, err)
		}
		m[i/3][i%3] = v
	}
	return m, nil
}

func handleQuat(args []string, stdout io.Writer) error {
	fs := newFlagSet("quat", stdout)
	matrix := fs.String("m", "", "Rotation matrix, 9 row-major values (required)")
	shepperd := fs.Bool("shepperd", false, "Use the sign-preserving branch method")
	validate := fs.Bool("validate", false, "Reject matrices that are not proper rotations")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *matrix == "" {
		fmt.Fprintln(stdout, "Error: -m is required")
		fs.Usage()
		return errUsage
	}

	m, err := parseMatrix(*matrix)
	if err != nil {
		return err
	}
	if *validate {
		if err := pose.ValidateRotation(m, pose.MatrixValidationTolerance); err != nil {
			return err
		}
	}

	convert := pose.RotationMatrixToQuaternion
	if *shepperd {
		convert = pose.RotationMatrixToQuaternionShepperd
	}
	q, err := convert(m)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, q)
	return nil
}

func handleRun(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("run", stdout)
	demoName := fs.String("demo", "respiration", "Demo to run: respiration, avoidance, flowcheck, sensorcheck, mocap")
	configPath := fs.String("config", "", "Demo configuration JSON file")
	devMode := fs.Bool("dev", false, "Use simulated sensor and quadrotor")
	instant := fs.Bool("instant", false, "With -dev, simulate time instead of waiting")
	dbPath := fs.String("db", "", "Record the session to this SQLite database")
	plotDir := fs.String("plot", "", "Write a session plot to this directory (requires -db)")
	trace := fs.Bool("trace", false, "Log every sample")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var traceW io.Writer
	if *trace {
		traceW = os.Stderr
	}
	monitoring.SetLogWriters(os.Stderr, os.Stderr, traceW)

	cfg := config.DefaultDemoConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadDemoConfig(*configPath); err != nil {
			return err
		}
	}

	if !*devMode {
		return errNoHardware
	}

	var clock timeutil.Clock = timeutil.RealClock{}
	if *instant {
		clock = timeutil.NewMockClock(time.Now())
	}

	var (
		database *db.DB
		session  *db.Session
		recorder demo.Recorder
	)
	if *dbPath != "" {
		var err error
		if database, err = db.NewDB(*dbPath); err != nil {
			return fmt.Errorf("opening session database: %w", err)
		}
		defer database.Close()
		if session, err = database.CreateSession(*demoName); err != nil {
			return err
		}
		recorder = session
		monitoring.Logf("recording session %s", session.ID)
	}

	runErr := runDemo(ctx, *demoName, cfg, clock, recorder)

	if session != nil {
		if err := session.Finish(); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(stdout, "session %s\n", session.ID)
		if *plotDir != "" && runErr == nil {
			samples, err := database.SessionSamples(session.ID)
			if err != nil {
				return err
			}
			if len(samples) > 0 {
				path, err := report.PlotSession(samples, *plotDir, session.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "plot %s\n", path)
			}
		}
	}
	return runErr
}

// runDemo wires the named demo to simulated devices.
func runDemo(ctx context.Context, name string, cfg *config.DemoConfig, clock timeutil.Clock, rec demo.Recorder) error {
	flyer := &demo.LogFlyer{}
	sensor := &demo.SimSensor{RawMin: cfg.GetSensorRawMin(), RawMax: cfg.GetSensorRawMax()}
	connect := demo.SimConnector(sensor, 0)

	switch name {
	case "respiration":
		d := &demo.RespirationDemo{Flyer: flyer, Connect: connect, Clock: clock, Config: cfg, Recorder: rec}
		return d.Run(ctx)
	case "avoidance":
		ranger := demo.NewSimRanger(
			mapping.Ranges{},
			mapping.Ranges{Front: mapping.Range(0.5)},
			mapping.Ranges{Left: mapping.Range(0.3), Back: mapping.Range(0.6)},
			mapping.Ranges{},
		)
		d := &demo.AvoidanceDemo{Flyer: flyer, Connect: connect, Ranger: ranger, Clock: clock, Config: cfg, Recorder: rec}
		return d.Run(ctx)
	case "flowcheck":
		return (&demo.FlowCheck{Flyer: flyer, Clock: clock}).Run(ctx)
	case "sensorcheck":
		c := &demo.SensorCheck{Connect: connect, Clock: clock, Recorder: rec, ConnectAttempts: cfg.GetConnectAttempts()}
		return c.Run(ctx)
	case "mocap":
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		d := &demo.MocapDemo{
			Flyer:     flyer,
			Commander: flyer,
			Sink:      flyer,
			Variances: &demo.SimVariances{Clock: clock},
			Clock:     clock,
		}
		err := d.Run(ctx, demo.SimMocapStream(streamCtx, clock, 10*time.Millisecond))
		monitoring.Logf("sent %d external poses", len(flyer.Poses()))
		return err
	default:
		return fmt.Errorf("unknown demo %q", name)
	}
}

func handleSessions(args []string, stdout io.Writer) error {
	fs := newFlagSet("sessions", stdout)
	dbPath := fs.String("db", "sessions.db", "Session database")
	limit := fs.Int("limit", db.DefaultSessionLimit, "Maximum sessions to list")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	sessions, err := database.Sessions(*limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(stdout, "no sessions recorded")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintln(stdout, s)
	}
	return nil
}

func handlePlot(args []string, stdout io.Writer) error {
	fs := newFlagSet("plot", stdout)
	dbPath := fs.String("db", "sessions.db", "Session database")
	sessionID := fs.String("session", "", "Session ID (required)")
	outDir := fs.String("out", "plots", "Output directory")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *sessionID == "" {
		fmt.Fprintln(stdout, "Error: -session is required")
		fs.Usage()
		return errUsage
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	samples, err := database.SessionSamples(*sessionID)
	if err != nil {
		return err
	}
	path, err := report.PlotSession(samples, *outDir, *sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}

func handleVersion(stdout io.Writer) error {
	fmt.Fprintln(stdout, version.String())
	return nil
}
