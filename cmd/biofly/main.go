package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runCommand(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		if errors.Is(err, context.Canceled) {
			log.Printf("interrupted")
			os.Exit(130)
		}
		log.Fatalf("%v", err)
	}
}

var errUsage = errors.New("usage")

// runCommand dispatches args[0] to its subcommand.
func runCommand(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(stdout)
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "remap":
		return handleRemap(rest, stdout)
	case "quat":
		return handleQuat(rest, stdout)
	case "run":
		return handleRun(ctx, rest, stdout)
	case "sessions":
		return handleSessions(rest, stdout)
	case "plot":
		return handlePlot(rest, stdout)
	case "version":
		return handleVersion(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n\n", command)
		printUsage(stdout)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `biofly - biosignal-driven quadrotor demos

Usage: biofly <command> [options]

Commands:
  remap      Clamp a value to a source interval and rescale it to a target
  quat       Convert a 3x3 rotation matrix to a unit quaternion
  run        Run a demo (respiration, avoidance, flowcheck, sensorcheck, mocap)
  sessions   List recorded demo sessions
  plot       Render a recorded session as a PNG
  version    Show build information
  help       Show this help message

Examples:
  biofly remap -value 500 -src-min 0 -src-max 1024 -dst-min 0.5 -dst-max 1.2
  biofly quat -m "0,-1,0,1,0,0,0,0,1" -shepperd
  biofly run -demo respiration -dev -db sessions.db
  biofly plot -db sessions.db -session <id> -out plots`)
}
