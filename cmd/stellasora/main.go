// Command stellasora encodes, decodes, validates and scores Stellasora team builds.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/stellasora-tools/buildcore/internal/basen"
	"github.com/stellasora-tools/buildcore/internal/buildtoken"
	"github.com/stellasora-tools/buildcore/internal/config"
	"github.com/stellasora-tools/buildcore/internal/dispatcher"
	"github.com/stellasora-tools/buildcore/internal/logging"
	"github.com/stellasora-tools/buildcore/internal/validate"
)

// module defs - CurrentVersion and BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ExtensionName string = "stellasora"
)

// ConfigDirEnv overrides the directory the config file is read from.
const ConfigDirEnv = "STELLASORA_CONFIG_DIR"

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitDecode     = 2
	exitValidation = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{sessionStart: time.Now()}

	configDir := os.Getenv(ConfigDirEnv)
	if configDir == "" {
		configDir = "."
	}
	configErr := config.Load(configDir)

	a.setupLogging(stderr)
	if configErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.logger.Info("Loaded config", "dir", configDir)
	}
	a.logger.Info("Starting up", "version", CurrentVersion, "buildDate", BuildDate)

	ctx := context.Background()
	defer a.close(ctx)

	if err := a.setupServices(ctx); err != nil {
		a.logger.Error("Failed to set up services", "error", err)
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stdout, a.dispatcher)
		if len(args) == 0 {
			return exitError
		}
		return exitOK
	}
	if args[0] == "version" {
		fmt.Fprintf(stdout, "%s %s (%s)\n", ExtensionName, CurrentVersion, BuildDate)
		return exitOK
	}

	name := strings.ToLower(args[0])
	cmdCtx := logging.ContextWith(ctx, slog.String("command", name))
	result, err := a.dispatcher.Dispatch(cmdCtx, dispatcher.Command{Name: name, Args: args[1:]})
	if result != nil {
		if werr := writeResult(stdout, result); werr != nil {
			fmt.Fprintln(stderr, werr)
			return exitError
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, dispatcher.ErrUnknownCommand) {
			printUsage(stderr, a.dispatcher)
		}
		return exitCode(err)
	}

	if err := a.otel.Flush(ctx); err != nil {
		a.logger.Warn("Failed to flush OTel logs", "error", err)
	}
	return exitOK
}

// exitCode maps decode errors to 2, validation errors to 3 and anything else to 1.
func exitCode(err error) int {
	var (
		parseErr    *buildtoken.BuildParseError
		decodeErr   *basen.DecodeError
		validateErr *validate.ValidationError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &parseErr), errors.As(err, &decodeErr):
		return exitDecode
	case errors.As(err, &validateErr):
		return exitValidation
	default:
		return exitError
	}
}

// writeResult prints strings as-is and everything else as indented JSON.
func writeResult(w io.Writer, result any) error {
	if s, ok := result.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

func printUsage(w io.Writer, d *dispatcher.Dispatcher) {
	fmt.Fprintf(w, "usage: %s <command> [args]\n\ncommands:\n", ExtensionName)
	for _, name := range d.Commands() {
		if u := d.Usage(name); u != "" {
			fmt.Fprintf(w, "  %s\n", u)
		}
	}
}
