package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// CLIArgs are the command-line arguments for a single probe or serve run.
type CLIArgs struct {
	// URL is the locator to probe. Required unless Serve is set.
	URL string

	// Params are name=value pairs sent as query parameters.
	Params map[string]string

	// ConfigPath is an optional YAML config file.
	ConfigPath string

	// Out is where the document is written; empty or "-" means stdout.
	Out string

	// Serve, when non-empty, runs the HTTP API on this address instead of
	// probing once.
	Serve string

	// Demo, when non-empty, runs the demo origin on this address.
	Demo string

	// DBPath overrides the config's storage path.
	DBPath string

	// LogLevel overrides the config's log level.
	LogLevel string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// paramFlag collects repeated -param name=value flags.
type paramFlag map[string]string

func (p paramFlag) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (p paramFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	p[name] = value
	return nil
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("headprobe", flag.ContinueOnError)
	params := paramFlag{}
	var (
		target   = fs.String("url", "", "URL to send a HEAD request to")
		config   = fs.String("config", "", "Path to a YAML config file")
		out      = fs.String("out", "", "Write the header document here instead of stdout")
		serve    = fs.String("serve", "", "Serve the HTTP API on this address instead of probing once")
		demo     = fs.String("demo", "", "Run the demo origin on this address")
		dbPath   = fs.String("db", "", "SQLite file for probe history (overrides config)")
		logLevel = fs.String("log-level", "", "Log level (overrides config)")
	)
	fs.Var(params, "param", "Query parameter as name=value (repeatable)")

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if strings.TrimSpace(*target) == "" && *serve == "" && *demo == "" {
		return nil, errors.New("missing required -url argument")
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return &CLIArgs{
		URL:        strings.TrimSpace(*target),
		Params:     params,
		ConfigPath: *config,
		Out:        *out,
		Serve:      *serve,
		Demo:       *demo,
		DBPath:     *dbPath,
		LogLevel:   *logLevel,
		RawArgs:    args,
	}, nil
}
