// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"github.com/rs/zerolog"

	"github.com/wimvanhooff/google-tasks-tools/internal/config"
	"github.com/wimvanhooff/google-tasks-tools/internal/service"
)

// Gateways holds the two authenticated service handles a sync run needs.
type Gateways struct {
	Source service.Gateway
	Mirror service.Gateway
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires loaded config and
	// authenticated gateways. help and version return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg and gws are nil if NeedsAuth() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, gws *Gateways, log zerolog.Logger, args []string, out, errOut io.Writer) int
}
