// Package cli holds the dockmetrics command tree.
package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/dockmetrics/internal/config"
	"github.com/MrSnakeDoc/dockmetrics/internal/version"
)

// subcommandFns is filled by the init functions of each command file.
var subcommandFns = map[string]func(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command{}

// NewRootCommand builds the top level command with every registered
// subcommand attached.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "dockmetrics",
		Short: "dockmetrics - execution and validation metrics for Dockstore entries",
		Long: `Collects execution and validation metrics submitted by platform partners,
aggregates them per entry version and serves the entry/version lifecycle API.

Configuration is read from DOCKMETRICS_* and REDIS_* environment variables.

` + version.Get().String() + "\n",
		SilenceUsage: true,
	}
	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)

	names := make([]string, 0, len(subcommandFns))
	for name := range subcommandFns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rc.AddCommand(subcommandFns[name](stdin, stdout, stderr))
	}
	return rc
}

// loadConfig turns the configuration panics into a command error.
func loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid configuration: %v", r)
		}
	}()
	return config.Load(), nil
}
