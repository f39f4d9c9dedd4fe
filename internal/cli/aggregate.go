package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/dockmetrics/internal/app"
)

func NewAggregateCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Run one aggregation sweep over the pending versions and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := app.Aggregate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(stdout, "pending=%d aggregated=%d dropped=%d failed=%d\n",
				res.Pending, res.Aggregated, res.Dropped, res.Failed)
			if err == nil && res.Failed > 0 {
				err = fmt.Errorf("%d versions failed to aggregate", res.Failed)
			}
			return err
		},
	}
}

func init() {
	subcommandFns["aggregate"] = NewAggregateCommand
}
