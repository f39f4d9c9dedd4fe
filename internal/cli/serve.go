package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/dockmetrics/internal/app"
)

func NewServeCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var policyFile, catalogFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("policy") {
				cfg.PolicyFile = policyFile
			}
			if cmd.Flags().Changed("catalog") {
				cfg.CatalogFile = catalogFile
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&policyFile, "policy", "", "precedence policy file, overrides DOCKMETRICS_POLICY_FILE")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "catalog seed file, overrides DOCKMETRICS_CATALOG_FILE")
	return cmd
}

func init() {
	subcommandFns["serve"] = NewServeCommand
}
