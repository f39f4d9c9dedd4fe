package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/dockmetrics/internal/blob"
	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
)

// NewBlobKeyCommand converts between TRS ids and raw submission object keys.
func NewBlobKeyCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blobkey <trs-id> <version> <platform> <file>",
		Short: "Print the object key of a raw submission, or inspect keys",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := domain.ParsePartner(args[2])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, blob.ObjectKey(args[0], args[1], platform, args[3]))
			return err
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prefix <trs-id> [version]",
		Short: "Print the key prefix of an entry or one of its versions",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := blob.PartialKey(args[0])
			if len(args) == 2 {
				key = blob.VersionPrefix(args[0], args[1])
			}
			_, err := fmt.Fprintln(stdout, key)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "parse <key>",
		Short: "Decode an object key into its TRS id, version, platform and file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := blob.ParseKey(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	})

	return cmd
}

func init() {
	subcommandFns["blobkey"] = NewBlobKeyCommand
}
