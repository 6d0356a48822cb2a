package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tillsync/tillsync/internal/client"
	"github.com/tillsync/tillsync/internal/queryspec"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Gateway string
	File    string
}

// NewQueryCommand creates the query command. It reads one OperationSpec
// JSON document and executes it against a running gateway.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Execute one OperationSpec against a gateway",
		Long: `Execute a declarative OperationSpec against a running gateway.

The spec is read as JSON from --file, or from stdin when --file is omitted.

Example:
  tillsync query --gateway http://localhost:8090 --file spec.json
  echo '{"action":"select","table":"inventory"}' | tillsync query --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Gateway, "gateway", "http://localhost:8090", "gateway base URL")
	cmd.Flags().StringVar(&opts.File, "file", "", "path to OperationSpec JSON (defaults to stdin)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	var raw []byte
	var err error
	if opts.File != "" {
		raw, err = os.ReadFile(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read spec file", err)
		}
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
	}

	var spec queryspec.OperationSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return WrapExitError(ExitCommandError, "invalid OperationSpec JSON", err)
	}

	transport := client.NewHTTP(opts.Gateway)
	rows, err := transport.Do(cmd.Context(), spec)
	if err != nil {
		return WrapExitError(ExitFailure, "query rejected", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Rows(rows)
}
