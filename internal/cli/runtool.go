package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

func newRunToolCmd() *cobra.Command {
	var jsonOut string

	cmd := &cobra.Command{
		Use:   "run-tool <tool> [dir]",
		Short: "Run a single analyzer against one project directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := domain.ParseTool(args[0])
			if err != nil {
				return err
			}
			dir := "."
			if len(args) == 2 {
				dir = args[1]
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, err := rt.auditService(cmd.Context())
			if err != nil {
				return err
			}

			out, err := svc.RunTool(cmd.Context(), tool, dir)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if jsonOut != "" {
				if err := os.WriteFile(jsonOut, data, 0o644); err != nil {
					return err
				}
			} else {
				cmd.OutOrStdout().Write(data)
			}
			if out.Err != "" {
				return fmt.Errorf("%s failed: %s", tool, out.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jsonOut, "json-out", "", "write the outcome JSON to this file instead of stdout")
	return cmd
}
