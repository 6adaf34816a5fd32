package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/codeaudit/internal/application/audit"
	domain "github.com/bryanwahyu/codeaudit/internal/domain/scans"
)

func newAuditCmd() *cobra.Command {
	var (
		multi       bool
		jobs        int
		tools       []string
		stopOnError bool
	)

	cmd := &cobra.Command{
		Use:   "audit [dir]",
		Short: "Run every registered analyzer against a project or workspace",
		Long: `Audit runs all registered tools against the target directory. With
--multi, every direct subdirectory is treated as a separate project and
audited in name order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if jobs > 0 {
				cfg.Audit.Jobs = jobs
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
			svc.StopOnError = stopOnError
			for _, name := range tools {
				tool, err := domain.ParseTool(name)
				if err != nil {
					return err
				}
				svc.Tools = append(svc.Tools, tool)
			}

			var reports []audit.RootReport
			if multi {
				reports, err = svc.AuditWorkspace(cmd.Context(), dir)
			} else {
				var rep audit.RootReport
				rep, err = svc.AuditRoot(cmd.Context(), dir)
				reports = append(reports, rep)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(reports); err != nil {
				return err
			}

			for _, rep := range reports {
				if rep.Failed() {
					return fmt.Errorf("audit of %s did not complete cleanly", rep.Root)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&multi, "multi", false, "audit every direct subdirectory as its own project")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "max concurrent tools per project (overrides config)")
	cmd.Flags().StringSliceVar(&tools, "tool", nil, "run only these tools (repeatable, default: all)")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "skip not-yet-started tools after the first fatal failure")
	return cmd
}
