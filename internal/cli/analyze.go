package cli

import (
	"os"

	"github.com/spf13/cobra"

	appai "github.com/bryanwahyu/codeaudit/internal/application/ai"
	domai "github.com/bryanwahyu/codeaudit/internal/domain/ai"
	aiopenai "github.com/bryanwahyu/codeaudit/internal/infra/ai/openai"
)

func newAnalyzeCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ask the AI analyst to triage the persisted findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				return domai.ErrNotConfigured
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			svc := appai.NewService(aiopenai.NewClient(apiKey, cfg.AI.Model), rt.exportService())
			report, err := svc.AnalyzeRoot(cmd.Context(), root)
			if err != nil {
				return err
			}
			cmd.Println(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "limit the analysis to one project root")
	return cmd
}
