package cli

import (
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		outputPath string
		root       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the findings bundle as JSON",
		Long: `Export projects everything persisted so far into a JSON bundle. The
output path may be a file or a directory; a directory gets the default
bundle name appended. Defaults to the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			path, err := rt.exportService().Write(cmd.Context(), root, outputPath)
			if err != nil {
				return err
			}
			cmd.Println(path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputPath, "output-path", ".", "bundle destination file or directory")
	cmd.Flags().StringVar(&root, "root", "", "limit the bundle to one project root")
	return cmd
}
