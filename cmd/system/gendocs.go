package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func NewGenDocsCommand() *cobra.Command {
	var (
		outDir string
		format string
	)

	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Generate CLI reference pages",
		Long: `Generate reference pages for every carevisit command, as Markdown
(the default) or as man pages with --format man.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = filepath.Join("docs", "cli")
			}
			absOutDir, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", outDir, err)
			}
			if err := os.MkdirAll(absOutDir, 0o755); err != nil {
				return fmt.Errorf("create docs directory %q: %w", absOutDir, err)
			}

			root := cmd.Root()
			root.DisableAutoGenTag = true

			switch format {
			case "markdown", "md":
				err = doc.GenMarkdownTree(root, absOutDir)
			case "man":
				err = doc.GenManTree(root, &doc.GenManHeader{
					Title:   "CAREVISIT",
					Section: "1",
					Source:  "carevisit",
				}, absOutDir)
			default:
				return fmt.Errorf("unknown docs format %q (want markdown or man)", format)
			}
			if err != nil {
				return fmt.Errorf("generate CLI docs: %w", err)
			}

			fmt.Printf("CLI docs (%s) generated in %s\n", format, absOutDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "outdir", "docs/cli", "Output directory for generated CLI docs")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown or man")

	return cmd
}
