package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"docchat/internal/domain"
	"docchat/internal/extract"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Print the preview of a file without indexing it",
	Example: `  docchat preview notes.docx
  docchat preview report.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	kind, err := domain.KindFromName(path)
	if err != nil {
		return fmt.Errorf("%w: %s", err, filepath.Base(path))
	}
	p, err := extract.Render(path, kind)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if p.PDF != nil {
		fmt.Fprintf(out, "%s: PDF document, %d pages, %d bytes\n", filepath.Base(path), p.PDF.Pages, p.PDF.Size)
		return nil
	}
	fmt.Fprintln(out, p.Text)
	return nil
}
