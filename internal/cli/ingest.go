package cli

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"docchat/internal/domain"
	"docchat/internal/knowledge"
	"docchat/internal/loader"
)

var ingestKind string

// errEphemeralStore rejects one-shot commands whose knowledge base would be
// gone by the time the next command runs.
var errEphemeralStore = errors.New("knowledge base does not outlive this command")

func requirePersistentStore() error {
	vs := cfg.VectorStore
	if vs.Type == "memory" || (vs.Type == "sqlite" && vs.Ephemeral) {
		return fmt.Errorf("%w: the %s variant uses a %s store; set vector_store.ephemeral to false and vector_store.dir, or use the chat",
			errEphemeralStore, cfg.Variant, describeStore(vs.Type, vs.Ephemeral))
	}
	return nil
}

func describeStore(typ string, ephemeral bool) string {
	if typ == "sqlite" && ephemeral {
		return "temporary sqlite"
	}
	return typ
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|url>...",
	Short: "Add files or URLs to the knowledge base",
	Long: `Add files or URLs to the knowledge base without opening the chat.

The kind is taken from the file extension unless --kind is given.
Documents already in the knowledge base are skipped.`,
	Example: `  docchat ingest notes.docx report.csv
  docchat ingest --kind pdf https://www.copyright.gov/title17/title17.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestKind, "kind", "", "document kind: pdf, docx, csv or txt")
}

// sourceKind picks the kind of source from the flag or its extension.
func sourceKind(source, override string) (domain.Kind, error) {
	if override != "" {
		k := domain.Kind(override)
		if !k.Ingestible() {
			return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, override)
		}
		return k, nil
	}
	name := source
	if loader.IsURL(source) {
		if u, err := url.Parse(source); err == nil {
			name = path.Base(u.Path)
		}
	}
	k, err := domain.KindFromName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, filepath.Base(name))
	}
	return k, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requirePersistentStore(); err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := knowledge.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	var failed int
	for _, src := range args {
		kind, err := sourceKind(src, ingestKind)
		if err != nil {
			fmt.Fprintf(out, "Error adding file: %v\n", err)
			failed++
			continue
		}
		name := src
		if !loader.IsURL(src) {
			name = filepath.Base(src)
		}
		rep, err := client.Add(ctx, src, kind, knowledge.WithDisplayName(name))
		if err != nil {
			fmt.Fprintf(out, "Error adding file: %v\n", err)
			failed++
			continue
		}
		if rep.Skipped {
			fmt.Fprintf(out, "%s is already in the knowledge base.\n", name)
			continue
		}
		fmt.Fprintf(out, "Added %s to knowledge base! (%d chunks)\n", name, rep.Chunks)
		if rep.Gist != "" {
			fmt.Fprintf(out, "  %s\n", rep.Gist)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(args))
	}
	return nil
}
