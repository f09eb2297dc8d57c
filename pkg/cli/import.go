package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// maxImportSize bounds imported documents
const maxImportSize = 1 << 20

// newImportCommand creates the import command
func newImportCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a workflow from a JSON document",
		Long: `Import a workflow exported by 'aihub export'. The workflow is stored under
a new id; the document's own id is ignored. Use - to read from stdin.

Examples:
  aihub import triage.json
  curl -s https://example.com/flow.json | aihub import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			wf := st.svc.Import(cmd.Context(), data)
			if wf == nil {
				return errors.New("import failed: the document is not a valid workflow (run with --debug for details)")
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %q (%d nodes, %d connections)\n  ID: %s\n",
				wf.Name, len(wf.Nodes), len(wf.Connections), wf.ID)
			return nil
		},
	}
}

func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxImportSize)
	}
	return data, nil
}
