package cli

import (
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"mdstudio/internal/editor"
	"mdstudio/internal/model"
	"mdstudio/internal/studio"

	"github.com/spf13/cobra"
)

type docSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
	Bytes     int    `json:"bytes"`
	Current   bool   `json:"current"`
}

func summarize(d model.Document, currentID string) docSummary {
	return docSummary{
		ID:        d.ID,
		Name:      d.Name,
		UpdatedAt: d.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Bytes:     len(d.Content),
		Current:   d.ID == currentID,
	}
}

func currentID(s *studio.Studio) string {
	cur, _ := s.Current()
	return cur.ID
}

// lookupDoc resolves id, or the current document when id is empty.
func lookupDoc(s *studio.Studio, id string) (model.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		cur, ok := s.Current()
		if !ok {
			return model.Document{}, errors.New("no current document")
		}
		return cur, nil
	}
	d, ok := s.Get(id)
	if !ok {
		return model.Document{}, errNotFound("document", id)
	}
	return d, nil
}

func newNewCmd(app *App) *cobra.Command {
	var name string
	var content string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a document and make it current",
		Example: strings.TrimSpace(`
mdstudio new
mdstudio new --name "Plan" --content "# Plan"
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			id := s.NewDocument(name)
			if content != "" {
				s.SetContent(id, content)
			}
			d, _ := s.Get(id)
			return writeOut(cmd, app, map[string]any{
				"data":   d,
				"_hints": []string{"mdstudio show " + id, "mdstudio rename " + id + " <name>"},
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Document name (default: Untitled.md)")
	cmd.Flags().StringVar(&content, "content", "", "Initial markdown content")
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents, most recently edited first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			cur := currentID(s)
			docs := s.List()
			out := make([]docSummary, 0, len(docs))
			for _, d := range docs {
				out = append(out, summarize(d, cur))
			}
			return writeOut(cmd, app, map[string]any{
				"data": out,
				"meta": map[string]any{"count": len(out), "currentId": cur},
			})
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a document (default: the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			d, err := lookupDoc(s, id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if raw {
				_, err := io.WriteString(cmd.OutOrStdout(), d.Content)
				return err
			}
			return writeOut(cmd, app, map[string]any{"data": d})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the markdown content")
	return cmd
}

func newUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a document current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if !s.Switch(args[0]) {
				return writeErr(cmd, errNotFound("document", args[0]))
			}
			d, _ := s.Current()
			return writeOut(cmd, app, map[string]any{"data": summarize(d, d.ID)})
		},
	}
}

func newRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a document",
		Long: strings.TrimSpace(`
Rename a document. Characters that are not allowed in file names are removed and a
numeric suffix is added when the name is taken; the "outcome" field says which.
A name without an extension keeps the document's current one.
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if _, ok := s.Get(args[0]); !ok {
				return writeErr(cmd, errNotFound("document", args[0]))
			}
			res := s.Rename(args[0], args[1])
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
}

func newRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if !s.Delete(args[0]) {
				return writeErr(cmd, errNotFound("document", args[0]))
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"deleted": args[0], "currentId": currentID(s)},
			})
		},
	}
}

func newWriteCmd(app *App) *cobra.Command {
	var content string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "write <id>",
		Short: "Replace a document's content",
		Example: strings.TrimSpace(`
mdstudio write doc-123 --content "# Title"
cat notes.md | mdstudio write doc-123 --stdin
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromStdin == cmd.Flags().Changed("content") {
				return writeErr(cmd, errors.New("write: pass exactly one of --content or --stdin"))
			}
			if fromStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return writeErr(cmd, err)
				}
				content = string(b)
			}

			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if !s.SetContent(args[0], content) {
				return writeErr(cmd, errNotFound("document", args[0]))
			}
			d, _ := s.Get(args[0])
			return writeOut(cmd, app, map[string]any{"data": summarize(d, currentID(s))})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "New markdown content")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the new content from stdin")
	return cmd
}

func newFormatCmd(app *App) *cobra.Command {
	var start, end int
	var url, alt string

	cmd := &cobra.Command{
		Use:   "format <action>",
		Short: "Apply a formatting action to the current document",
		Long: strings.TrimSpace(`
Apply a toolbar formatting action to the current document. --start/--end select a
range in characters (default: the end of the document).

Actions: ` + actionList() + `
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := editor.Action(args[0])
			if !knownAction(action) {
				return writeErr(cmd, errNotFound("action", args[0]))
			}

			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			snap := s.Editor()
			if !cmd.Flags().Changed("start") {
				start = utf8.RuneCountInString(snap.Text)
			}
			if !cmd.Flags().Changed("end") {
				end = start
			}
			s.Select(start, end)

			prompt := func(label, initial string) (string, bool) {
				switch label {
				case editor.LabelURL, editor.LabelImageURL:
					return url, url != ""
				case editor.LabelAlt:
					return alt, true
				}
				return initial, true
			}
			s.Format(action, prompt)

			snap = s.Editor()
			return writeOut(cmd, app, map[string]any{"data": snap})
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "Selection start (character offset)")
	cmd.Flags().IntVar(&end, "end", 0, "Selection end (character offset)")
	cmd.Flags().StringVar(&url, "url", "", "URL for link and image actions")
	cmd.Flags().StringVar(&alt, "alt", "", "Alt text for the image action")
	return cmd
}

func knownAction(a editor.Action) bool {
	for _, x := range editor.Actions {
		if x == a {
			return true
		}
	}
	return false
}

func actionList() string {
	out := make([]string, 0, len(editor.Actions))
	for _, a := range editor.Actions {
		out = append(out, string(a))
	}
	return strings.Join(out, ", ")
}
