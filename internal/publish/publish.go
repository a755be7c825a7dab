package publish

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"mdstudio/internal/model"
	"mdstudio/internal/render"
)

type WriteOptions struct {
	// HTML also writes a standalone page next to each markdown file.
	HTML bool
	// Theme is the page theme for HTML output.
	Theme        string
	IncludeEmpty bool
	Overwrite    bool
}

type WriteResult struct {
	Written []string `json:"written"`
	Skipped []string `json:"skipped,omitempty"`
}

// WriteAll writes every document under toDir using its name as the file name, plus an
// index.md linking them in the given order.
func WriteAll(docs []model.Document, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	res := WriteResult{Written: []string{}}
	var index strings.Builder
	index.WriteString("# Documents\n\n")
	for _, d := range docs {
		if d.Empty() && !opt.IncludeEmpty {
			res.Skipped = append(res.Skipped, d.Name)
			continue
		}
		name := filepath.Base(d.Name)
		mdPath := filepath.Join(toDir, name)
		if err := writeFile(mdPath, []byte(d.Content), opt.Overwrite); err != nil {
			return res, err
		}
		res.Written = append(res.Written, mdPath)

		link := name
		if opt.HTML {
			htmlName := render.ExportName(d.Name)
			p := filepath.Join(toDir, htmlName)
			if err := writeFile(p, render.ExportHTML(d.Name, d.Content, opt.Theme), opt.Overwrite); err != nil {
				return res, err
			}
			res.Written = append(res.Written, p)
			link = htmlName
		}
		fmt.Fprintf(&index, "- [%s](%s)\n", render.ExportTitle(d.Name), (&url.URL{Path: link}).EscapedPath())
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(index.String()), opt.Overwrite); err != nil {
		return res, err
	}
	res.Written = append(res.Written, indexPath)
	if opt.HTML {
		p := filepath.Join(toDir, "index.html")
		if err := writeFile(p, render.ExportHTML("index.md", index.String(), opt.Theme), opt.Overwrite); err != nil {
			return res, err
		}
		res.Written = append(res.Written, p)
	}
	return res, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
