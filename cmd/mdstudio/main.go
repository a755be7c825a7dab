package main

import (
	"os"
	"strings"

	"mdstudio/internal/cli"
	"mdstudio/internal/importer"
)

// Root persistent flags, split by whether they consume the next token.
var (
	valueFlags = map[string]bool{
		"--dir":       true,
		"--backend":   true,
		"--format":    true,
		"--log-level": true,
	}
	boolFlags = map[string]bool{
		"--pretty": true,
	}
)

func isDocumentPath(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.HasPrefix(s, "-") && importer.Supported(s)
}

func rewriteDirectOpenArgs(argv []string) []string {
	// Convenience: `mdstudio notes.md` works like `mdstudio edit notes.md`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before
	// parsing. Persistent flags may come first (`mdstudio --dir ... notes.md`), so look
	// for the first positional token rather than argv[1].
	if len(argv) < 2 {
		return argv
	}

	insertEdit := func(at int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:at]...)
		out = append(out, "edit")
		out = append(out, argv[at:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isDocumentPath(argv[i+1]) {
				return insertEdit(i)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		// First positional token.
		if isDocumentPath(a) {
			return insertEdit(i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectOpenArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
