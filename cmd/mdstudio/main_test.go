package main

import (
	"testing"

	"mdstudio/internal/cli"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestRewriteDirectOpenArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"mdstudio"},
			want: []string{"mdstudio"},
		},
		{
			name: "file first token",
			in:   []string{"mdstudio", "notes.md"},
			want: []string{"mdstudio", "edit", "notes.md"},
		},
		{
			name: "file after value flag",
			in:   []string{"mdstudio", "--dir", "./data.md", "notes.md"},
			want: []string{"mdstudio", "--dir", "./data.md", "edit", "notes.md"},
		},
		{
			name: "file after equals flag",
			in:   []string{"mdstudio", "--backend=file", "page.HTML"},
			want: []string{"mdstudio", "--backend=file", "edit", "page.HTML"},
		},
		{
			name: "file after bool flag",
			in:   []string{"mdstudio", "--pretty", "todo.txt"},
			want: []string{"mdstudio", "--pretty", "edit", "todo.txt"},
		},
		{
			name: "file after double dash",
			in:   []string{"mdstudio", "--", "notes.md"},
			want: []string{"mdstudio", "edit", "--", "notes.md"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"mdstudio", "import", "notes.md"},
			want: []string{"mdstudio", "import", "notes.md"},
		},
		{
			name: "unsupported extension not rewritten",
			in:   []string{"mdstudio", "photo.png"},
			want: []string{"mdstudio", "photo.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, rewriteDirectOpenArgs(tt.in))
		})
	}
}

func TestRewriteDirectOpenArgs_KnowsEveryRootFlag(t *testing.T) {
	t.Parallel()

	root := cli.NewRootCmd()
	seen := 0
	root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		name := "--" + f.Name
		if f.Value.Type() == "bool" {
			require.True(t, boolFlags[name], "%s missing from boolFlags", name)
		} else {
			require.True(t, valueFlags[name], "%s missing from valueFlags", name)
		}
		seen++
	})
	require.Equal(t, len(valueFlags)+len(boolFlags), seen)
}
