package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/ash/internal/config"
)

func newTestParser() *Parser {
	return New(nil).WithHome("/home/tester")
}

func TestParse_BlankLines(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	for _, line := range []string{"", " ", "\t", "   \t  "} {
		got := p.Parse(line)
		assert.Empty(t, got.Command, "line %q", line)
		assert.Empty(t, got.Args, "line %q", line)
		assert.Equal(t, []string{".", ""}, got.Paths, "line %q", line)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		command string
		args    []string
		paths   []string
	}{
		{
			name:    "command only",
			line:    "ls",
			command: "ls",
			args:    []string{},
			paths:   []string{".", ""},
		},
		{
			name:    "relative path",
			line:    "cat src/main.go",
			command: "cat",
			args:    []string{"./src/main.go"},
			paths:   []string{".", "src", "main.go"},
		},
		{
			name:    "absolute path",
			line:    "ls /usr/bin",
			command: "ls",
			args:    []string{"/usr/bin"},
			paths:   []string{"", "usr", "bin"},
		},
		{
			name:    "tilde alone",
			line:    "cd ~",
			command: "cd",
			args:    []string{"/home/tester/"},
			paths:   []string{"", "home", "tester", ""},
		},
		{
			name:    "tilde with path",
			line:    "cd ~/src",
			command: "cd",
			args:    []string{"/home/tester/src"},
			paths:   []string{"", "home", "tester", "src"},
		},
		{
			name:    "tilde expanded in every arg",
			line:    "cp ~/a ~/b",
			command: "cp",
			args:    []string{"/home/tester/a", "/home/tester/b"},
			paths:   []string{"", "home", "tester", "b"},
		},
		{
			name:    "command without path capability keeps arg",
			line:    "echo hello",
			command: "echo",
			args:    []string{"hello"},
			paths:   []string{".", "hello"},
		},
		{
			name:    "tabs separate tokens",
			line:    "echo\ta\t\tb",
			command: "echo",
			args:    []string{"a", "b"},
			paths:   []string{".", "b"},
		},
		{
			name:    "double quotes group",
			line:    `echo "hello world"`,
			command: "echo",
			args:    []string{"hello world"},
			paths:   []string{".", "hello world"},
		},
		{
			name:    "single quote literal inside double",
			line:    `echo "it's"`,
			command: "echo",
			args:    []string{"it's"},
			paths:   []string{".", "it's"},
		},
		{
			name:    "double quote literal inside single",
			line:    `echo 'say "hi"'`,
			command: "echo",
			args:    []string{`say "hi"`},
			paths:   []string{".", `say "hi"`},
		},
		{
			name:    "unterminated quote runs to end",
			line:    `echo "a b`,
			command: "echo",
			args:    []string{"a b"},
			paths:   []string{".", "a b"},
		},
		{
			name:    "flag is not a path",
			line:    "ls -la",
			command: "ls",
			args:    []string{"-la"},
			paths:   []string{".", "-la"},
		},
		{
			name:    "path after a flag",
			line:    "cat -n notes.txt",
			command: "cat",
			args:    []string{"-n", "./notes.txt"},
			paths:   []string{".", "notes.txt"},
		},
		{
			name:    "stdin dash",
			line:    "cat -",
			command: "cat",
			args:    []string{"-"},
			paths:   []string{".", "-"},
		},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.line)
			assert.Equal(t, tt.command, got.Command)
			assert.Equal(t, tt.args, got.Args)
			assert.Equal(t, tt.paths, got.Paths)
			require.NotEmpty(t, got.Paths)
		})
	}
}

func TestParse_SubcommandCapability(t *testing.T) {
	t.Parallel()

	p := New(CapabilitiesFromConfig(map[string]config.CommandConfig{
		"git  add": {ExpectsPath: true},
	})).WithHome("/h")

	got := p.Parse("git add docs")
	assert.Equal(t, []string{"add", "./docs"}, got.Args)

	got = p.Parse("git commit docs")
	assert.Equal(t, []string{"commit", "docs"}, got.Args)
}

func TestCapabilitiesFromConfig(t *testing.T) {
	t.Parallel()

	caps := CapabilitiesFromConfig(map[string]config.CommandConfig{
		"pushd": {DirectoriesOnly: true},
		"vim":   {ExpectsPath: true},
	})

	assert.Equal(t, Capability{ExpectsPath: true, DirectoriesOnly: true}, caps.Lookup("pushd", nil))
	assert.Equal(t, Capability{ExpectsPath: true}, caps.Lookup("vim", []string{"x"}))
	assert.Equal(t, Capability{}, caps.Lookup("echo", nil))
}

func TestDefaultCapabilities(t *testing.T) {
	t.Parallel()

	cd := DefaultCapabilities().Lookup("cd", nil)
	assert.True(t, cd.ExpectsPath)
	assert.True(t, cd.DirectoriesOnly)
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{".", ""}},
		{"foo", []string{".", "foo"}},
		{"foo/", []string{".", "foo", ""}},
		{"/", []string{"", ""}},
		{"/etc/hosts", []string{"", "etc", "hosts"}},
		{"~", []string{"", "home", "tester", ""}},
		{"~/x", []string{"", "home", "tester", "x"}},
		{"../up", []string{".", "..", "up"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ParsePath(tt.in))
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"  a   b  ", []string{"a", "b"}},
		{`a""b`, []string{"ab"}},
		{`""`, []string{""}},
		{`x 'a "b" c'`, []string{"x", `a "b" c`}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}
