package review

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlPolicy = `
default: review
rules:
  - program: "rm"
    action: deny
    reason: "no deleting"
  - program: "{ls,cat,pwd,echo,grep}"
    action: allow
  - program: "git"
    action: review
`

const tomlPolicy = `
default = "deny"

[[rules]]
program = "ls"
action = "allow"

[[rules]]
program = "sudo"
action = "deny"
`

func TestProgramsOf(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{"ls", []string{"ls"}},
		{"cd src && make", []string{"cd", "make"}},
		{"a || b; c | d & e", []string{"a", "b", "c", "d", "e"}},
		{`echo "a && b" | wc -l`, []string{"echo", "wc"}},
		{`echo 'x;y'`, []string{"echo"}},
		{"make 2>&1 | tee log", []string{"make", "tee"}},
		{"CC=clang FLAGS='-O2 -g' make all", []string{"make"}},
		{"/bin/rm -f x", []string{"/bin/rm"}},
		{`'r'"m" x`, []string{"rm"}},
		{"echo $(rm -rf /tmp/x)", []string{"echo", "rm"}},
		{"echo `rm -rf /tmp/x`", []string{"echo", "rm"}},
		{"cat <(curl example.com)", []string{"cat", "curl"}},
		{"X=$(id -u) ls", []string{"ls", "id"}},
		{`eval "rm -rf /tmp/x"`, []string{"eval", "rm"}},
		{`sh -c 'ls; rm x'`, []string{"sh", "ls", "rm"}},
		{`bash --norc -ec "rm x"`, []string{"bash", "rm"}},
		{"sudo -E rm x", []string{"sudo", "rm"}},
		{"env A=1 timeout 5 rm x", []string{"env", "timeout", "rm"}},
		{"export A=1", []string{"export"}},
		{"f() { rm x; }; f", []string{"rm", "f"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			programs, err := programsOf(tt.command)
			require.NoError(t, err)

			var names []string
			for _, p := range programs {
				assert.False(t, p.dynamic)
				names = append(names, p.name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestProgramsOfDynamic(t *testing.T) {
	for _, command := range []string{"$EDITOR notes", "$(which rm) x", `eval "$CMD"`, `sh -c "$SCRIPT"`} {
		t.Run(command, func(t *testing.T) {
			programs, err := programsOf(command)
			require.NoError(t, err)

			dynamic := false
			for _, p := range programs {
				dynamic = dynamic || p.dynamic
			}
			assert.True(t, dynamic)
		})
	}

	_, err := programsOf("echo $(rm x")
	assert.Error(t, err)
}

func TestPolicyReview(t *testing.T) {
	file, err := ParsePolicy([]byte(yamlPolicy), ".yaml")
	require.NoError(t, err)

	fallback := Always{Action: Proceed, Reason: "fallback"}
	p, err := NewPolicy(file, fallback, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		command string
		action  Action
		reason  string
	}{
		{"allowed program", "ls -la", Proceed, ""},
		{"allowed chain", "cat a.txt | grep foo && pwd", Proceed, ""},
		{"denied program", "rm -rf /", Abort, "no deleting"},
		{"denied by path", "/bin/rm x", Abort, "no deleting"},
		{"deny wins in chain", "ls && rm x", Abort, "no deleting"},
		{"review rule uses fallback", "git push", Proceed, "fallback"},
		{"unknown program uses default", "make install", Proceed, "fallback"},
		{"mixed known and unknown", "ls; curl example.com", Proceed, "fallback"},
		{"denied inside substitution", "echo $(rm -rf /tmp/x)", Abort, "no deleting"},
		{"denied inside backticks", "echo `rm -rf /tmp/x`", Abort, "no deleting"},
		{"denied inside eval", `eval "rm -rf /tmp/x"`, Abort, "no deleting"},
		{"denied inside sh -c", `sh -c 'ls && rm x'`, Abort, "no deleting"},
		{"denied behind sudo", "sudo rm x", Abort, "no deleting"},
		{"allowed substitution", "echo $(pwd)", Proceed, ""},
		{"dynamic program uses default", "$EDITOR notes", Proceed, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := p.Review(context.Background(), tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.command, d.Command)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestPolicyWithoutFallback(t *testing.T) {
	p, err := NewPolicy(PolicyFile{Rules: []Rule{{Program: "ls", Action: Allow}}}, nil, nil)
	require.NoError(t, err)

	d, err := p.Review(context.Background(), "ls")
	require.NoError(t, err)
	assert.Equal(t, Proceed, d.Action)

	d, err = p.Review(context.Background(), "vim")
	require.NoError(t, err)
	assert.Equal(t, Abort, d.Action)
}

func TestNewPolicyValidation(t *testing.T) {
	tests := []struct {
		name string
		file PolicyFile
	}{
		{"bad default", PolicyFile{Default: "maybe"}},
		{"missing program", PolicyFile{Rules: []Rule{{Action: Allow}}}},
		{"bad glob", PolicyFile{Rules: []Rule{{Program: "[ls", Action: Allow}}}},
		{"bad action", PolicyFile{Rules: []Rule{{Program: "ls", Action: "permit"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.file, nil, nil)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "policy.yml")
		require.NoError(t, os.WriteFile(path, []byte(yamlPolicy), 0o644))

		p, err := LoadPolicy(path, nil, nil)
		require.NoError(t, err)
		assert.Len(t, p.rules, 3)
		assert.Equal(t, AskReview, p.def)
	})

	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(dir, "policy.toml")
		require.NoError(t, os.WriteFile(path, []byte(tomlPolicy), 0o644))

		p, err := LoadPolicy(path, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, Deny, p.def)

		d, err := p.Review(context.Background(), "sudo ls")
		require.NoError(t, err)
		assert.Equal(t, Abort, d.Action)

		d, err = p.Review(context.Background(), "whoami")
		require.NoError(t, err)
		assert.Equal(t, Abort, d.Action)
		assert.Equal(t, "command is not allowed by policy", d.Reason)
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(dir, "policy.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

		_, err := LoadPolicy(path, nil, nil)
		assert.ErrorIs(t, err, ErrUnknownPolicyFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolicy(filepath.Join(dir, "nope.yaml"), nil, nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules: [program: {"), 0o644))

		_, err := LoadPolicy(path, nil, nil)
		assert.Error(t, err)
	})
}

func TestPolicyStrictWhenUnparsed(t *testing.T) {
	file := PolicyFile{
		Default: Allow,
		Rules: []Rule{
			{Program: "echo", Action: Allow},
			{Program: "rm", Action: Deny},
		},
	}
	p, err := NewPolicy(file, nil, nil)
	require.NoError(t, err)

	d, err := p.Review(context.Background(), "echo $(rm -rf /tmp/x)")
	require.NoError(t, err)
	assert.Equal(t, Abort, d.Action)

	d, err = p.Review(context.Background(), "whoami")
	require.NoError(t, err)
	assert.Equal(t, Proceed, d.Action)

	d, err = p.Review(context.Background(), "echo $(rm x")
	require.NoError(t, err)
	assert.Equal(t, Abort, d.Action)
	assert.Equal(t, "command needs review and no reviewer is configured", d.Reason)
}
