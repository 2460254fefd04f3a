package id

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen.Generate().String()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestTypedIDs(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		prefix string
	}{
		{"session", NewSessionID().String(), SessionPrefix},
		{"command", NewCommandID().String(), CommandPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix, rest, ok := strings.Cut(tt.id, "_")
			require.True(t, ok)
			assert.Equal(t, tt.prefix, prefix)

			_, err := ulid.Parse(rest)
			assert.NoError(t, err)
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	sid := NewSessionID()

	ts, err := Timestamp(sid.String())
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Timestamp("sess_not-a-ulid")
	assert.Error(t, err)
}

func TestDeterministicEntropy(t *testing.T) {
	gen := NewGeneratorWithEntropy(strings.NewReader(strings.Repeat("\x00", 64)))
	id := gen.GenerateWithPrefix("x")
	assert.True(t, strings.HasPrefix(id, "x_"))
	assert.Len(t, id, 2+26)
}
