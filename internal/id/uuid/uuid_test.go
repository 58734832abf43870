package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDProducesValidUUIDv7(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	id, err := gen.NewID()
	require.NoError(t, err)

	parsed, err := guuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, guuid.Version(7), parsed.Version())
}

func TestNewRawIDUnique(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	a, err := gen.NewRawID()
	require.NoError(t, err)
	b, err := gen.NewRawID()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
