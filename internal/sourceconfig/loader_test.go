package sourceconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmdiscovery/engine/internal/clierrors"
)

const fixtureDir = "../../testdata/fixtures/source"

func TestLoadFixtureTree(t *testing.T) {
	tree, err := Load(LoadOptions{SourceDir: fixtureDir})
	require.NoError(t, err)

	assert.Equal(t, []string{"anthropic", "openai"}, tree.ProviderOrder)
	assert.Contains(t, tree.Providers, "openai")
	assert.Contains(t, tree.Providers, "anthropic")
	assert.NotEmpty(t, tree.RawFiles)
}

func TestLoadSingleProvider(t *testing.T) {
	tree, err := Load(LoadOptions{SourceDir: fixtureDir, Provider: "openai"})
	require.NoError(t, err)

	assert.Equal(t, []string{"openai"}, tree.ProviderOrder)
	_, ok := tree.Providers["anthropic"]
	assert.False(t, ok)
}

func TestLoadUnknownProviderIsConfigNotFound(t *testing.T) {
	_, err := Load(LoadOptions{SourceDir: fixtureDir, Provider: "does-not-exist"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, clierrors.ErrConfigNotFound))
}

func TestLoadMissingSourceDirIsConfigNotFound(t *testing.T) {
	_, err := Load(LoadOptions{SourceDir: "/no/such/directory"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, clierrors.ErrConfigNotFound))
}

func TestParsePatternNameKnownInstrumentor(t *testing.T) {
	instr, provider := ParsePatternName("direct_otel_anthropic")
	assert.Equal(t, "direct_otel", instr)
	assert.Equal(t, "anthropic", provider)
}

func TestParsePatternNameWithoutUnderscore(t *testing.T) {
	instr, provider := ParsePatternName("solo")
	assert.Equal(t, "unknown", instr)
	assert.Equal(t, "solo", provider)
}
