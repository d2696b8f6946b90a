package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() *Bundle {
	return &Bundle{
		ProviderSignatures: map[string][]Signature{
			"openai": {{PatternName: "traceloop_openai", Fields: []string{"gen_ai.request.model", "gen_ai.system"}, Confidence: 0.95}},
		},
		SignatureToProvider: []InvertedEntry{
			{Fields: []string{"gen_ai.request.model", "gen_ai.system"}, PatternName: "traceloop_openai", Confidence: 0.95},
		},
		BuildMetadata: BuildMetadata{Version: "1.0", ProvidersCount: 1, PatternsCount: 1},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleBundle()

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, original.BuildMetadata, decoded.BuildMetadata)
	assert.Equal(t, original.SignatureToProvider, decoded.SignatureToProvider)
}

func TestEncodeIsDeterministic(t *testing.T) {
	b := sampleBundle()

	first, err := Encode(b)
	require.NoError(t, err)
	second, err := Encode(b)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWriteAtomicThenReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := sampleBundle()

	require.NoError(t, WriteAtomic(dir, original))

	read, err := ReadFile(dir)
	require.NoError(t, err)
	assert.Equal(t, original.BuildMetadata, read.BuildMetadata)
}

func TestContentHashIsOrderIndependent(t *testing.T) {
	a := ContentHash(map[string][]byte{"b.yaml": []byte("2"), "a.yaml": []byte("1")})
	b := ContentHash(map[string][]byte{"a.yaml": []byte("1"), "b.yaml": []byte("2")})
	assert.Equal(t, a, b)
}

func TestContentHashChangesWithContent(t *testing.T) {
	a := ContentHash(map[string][]byte{"a.yaml": []byte("1")})
	b := ContentHash(map[string][]byte{"a.yaml": []byte("2")})
	assert.NotEqual(t, a, b)
}
