package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactHashDeterminism(t *testing.T) {
	h1 := ArtifactHash(".claude/commands/plan.md", "# Plan\n")
	h2 := ArtifactHash(".claude/commands/plan.md", "# Plan\n")

	assert.Equal(t, h1, h2, "ArtifactHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestArtifactHashChangesWithInput(t *testing.T) {
	base := ArtifactHash("a.md", "body")

	assert.NotEqual(t, base, ArtifactHash("b.md", "body"), "path participates in the hash")
	assert.NotEqual(t, base, ArtifactHash("a.md", "body!"), "content participates in the hash")
}

func TestArtifactHashNormalizesContent(t *testing.T) {
	assert.Equal(t,
		ArtifactHash("a.md", "caf\u00e9"),
		ArtifactHash("a.md", "cafe\u0301"),
	)
}

func TestHashDomainsSeparate(t *testing.T) {
	data := []byte("same bytes")
	assert.NotEqual(t, SourceHash(data), hashWithDomain(DomainArtifact, data))
}

func TestBuildHashIgnoresMapOrder(t *testing.T) {
	a := map[string]string{"x.md": "1", "y.md": "2"}
	b := map[string]string{"y.md": "2", "x.md": "1"}

	ha, err := BuildHash(a)
	require.NoError(t, err)
	hb, err := BuildHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)

	hc, err := BuildHash(map[string]string{"x.md": "1"})
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}
