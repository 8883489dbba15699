package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change without colliding.
const (
	DomainArtifact = "agentmark/artifact/v1"
	DomainSource   = "agentmark/source/v1"
	DomainBuild    = "agentmark/build/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactHash returns the content hash of an emitted artifact.
// The text is NFC normalized first so that equivalent encodings of the same
// document hash identically.
func ArtifactHash(path, content string) string {
	return hashWithDomain(DomainArtifact, []byte(path+"\x00"+norm.NFC.String(content)))
}

// SourceHash returns the hash of a unit's raw source bytes.
func SourceHash(data []byte) string {
	return hashWithDomain(DomainSource, data)
}

// BuildHash hashes the set of artifacts produced by one build: a map of
// artifact path to artifact hash, canonicalized so map order is irrelevant.
func BuildHash(artifacts map[string]string) (string, error) {
	canonical, err := MarshalCanonical(artifacts)
	if err != nil {
		return "", fmt.Errorf("BuildHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBuild, canonical), nil
}
