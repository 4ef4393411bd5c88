package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// RequestHash fingerprints a (metric id, filter set) tuple.
type RequestHash Hash

func (h RequestHash) String() string { return Hash(h).String() }

// CanonicalRequest renders a metric id and filter set into a stable string.
// Entity and value order do not matter; the output is identical for any
// permutation of the same filters.
func CanonicalRequest(metricID string, entities []string, subsets map[string][]string) string {
	var data strings.Builder
	data.WriteString("metric=")
	data.WriteString(metricID)

	sortedEntities := append([]string(nil), entities...)
	sort.Strings(sortedEntities)
	data.WriteString(";entities=")
	data.WriteString(strings.Join(sortedEntities, ","))

	keys := make([]string, 0, len(subsets))
	for k := range subsets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := append([]string(nil), subsets[key]...)
		sort.Strings(values)
		data.WriteString(fmt.Sprintf(";%s=%s", key, strings.Join(values, ",")))
	}

	return data.String()
}

// ComputeRequestHash hashes the canonical form of a request.
func ComputeRequestHash(metricID string, entities []string, subsets map[string][]string) RequestHash {
	return RequestHash(NewHash([]byte(CanonicalRequest(metricID, entities, subsets))))
}
