package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// resultNamespace scopes deterministic narrative IDs.
var resultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("goinsight/narrative-result"))

// NewResultID derives a UUIDv5 from a request fingerprint. Identical
// (metric id, filter set) tuples always map to the same ID.
func NewResultID(hash RequestHash) ID {
	return ID(uuid.NewSHA1(resultNamespace, []byte(hash.String())).String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// MetricID identifies one analyzable metric.
type MetricID ID

func (id MetricID) String() string { return ID(id).String() }

// ParseMetricID parses a string into MetricID
func ParseMetricID(s string) (MetricID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("metric ID cannot be empty")
	}
	return MetricID(strings.TrimSpace(s)), nil
}
