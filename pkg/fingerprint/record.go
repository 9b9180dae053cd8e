// Package fingerprint remembers which drawing state produced each artifact
// in an output directory, so unchanged drawings are not plotted again.
//
// A Store holds the records of one directory and persists them through a
// Backend after every mutation. An artifact is fresh when its record names
// the same source and either the source timestamp is unchanged or, failing
// that, the source fingerprint is unchanged. In the second case the stored
// timestamp is healed so the next check is cheap again.
//
// Merged artifacts list several sources and are always stale.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	perrors "github.com/matzehuels/titleplot/pkg/errors"
)

// ErrNotFound is returned when an artifact has no record.
var ErrNotFound = errors.New("record not found")

// separator splits the artifact name from the payload in a record line.
const separator = "|||"

// Record is the provenance of one artifact. Exactly one of Source and
// Sources is set.
type Record struct {
	Source      string    `json:"source,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	Sources     []string  `json:"sources,omitempty"`
}

// Merged reports whether r describes a merged artifact.
func (r Record) Merged() bool { return len(r.Sources) > 0 }

// Validate checks that r is either a single-source or a merged record.
func (r Record) Validate() error {
	switch {
	case r.Source != "" && len(r.Sources) > 0:
		return perrors.New(perrors.ErrCodeCacheCorrupt, "record has both source and sources")
	case r.Source == "" && len(r.Sources) == 0:
		return perrors.New(perrors.ErrCodeCacheCorrupt, "record has no source")
	}
	return nil
}

// HasSource reports whether source contributed to r.
func (r Record) HasSource(source string) bool {
	if !r.Merged() {
		return r.Source == source
	}
	return slices.Contains(r.Sources, source)
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func encodePayload(r Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodePayload(s string) (Record, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, r.Validate()
}

// encodeLine formats one record line of the file backend.
func encodeLine(name string, r Record) (string, error) {
	payload, err := encodePayload(r)
	if err != nil {
		return "", err
	}
	return name + separator + payload, nil
}

// decodeLine parses one record line.
func decodeLine(line string) (string, Record, error) {
	name, payload, ok := strings.Cut(line, separator)
	if !ok || name == "" {
		return "", Record{}, fmt.Errorf("missing %q separator", separator)
	}
	r, err := decodePayload(payload)
	if err != nil {
		return "", Record{}, err
	}
	return name, r, nil
}
