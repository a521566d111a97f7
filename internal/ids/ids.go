// Package ids generates the identifiers the core hands out: random UUIDv4s
// for entities, and content-derived ids for files written to a project's
// media directory.
package ids

import (
	"encoding/hex"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// New returns a fresh UUIDv4, the id format spec.md §6 mandates for every
// entity id.
func New() uuid.UUID {
	return uuid.New()
}

// ContentHash derives a stable media reference id from file bytes so that
// concurrent writes of the same file are idempotent (spec.md §5 "Shared-
// resource policy"). It is not a content-addressed store in the strict
// sense — files aren't deduplicated by hash alone, the hash just keys a
// deterministic directory name — but identical bytes always land on the
// same reference id.
func ContentHash(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:32], nil
}
