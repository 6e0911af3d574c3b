// Package shard places archived sheets on storage shards.
package shard

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// ID represents a shard number in [0, NumShards).
type ID int

// ForSheet computes the shard that archives the sheet with the given id.
func ForSheet(sheetID uuid.UUID, numShards int) ID {
	h := fnv.New32a()
	b := [16]byte(sheetID)
	h.Write(b[:])
	return ID(h.Sum32() % uint32(numShards))
}
