package shard

import (
	"testing"

	"github.com/google/uuid"
)

func TestForSheet_Deterministic(t *testing.T) {
	key := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	numShards := 64

	first := ForSheet(key, numShards)
	for i := 0; i < 100; i++ {
		got := ForSheet(key, numShards)
		if got != first {
			t.Fatalf("iteration %d: got shard %d, want %d", i, got, first)
		}
	}
}

func TestForSheet_InRange(t *testing.T) {
	shardCounts := []int{1, 2, 3, 8, 16, 64, 255}
	for _, numShards := range shardCounts {
		for i := 0; i < 100; i++ {
			key := uuid.New()
			got := ForSheet(key, numShards)
			if int(got) < 0 || int(got) >= numShards {
				t.Errorf("numShards=%d key=%s: got shard %d out of range [0,%d)", numShards, key, got, numShards)
			}
		}
	}
}

func TestForSheet_DifferentKeysDistribute(t *testing.T) {
	numShards := 16
	seen := make(map[ID]bool)

	for i := 0; i < 1000; i++ {
		seen[ForSheet(uuid.New(), numShards)] = true
	}

	if len(seen) < numShards/2 {
		t.Errorf("poor distribution: only %d/%d shards seen with 1000 keys", len(seen), numShards)
	}
}

func TestForSheet_SingleShard(t *testing.T) {
	if got := ForSheet(uuid.New(), 1); got != 0 {
		t.Errorf("with 1 shard, expected 0 but got %d", got)
	}
}

func TestForSheet_NilUUID(t *testing.T) {
	got := ForSheet(uuid.Nil, 64)
	if int(got) < 0 || int(got) >= 64 {
		t.Errorf("nil UUID: shard %d out of range [0,64)", got)
	}
}

func BenchmarkForSheet(b *testing.B) {
	key := uuid.New()
	for i := 0; i < b.N; i++ {
		ForSheet(key, 64)
	}
}
