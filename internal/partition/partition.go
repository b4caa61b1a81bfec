// Package partition maps keys to cluster partitions.
package partition

import (
	"github.com/spaolacci/murmur3"
)

// DefaultCount is the partition count of a cluster with default settings.
const DefaultCount = 271

// Hash is the murmur3_x86_32 hash of key with seed 0x01000193, the hash
// members use to place data.
func Hash(key []byte) int32 {
	return int32(murmur3.Sum32WithSeed(key, 0x01000193))
}

// ForKey returns the partition of key among count partitions. count must be
// positive.
func ForKey(key []byte, count int32) int32 {
	h := Hash(key)
	if h == -1<<31 {
		return 0
	}
	if h < 0 {
		h = -h
	}
	return h % count
}
