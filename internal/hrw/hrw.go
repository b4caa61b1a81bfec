// Package hrw picks cluster members with rendezvous (highest random weight)
// hashing, so a key keeps its member while the member list changes elsewhere.
package hrw

import (
	"cmp"
	"encoding/binary"
	"slices"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Score is the 64-bit weight of member for key. seed separates clusters that
// share member addresses.
func Score(key, member, seed string) uint64 {
	h, _ := blake2b.New(8, nil)
	if seed != "" {
		h.Write([]byte(seed))
		h.Write([]byte{0})
	}
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write([]byte(member))
	return binary.BigEndian.Uint64(h.Sum(nil))
}

// TopK returns up to k members ordered by descending score.
func TopK(key string, members []string, k int, seed string) []string {
	if k <= 0 || len(members) == 0 {
		return nil
	}
	type scored struct {
		score uint64
		idx   int
	}
	all := make([]scored, len(members))
	for i, m := range members {
		all[i] = scored{score: Score(key, m, seed), idx: i}
	}
	slices.SortFunc(all, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.idx, b.idx)
	})
	k = min(k, len(all))
	out := make([]string, k)
	for i := range k {
		out[i] = members[all[i].idx]
	}
	return out
}

// Owner returns the best member for key. ok is false without members.
func Owner(key string, members []string, seed string) (owner string, ok bool) {
	best := TopK(key, members, 1, seed)
	if len(best) == 0 {
		return "", false
	}
	return best[0], true
}

// PartitionKey is the key under which a partition is ranked.
func PartitionKey(partitionID int32) string {
	return "p/" + strconv.FormatInt(int64(partitionID), 10)
}

// OwnerOfPartition is Owner keyed by a partition id.
func OwnerOfPartition(partitionID int32, members []string, seed string) (string, bool) {
	return Owner(PartitionKey(partitionID), members, seed)
}
