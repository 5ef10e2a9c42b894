package utils

import "hash/fnv"

// HashStringToUint64 returns the FNV-1a hash of s. The mock AI provider
// feeds it the prompt text so repeated estimates of the same ticket pick
// the same canned payload.
func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
