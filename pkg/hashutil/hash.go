// Package hashutil computes the content hash used for TextChange error
// detection and buffer resync: xxh3-64, bit pattern reinterpreted as a
// signed int64.
package hashutil

import "github.com/zeebo/xxh3"

// Hash returns the xxh3-64 digest of data, reinterpreted as a signed
// 64-bit integer. Deterministic for identical inputs; collisions are
// cryptographically implausible, not impossible, as with any 64-bit hash.
func Hash(data []byte) int64 {
	return int64(xxh3.Hash(data))
}

// HashString is a convenience wrapper over Hash for string content.
func HashString(s string) int64 {
	return int64(xxh3.HashString(s))
}
