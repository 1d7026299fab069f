package vector

import (
	"crypto/md5"
	"encoding/hex"
)

// pointUUID derives a UUID from a chunk ID. Qdrant point IDs must be UUIDs
// or integers, while chunk IDs are strings like "ai_content_0"; hashing
// keeps the mapping deterministic so re-ingesting unchanged content
// overwrites the same points instead of duplicating them.
func pointUUID(chunkID string) string {
	sum := md5.Sum([]byte(chunkID))
	sum[6] = (sum[6] & 0x0f) | 0x30 // version 3 (name-based, MD5)
	sum[8] = (sum[8] & 0x3f) | 0x80 // variant 10

	var out [36]byte
	hex.Encode(out[0:8], sum[0:4])
	out[8] = '-'
	hex.Encode(out[9:13], sum[4:6])
	out[13] = '-'
	hex.Encode(out[14:18], sum[6:8])
	out[18] = '-'
	hex.Encode(out[19:23], sum[8:10])
	out[23] = '-'
	hex.Encode(out[24:36], sum[10:16])
	return string(out[:])
}
