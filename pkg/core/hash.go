package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// HashData computes a stable sha256 fingerprint of a string map.
// Keys are sorted and written as key\u0000value lines so map iteration order never leaks in.
func HashData(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b := strings.Builder{}
	for _, k := range keys {
		b.WriteString(k)
		b.WriteRune('\u0000')
		b.WriteString(data[k])
		b.WriteRune('\n')
	}
	return HashBytes([]byte(b.String()))
}

// HashBytes returns the lowercase hex sha256 digest of raw.
func HashBytes(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
