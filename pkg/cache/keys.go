package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Entry kinds. Every key a [Keyer] produces ends in "<kind>:<sha256>".
const (
	KindModel  = "model"
	KindSolve  = "solve"
	KindRender = "render"
)

// Kinds lists the entry kinds in pipeline order.
var Kinds = []string{KindModel, KindSolve, KindRender}

// Hash returns the hex SHA-256 of data. Input bundles, data files and
// topologies are all identified this way.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns kind + ":" + the hash of the JSON encoding of parts.
func hashKey(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return kind + ":" + Hash(data)
}

// KindOf returns the entry kind of key, ignoring any [ScopedKeyer] prefix.
// It returns "" for keys no Keyer produced.
func KindOf(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i < 0 || len(key)-i-1 != 2*sha256.Size {
		return ""
	}
	head := key[:i]
	kind := head[strings.LastIndexByte(head, ':')+1:]
	for _, k := range Kinds {
		if kind == k {
			return kind
		}
	}
	return ""
}
