package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// WriteStableJSON writes a canonical JSON form of a decoded JSON value into b.
// Object keys are sorted recursively; arrays keep their order.
func WriteStableJSON(b *bytes.Buffer, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeScalar(b, k)
			b.WriteByte(':')
			WriteStableJSON(b, t[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			WriteStableJSON(b, e)
		}
		b.WriteByte(']')
	default:
		writeScalar(b, t)
	}
}

func writeScalar(b *bytes.Buffer, v any) {
	bs, err := json.Marshal(v)
	if err != nil {
		b.WriteString("null")
		return
	}
	b.Write(bs)
}

// StableJSONBytes normalizes v through encoding/json and returns its canonical bytes.
func StableJSONBytes(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return StableJSONFromRaw(raw)
}

// StableJSONFromRaw canonicalizes already encoded JSON.
func StableJSONFromRaw(raw []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return raw
	}
	var b bytes.Buffer
	WriteStableJSON(&b, decoded)
	return b.Bytes()
}

// ETagFromAny returns a deterministic SHA-256 hex digest of v.
func ETagFromAny(v any) string {
	return ETagFromBytes(StableJSONBytes(v))
}

// ETagFromBytes fingerprints an encoded payload as stored.
func ETagFromBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
