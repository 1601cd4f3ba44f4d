// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"sort"
	"strings"

	pb "github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/protobuf/proto"
)

// RecordKeyHasher treats a key as a marshaled gnmi.Path rather than an
// opaque byte string, grounded on
// original_source/arangod/Cache/VPackKeyHasher.h: there the key is a
// structured VelocyPack document compared by value, not by its
// serialized bytes, so two differently-encoded-but-equal documents
// collide and compare equal. This module plays the same role for a
// schema the rest of this codebase already speaks: a normalized,
// sorted-map path string is built (the same construction as the
// now-superseded gnmi path-stringification helper this package used to
// carry) and both hashed and compared structurally, so callers can
// store the same logical path under two different wire encodings of
// its Path message and still get a cache hit.
type RecordKeyHasher struct{}

// HashKey unmarshals key as a gnmi.Path and hashes its normalized
// string form. A key that fails to unmarshal as a Path is hashed as
// opaque bytes instead, so RecordKeyHasher degrades to BinaryKeyHasher
// behavior for non-Path payloads rather than panicking.
func (RecordKeyHasher) HashKey(key []byte) uint32 {
	norm, ok := normalizePathKey(key)
	if !ok {
		return BinaryKeyHasher{}.HashKey(key)
	}
	h := fasthash32([]byte(norm), fasthashSeed)
	if h == 0 {
		return 1
	}
	return h
}

// SameKey compares the normalized structural form of two keys rather
// than their raw bytes.
func (RecordKeyHasher) SameKey(a, b []byte) bool {
	na, aok := normalizePathKey(a)
	nb, bok := normalizePathKey(b)
	if aok && bok {
		return na == nb
	}
	return BinaryKeyHasher{}.SameKey(a, b)
}

// normalizePathKey unmarshals raw as a gnmi.Path and renders it as a
// canonical "#target:origin/elem[key=val]/..." string (target and
// origin parts only when set) with each element's keys
// sorted, so structurally-identical paths always normalize the same
// way regardless of map iteration order or encoding choices made by the
// writer.
func normalizePathKey(raw []byte) (string, bool) {
	var path pb.Path
	if err := proto.Unmarshal(raw, &path); err != nil {
		return "", false
	}
	if len(path.Elem) == 0 && path.Origin == "" && path.Target == "" {
		return "", false
	}

	var b strings.Builder
	if path.Target != "" {
		b.WriteByte('#')
		b.WriteString(path.Target)
	}
	if path.Origin != "" {
		b.WriteByte(':')
		b.WriteString(path.Origin)
	}
	for _, elem := range path.Elem {
		b.WriteByte('/')
		b.WriteString(elem.Name)
		writeSortedKeys(&b, elem.Key)
	}
	return b.String(), true
}

func writeSortedKeys(b *strings.Builder, key map[string]string) {
	if len(key) == 0 {
		return
	}
	keys := make([]string, 0, len(key))
	for k := range key {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('[')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(key[k])
		b.WriteByte(']')
	}
}
