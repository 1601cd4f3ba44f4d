// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package cache

import (
	"testing"

	pb "github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/protobuf/proto"
)

func marshalPath(t *testing.T, p *pb.Path) []byte {
	t.Helper()
	b, err := proto.Marshal(p)
	if err != nil {
		t.Fatalf("marshal path: %v", err)
	}
	return b
}

func TestRecordKeyHasherSameKeyIgnoresKeyOrder(t *testing.T) {
	var h RecordKeyHasher
	p1 := &pb.Path{Elem: []*pb.PathElem{
		{Name: "interfaces", Key: map[string]string{"a": "1", "b": "2"}},
	}}
	p2 := &pb.Path{Elem: []*pb.PathElem{
		{Name: "interfaces", Key: map[string]string{"b": "2", "a": "1"}},
	}}
	k1 := marshalPath(t, p1)
	k2 := marshalPath(t, p2)

	if !h.SameKey(k1, k2) {
		t.Fatal("expected paths with the same keys in different map order to be SameKey")
	}
	if h.HashKey(k1) != h.HashKey(k2) {
		t.Fatal("expected equal normalized paths to hash equally")
	}
}

func TestRecordKeyHasherDifferentPathsDiffer(t *testing.T) {
	var h RecordKeyHasher
	p1 := &pb.Path{Elem: []*pb.PathElem{{Name: "a"}}}
	p2 := &pb.Path{Elem: []*pb.PathElem{{Name: "b"}}}

	if h.SameKey(marshalPath(t, p1), marshalPath(t, p2)) {
		t.Fatal("expected differing paths to not be SameKey")
	}
}

func TestRecordKeyHasherFallsBackForNonPathPayload(t *testing.T) {
	var h RecordKeyHasher
	raw := []byte("not a gnmi path")
	if h.HashKey(raw) == 0 {
		t.Fatal("expected nonzero fallback hash")
	}
}
