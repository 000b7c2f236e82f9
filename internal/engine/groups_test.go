package engine

import (
	"testing"
	"time"
)

func rec(id string, created time.Time) Record {
	return Record{ID: id, ImageURL: "https://img.example/" + id + ".jpg", CreatedAt: created}
}

func TestBuildExactGroupsCollectsIdenticalFingerprints(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	input := []fingerprinted{
		{record: rec("a", base), fingerprint: 0xAAAA},
		{record: rec("b", base.Add(time.Hour)), fingerprint: 0xBBBB},
		{record: rec("c", base.Add(2 * time.Hour)), fingerprint: 0xAAAA},
		{record: rec("d", base.Add(3 * time.Hour)), fingerprint: 0xAAAA},
	}

	groups, remainder := buildExactGroups(input)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	group := groups[0]
	if group.Kind != GroupExact {
		t.Fatalf("expected exact group, got %s", group.Kind)
	}
	if group.Fingerprint != 0xAAAA {
		t.Fatalf("unexpected group fingerprint: %s", group.Fingerprint)
	}
	if len(group.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(group.Members))
	}
	for i, want := range []string{"a", "c", "d"} {
		if group.Members[i].ID != want {
			t.Fatalf("member %d: expected %s, got %s", i, want, group.Members[i].ID)
		}
	}
	if len(remainder) != 1 || remainder[0].record.ID != "b" {
		t.Fatalf("expected remainder [b], got %+v", remainder)
	}
}

func TestBuildExactGroupsPreservesGroupOrder(t *testing.T) {
	now := time.Now()
	input := []fingerprinted{
		{record: rec("a", now), fingerprint: 1},
		{record: rec("b", now), fingerprint: 2},
		{record: rec("c", now), fingerprint: 2},
		{record: rec("d", now), fingerprint: 1},
	}

	groups, remainder := buildExactGroups(input)
	if len(remainder) != 0 {
		t.Fatalf("expected empty remainder, got %d records", len(remainder))
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// Groups follow first-seen fingerprint order.
	if groups[0].Fingerprint != 1 || groups[1].Fingerprint != 2 {
		t.Fatalf("unexpected group order: %s, %s", groups[0].Fingerprint, groups[1].Fingerprint)
	}
}

func TestBuildExactGroupsAllUnique(t *testing.T) {
	now := time.Now()
	input := []fingerprinted{
		{record: rec("a", now), fingerprint: 1},
		{record: rec("b", now), fingerprint: 2},
		{record: rec("c", now), fingerprint: 3},
	}

	groups, remainder := buildExactGroups(input)
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
	if len(remainder) != 3 {
		t.Fatalf("expected 3 remainder records, got %d", len(remainder))
	}
	for i, want := range []string{"a", "b", "c"} {
		if remainder[i].record.ID != want {
			t.Fatalf("remainder %d: expected %s, got %s", i, want, remainder[i].record.ID)
		}
	}
}
