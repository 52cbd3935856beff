package api

import (
	"encoding/json"
	"testing"
)

func mustListing(t *testing.T, raw string) []redditThing {
	t.Helper()
	var listing redditListing
	if err := json.Unmarshal([]byte(raw), &listing); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return listing.Data.Children
}

func TestForestBuilderUnknownParentKeptAsRoot(t *testing.T) {
	b := newForestBuilder("p1", testLogger())

	// parent t1_gone never appears in the batch
	things := mustListing(t, `{"kind":"Listing","data":{"children":[
		{"kind":"t1","data":{"id":"c1","body":"stray","created_utc":1717243300,"parent_id":"t1_gone","replies":""}}
	]}}`)
	b.addThings(things, "")

	forest := b.forest()
	if len(forest) != 1 {
		t.Fatalf("forest has %d roots; want 1 (stray comment kept, not dropped)", len(forest))
	}
	if forest[0].ID != "c1" {
		t.Errorf("root = %s; want c1", forest[0].ID)
	}
}

func TestForestBuilderDeduplicatesMoreIDs(t *testing.T) {
	b := newForestBuilder("p1", testLogger())

	b.queueMore([]string{"a", "b"})
	b.queueMore([]string{"b", "c"})

	if b.pendingMore() != 3 {
		t.Fatalf("pendingMore() = %d; want 3", b.pendingMore())
	}

	batch := b.takeMore(2)
	if len(batch) != 2 || batch[0] != "a" || batch[1] != "b" {
		t.Errorf("takeMore(2) = %v; want [a b]", batch)
	}
	if b.pendingMore() != 1 {
		t.Errorf("pendingMore() after take = %d; want 1", b.pendingMore())
	}
}

func TestForestBuilderSkipsUndecodableEntries(t *testing.T) {
	b := newForestBuilder("p1", testLogger())

	things := []redditThing{
		{Kind: "t1", Data: json.RawMessage(`"not an object"`)},
		{Kind: "t1", Data: json.RawMessage(`{"id":"c1","body":"ok","created_utc":1717243300,"parent_id":"t3_p1","replies":""}`)},
	}
	b.addThings(things, "")

	forest := b.forest()
	if len(forest) != 1 || forest[0].ID != "c1" {
		t.Fatalf("forest = %+v; want the single well-formed comment", forest)
	}
}
