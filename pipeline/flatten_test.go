package pipeline

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/models"
)

func newTestPipeline() *Pipeline {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New("golang", log)
}

func testTime(offset int) time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
}

func node(id string, replies ...models.CommentNode) models.CommentNode {
	return models.CommentNode{
		ID:        id,
		Body:      "body of " + id,
		CreatedAt: testTime(len(id)),
		Replies:   replies,
	}
}

func TestFlattenCompleteness(t *testing.T) {
	p := newTestPipeline()

	forest := []models.CommentNode{
		node("c1",
			node("c2", node("c3")),
			node("c4"),
		),
		node("c5"),
	}

	flat := p.Flatten("p1", forest)

	if len(flat) != 5 {
		t.Fatalf("Flatten() emitted %d records; want 5", len(flat))
	}

	seen := make(map[string]int)
	for _, c := range flat {
		seen[c.CommentID]++
	}
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		if seen[id] != 1 {
			t.Errorf("comment %s emitted %d times; want 1", id, seen[id])
		}
	}
}

func TestFlattenPreOrder(t *testing.T) {
	p := newTestPipeline()

	forest := []models.CommentNode{
		node("c1",
			node("c2", node("c3")),
			node("c4"),
		),
		node("c5"),
	}

	flat := p.Flatten("p1", forest)

	got := make([]string, 0, len(flat))
	for _, c := range flat {
		got = append(got, c.CommentID)
	}

	// parent before descendants, siblings in original order
	want := []string{"c1", "c2", "c3", "c4", "c5"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Flatten() order = %v; want %v", got, want)
		}
	}
}

func TestFlattenParentLinkage(t *testing.T) {
	p := newTestPipeline()

	forest := []models.CommentNode{
		node("c1", node("c2")),
	}

	flat := p.Flatten("p1", forest)

	tests := []struct {
		commentID string
		parentID  string
	}{
		{"c1", "p1"}, // root links to the owning post
		{"c2", "c1"}, // nested links to its structural parent
	}
	for _, tc := range tests {
		var found *models.FlatComment
		for i := range flat {
			if flat[i].CommentID == tc.commentID {
				found = &flat[i]
			}
		}
		if found == nil {
			t.Fatalf("comment %s not emitted", tc.commentID)
		}
		if found.ParentID != tc.parentID {
			t.Errorf("comment %s parent = %q; want %q", tc.commentID, found.ParentID, tc.parentID)
		}
		if found.PostID != "p1" {
			t.Errorf("comment %s post = %q; want p1", tc.commentID, found.PostID)
		}
	}
}

func TestFlattenDeepThread(t *testing.T) {
	p := newTestPipeline()

	// a reply chain far deeper than any realistic thread
	const depth = 50000
	chain := node(fmt.Sprintf("c%d", depth))
	for i := depth - 1; i >= 1; i-- {
		chain = models.CommentNode{
			ID:        fmt.Sprintf("c%d", i),
			Body:      "b",
			CreatedAt: testTime(i % 60),
			Replies:   []models.CommentNode{chain},
		}
	}

	flat := p.Flatten("p1", []models.CommentNode{chain})

	if len(flat) != depth {
		t.Fatalf("Flatten() emitted %d records; want %d", len(flat), depth)
	}
	if flat[0].ParentID != "p1" {
		t.Errorf("first comment parent = %q; want p1", flat[0].ParentID)
	}
	if flat[depth-1].ParentID != fmt.Sprintf("c%d", depth-1) {
		t.Errorf("deepest comment parent = %q; want c%d", flat[depth-1].ParentID, depth-1)
	}
}

func TestFlattenSkipsMalformedNode(t *testing.T) {
	p := newTestPipeline()

	forest := []models.CommentNode{
		{
			// missing ID: the node is dropped but its child is still visited
			Body:      "deleted",
			CreatedAt: testTime(0),
			Replies:   []models.CommentNode{node("c2")},
		},
		{
			ID:      "c3",
			Body:    "no timestamp",
			Replies: nil,
		},
		node("c4"),
	}

	flat := p.Flatten("p1", forest)

	got := make([]string, 0, len(flat))
	for _, c := range flat {
		got = append(got, c.CommentID)
	}
	want := []string{"c2", "c4"}
	if len(got) != len(want) {
		t.Fatalf("Flatten() emitted %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Flatten() emitted %v; want %v", got, want)
		}
	}

	// the orphaned child carries its malformed parent's empty id
	if flat[0].ParentID != "" {
		t.Errorf("orphan parent = %q; want empty", flat[0].ParentID)
	}
}

func TestFlattenEmptyForest(t *testing.T) {
	p := newTestPipeline()

	flat := p.Flatten("p1", nil)
	if len(flat) != 0 {
		t.Errorf("Flatten(nil) emitted %d records; want 0", len(flat))
	}
}
