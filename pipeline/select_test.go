package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/brettboylen/reddit-export/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func post(id string, created time.Time, score int) models.Post {
	return models.Post{
		ID:        id,
		SelfText:  "text of " + id,
		CreatedAt: created,
		Score:     score,
	}
}

func TestSelectPostsWindow(t *testing.T) {
	p := newTestPipeline()

	start := day(2024, 6, 1)
	end := day(2024, 6, 30)

	posts := []models.Post{
		post("before", day(2024, 5, 31).Add(23*time.Hour), 100),
		post("on_start", start.Add(5*time.Minute), 1),
		post("mid", day(2024, 6, 15), 2),
		post("on_end", end.Add(23*time.Hour+59*time.Minute), 3),
		post("after", day(2024, 7, 1), 100),
	}

	selected, err := p.SelectPosts(posts, start, end, 10)
	if err != nil {
		t.Fatalf("SelectPosts() error = %v", err)
	}

	got := make(map[string]bool)
	for _, s := range selected {
		got[s.ID] = true
	}
	if len(selected) != 3 || !got["on_start"] || !got["mid"] || !got["on_end"] {
		t.Errorf("SelectPosts() selected %v; want on_start, mid, on_end", got)
	}
}

func TestSelectPostsTopN(t *testing.T) {
	p := newTestPipeline()

	start := day(2024, 6, 1)
	end := day(2024, 6, 30)

	posts := []models.Post{
		post("p1", day(2024, 6, 2), 10),
		post("p2", day(2024, 6, 3), 50),
		post("p3", day(2024, 6, 4), 30),
		post("p4", day(2024, 6, 5), 40),
	}

	selected, err := p.SelectPosts(posts, start, end, 2)
	if err != nil {
		t.Fatalf("SelectPosts() error = %v", err)
	}

	if len(selected) != 2 {
		t.Fatalf("SelectPosts() returned %d posts; want 2", len(selected))
	}
	if selected[0].ID != "p2" || selected[1].ID != "p4" {
		t.Errorf("SelectPosts() = [%s %s]; want [p2 p4]", selected[0].ID, selected[1].ID)
	}

	// every excluded in-window post scores no higher than the cut
	minIncluded := selected[len(selected)-1].Score
	for _, excluded := range []string{"p1", "p3"} {
		for _, pp := range posts {
			if pp.ID == excluded && pp.Score > minIncluded {
				t.Errorf("excluded post %s score %d > min included %d", pp.ID, pp.Score, minIncluded)
			}
		}
	}
}

func TestSelectPostsStableTies(t *testing.T) {
	p := newTestPipeline()

	start := day(2024, 6, 1)
	end := day(2024, 6, 30)

	posts := []models.Post{
		post("first", day(2024, 6, 2), 10),
		post("second", day(2024, 6, 3), 10),
		post("third", day(2024, 6, 4), 10),
	}

	selected, err := p.SelectPosts(posts, start, end, 3)
	if err != nil {
		t.Fatalf("SelectPosts() error = %v", err)
	}

	// equal scores keep fetch order so repeated runs stay deterministic
	want := []string{"first", "second", "third"}
	for i := range want {
		if selected[i].ID != want[i] {
			t.Errorf("selected[%d] = %s; want %s", i, selected[i].ID, want[i])
		}
	}
}

func TestSelectPostsEmptyWindow(t *testing.T) {
	p := newTestPipeline()

	posts := []models.Post{
		post("p1", day(2023, 1, 1), 10),
	}

	_, err := p.SelectPosts(posts, day(2024, 6, 1), day(2024, 6, 30), 10)
	if !errors.Is(err, ErrNoPosts) {
		t.Fatalf("SelectPosts() error = %v; want ErrNoPosts", err)
	}
}
