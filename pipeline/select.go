package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/models"
)

// SelectPosts filters posts to the closed day-granularity window
// [start, end] (both midnight UTC) and keeps the top n by score.
// The sort is stable, so posts with equal scores keep their fetch
// order and the output stays deterministic for a fixed input order.
// Returns ErrNoPosts (wrapped with the window for diagnostics) when
// nothing falls inside the window.
func (p *Pipeline) SelectPosts(posts []models.Post, start, end time.Time, n int) ([]models.Post, error) {
	inWindow := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		day := post.CreatedAt.UTC().Truncate(24 * time.Hour)
		if day.Before(start) || day.After(end) {
			continue
		}
		inWindow = append(inWindow, post)
	}

	if len(inWindow) == 0 {
		return nil, fmt.Errorf("subreddit %s, window %s to %s, %d posts fetched: %w",
			p.entity,
			start.Format("2006-01-02"), end.Format("2006-01-02"),
			len(posts), ErrNoPosts)
	}

	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].Score > inWindow[j].Score
	})

	if len(inWindow) > n {
		inWindow = inWindow[:n]
	}

	p.log.WithFields(logrus.Fields{
		"entity":   p.entity,
		"selected": len(inWindow),
		"fetched":  len(posts),
		"top_n":    n,
	}).Info("Selected top posts in date window")

	return inWindow, nil
}
