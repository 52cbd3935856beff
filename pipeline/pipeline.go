package pipeline

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/models"
)

// ErrNoPosts is reported when zero posts fall inside the configured
// date window. It is an expected outcome rather than a crash; callers
// decide whether to abort or retry with a wider window.
var ErrNoPosts = errors.New("no posts in date window")

// Pipeline turns selected posts and their fully materialized comment
// forests into the flat output table. Every stage is a pure,
// synchronous transformation over in-memory slices; the pipeline holds
// no state between runs, so running it twice on the same input yields
// identical output.
type Pipeline struct {
	entity string
	log    *logrus.Logger
}

// New creates a pipeline for one entity (the subreddit name stamped
// into every output row).
func New(entity string, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		entity: entity,
		log:    log,
	}
}

// Process runs the post-selection-onward stages for one batch:
// flatten every forest, classify, link parent context, format. It
// returns the formatted table plus the enriched comments for callers
// that archive them. forests is keyed by owning post ID; a missing key
// simply means the post had no comments.
func (p *Pipeline) Process(selected []models.Post, forests map[string][]models.CommentNode) ([]models.Record, []models.EnrichedComment) {
	flat := make([]models.FlatComment, 0)
	for _, post := range selected {
		flat = append(flat, p.Flatten(post.ID, forests[post.ID])...)
	}

	p.log.WithFields(logrus.Fields{
		"entity":   p.entity,
		"posts":    len(selected),
		"comments": len(flat),
	}).Info("Flattened comment forests")

	classified := p.Classify(flat, idSet(selected), commentIDSet(flat))
	enriched := p.Link(classified, postBodies(selected), commentBodies(flat))

	return p.Format(selected, enriched), enriched
}

// idSet collects the selected post IDs for membership tests.
func idSet(posts []models.Post) map[string]struct{} {
	ids := make(map[string]struct{}, len(posts))
	for _, post := range posts {
		ids[post.ID] = struct{}{}
	}
	return ids
}

// commentIDSet collects the batch-wide comment IDs for membership tests.
func commentIDSet(comments []models.FlatComment) map[string]struct{} {
	ids := make(map[string]struct{}, len(comments))
	for _, comment := range comments {
		ids[comment.CommentID] = struct{}{}
	}
	return ids
}

// postBodies builds the post-id -> body lookup used for COMMENT context.
func postBodies(posts []models.Post) map[string]string {
	bodies := make(map[string]string, len(posts))
	for _, post := range posts {
		bodies[post.ID] = post.SelfText
	}
	return bodies
}

// commentBodies builds the comment-id -> body lookup used for REPLY context.
func commentBodies(comments []models.FlatComment) map[string]string {
	bodies := make(map[string]string, len(comments))
	for _, comment := range comments {
		bodies[comment.CommentID] = comment.Body
	}
	return bodies
}
