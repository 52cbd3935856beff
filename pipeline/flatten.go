package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/models"
)

// frame is one pending node on the explicit traversal stack.
type frame struct {
	node     *models.CommentNode
	parentID string
}

// Flatten converts one post's comment forest into a flat, ordered slice
// of comments using a pre-order depth-first traversal: each parent is
// emitted before any of its descendants, siblings in their original
// order. The traversal uses an explicit stack rather than recursion so
// that threads hundreds of levels deep cannot exhaust the call stack.
//
// Root comments get parentID = postID; nested comments get their
// structural parent's comment ID. A node missing its ID or timestamp is
// skipped and logged, but its children are still visited — one corrupt
// node must not discard the rest of the thread.
func (p *Pipeline) Flatten(postID string, forest []models.CommentNode) []models.FlatComment {
	flat := make([]models.FlatComment, 0, len(forest))

	// Push roots in reverse so the first sibling is popped first.
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: &forest[i], parentID: postID})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := top.node
		if node.ID == "" || node.CreatedAt.IsZero() {
			p.log.WithFields(logrus.Fields{
				"post_id":    postID,
				"comment_id": node.ID,
			}).Warn("Skipping malformed comment node")
		} else {
			flat = append(flat, models.FlatComment{
				CommentID: node.ID,
				PostID:    postID,
				ParentID:  top.parentID,
				Body:      node.Body,
				CreatedAt: node.CreatedAt,
			})
		}

		for i := len(node.Replies) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: &node.Replies[i], parentID: node.ID})
		}
	}

	return flat
}
