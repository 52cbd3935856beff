package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/models"
)

// Classify assigns a role to every flattened comment by membership
// test against the batch-global ID sets: a parent that is a selected
// post makes the comment a COMMENT, a parent that is another comment in
// the batch makes it a REPLY. A comment whose parent matches neither —
// parent deleted upstream, or referencing a post outside the selection
// — falls back to COMMENT. The fallback mirrors the historical
// behavior of the pipeline; it conflates true post-replies with
// orphaned replies, so each occurrence is logged for visibility.
func (p *Pipeline) Classify(comments []models.FlatComment, postIDs, commentIDs map[string]struct{}) []models.ClassifiedComment {
	classified := make([]models.ClassifiedComment, 0, len(comments))
	for _, comment := range comments {
		role := models.RoleComment
		if _, ok := postIDs[comment.ParentID]; !ok {
			if _, ok := commentIDs[comment.ParentID]; ok {
				role = models.RoleReply
			} else {
				p.log.WithFields(logrus.Fields{
					"comment_id": comment.CommentID,
					"parent_id":  comment.ParentID,
				}).Warn("Unresolvable parent, classifying as COMMENT")
			}
		}
		classified = append(classified, models.ClassifiedComment{
			FlatComment: comment,
			Role:        role,
		})
	}
	return classified
}
