package pipeline

import (
	"github.com/brettboylen/reddit-export/models"
)

// Link resolves the parent context of every classified comment with a
// single keyed lookup: post body for a COMMENT, parent comment body for
// a REPLY. Resolution is one hop only — a REPLY's context is always its
// immediate parent's body, never anything further up the chain. A
// parent absent from the lookup (deleted upstream, or the classifier's
// fallback case) degrades to an empty string; it never fails.
func (p *Pipeline) Link(comments []models.ClassifiedComment, postBodies, commentBodies map[string]string) []models.EnrichedComment {
	enriched := make([]models.EnrichedComment, 0, len(comments))
	for _, comment := range comments {
		var parentBody string
		switch comment.Role {
		case models.RoleComment:
			parentBody = postBodies[comment.ParentID]
		case models.RoleReply:
			parentBody = commentBodies[comment.ParentID]
		}
		enriched = append(enriched, models.EnrichedComment{
			ClassifiedComment: comment,
			ParentBody:        parentBody,
		})
	}
	return enriched
}
