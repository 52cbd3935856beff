package pipeline

import (
	"github.com/brettboylen/reddit-export/models"
)

// dayFormat renders a timestamp as DD-MM-YYYY, the output table's
// day-granularity date column.
const dayFormat = "02-01-2006"

// Format projects posts and enriched comments into the unified row
// schema: all posts first, in their selected order, then all comments
// in the order earlier stages produced them. A post is its own context,
// so its parent description equals its description. Dates are truncated
// to calendar day in UTC.
func (p *Pipeline) Format(posts []models.Post, comments []models.EnrichedComment) []models.Record {
	records := make([]models.Record, 0, len(posts)+len(comments))

	for _, post := range posts {
		records = append(records, models.Record{
			Platform:          models.Platform,
			Entity:            p.entity,
			Date:              post.CreatedAt.UTC().Format(dayFormat),
			Type:              "POST",
			ID:                post.ID,
			Description:       post.SelfText,
			ParentDescription: post.SelfText,
		})
	}

	for _, comment := range comments {
		records = append(records, models.Record{
			Platform:          models.Platform,
			Entity:            p.entity,
			Date:              comment.CreatedAt.UTC().Format(dayFormat),
			Type:              string(comment.Role),
			ID:                comment.CommentID,
			Description:       comment.Body,
			ParentDescription: comment.ParentBody,
		})
	}

	return records
}
