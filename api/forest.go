package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/models"
)

// treeNode is the mutable comment node used while the forest is being
// assembled. Children expanded out of "more" stubs arrive in later
// requests and are attached by parent fullname, so nodes have to stay
// addressable until the whole thread is materialized.
type treeNode struct {
	id         string
	body       string
	createdUTC float64
	children   []*treeNode
}

// forestBuilder assembles one post's comment tree from the thread
// listing plus any number of morechildren batches.
type forestBuilder struct {
	postID   string
	roots    []*treeNode
	nodes    map[string]*treeNode
	moreIDs  []string
	seenMore map[string]struct{}
	log      *logrus.Logger
}

func newForestBuilder(postID string, log *logrus.Logger) *forestBuilder {
	return &forestBuilder{
		postID:   postID,
		nodes:    make(map[string]*treeNode),
		seenMore: make(map[string]struct{}),
		log:      log,
	}
}

// addThings folds a slice of listing entries into the tree. Comment
// entries are attached under their parent; "more" stubs are queued for
// expansion. fallbackParent is used when an entry carries no parent
// fullname of its own.
func (b *forestBuilder) addThings(things []redditThing, fallbackParent string) {
	for _, thing := range things {
		switch thing.Kind {
		case "t1":
			b.addComment(thing.Data, fallbackParent)
		case "more":
			var data redditMoreData
			if err := json.Unmarshal(thing.Data, &data); err != nil {
				b.log.WithError(err).Warn("Skipping undecodable more stub")
				continue
			}
			b.queueMore(data.Children)
		}
	}
}

func (b *forestBuilder) addComment(raw json.RawMessage, fallbackParent string) {
	var data redditCommentData
	if err := json.Unmarshal(raw, &data); err != nil {
		b.log.WithError(err).Warn("Skipping undecodable comment entry")
		return
	}

	parent := data.ParentID
	if parent == "" {
		parent = fallbackParent
	}

	node := &treeNode{
		id:         data.ID,
		body:       data.Body,
		createdUTC: data.CreatedUTC,
	}
	b.attach(node, parent)
	if data.ID != "" {
		b.nodes[data.ID] = node
	}

	// Nested replies arrive inline as a listing; an empty string means none.
	if len(data.Replies) > 0 && data.Replies[0] == '{' {
		var replies redditListing
		if err := json.Unmarshal(data.Replies, &replies); err != nil {
			b.log.WithError(err).WithField("comment_id", data.ID).Warn("Skipping undecodable reply listing")
			return
		}
		b.addThings(replies.Data.Children, "t1_"+data.ID)
	}
}

// attach places a node under its parent fullname: t3_{post} makes it a
// root, t1_{id} nests it under that comment. A parent that cannot be
// located is logged and the node is kept as a root rather than dropped,
// so its text still reaches the output.
func (b *forestBuilder) attach(node *treeNode, parentFullname string) {
	if strings.HasPrefix(parentFullname, "t1_") {
		if parent, ok := b.nodes[strings.TrimPrefix(parentFullname, "t1_")]; ok {
			parent.children = append(parent.children, node)
			return
		}
		b.log.WithFields(logrus.Fields{
			"comment_id": node.id,
			"parent":     parentFullname,
		}).Warn("Parent comment not found, keeping comment at thread root")
	}
	b.roots = append(b.roots, node)
}

func (b *forestBuilder) queueMore(ids []string) {
	for _, id := range ids {
		if _, ok := b.seenMore[id]; ok {
			continue
		}
		b.seenMore[id] = struct{}{}
		b.moreIDs = append(b.moreIDs, id)
	}
}

func (b *forestBuilder) pendingMore() int {
	return len(b.moreIDs)
}

// takeMore removes and returns up to n queued "more" ids.
func (b *forestBuilder) takeMore(n int) []string {
	if n > len(b.moreIDs) {
		n = len(b.moreIDs)
	}
	ids := b.moreIDs[:n]
	b.moreIDs = b.moreIDs[n:]
	return ids
}

// forest converts the assembled tree into the immutable CommentNode
// forest handed to the pipeline.
func (b *forestBuilder) forest() []models.CommentNode {
	forest := make([]models.CommentNode, 0, len(b.roots))
	for _, root := range b.roots {
		forest = append(forest, toCommentNode(root))
	}
	return forest
}

func toCommentNode(n *treeNode) models.CommentNode {
	node := models.CommentNode{
		ID:         n.id,
		Body:       n.body,
		CreatedUTC: n.createdUTC,
		CreatedAt:  time.Unix(int64(n.createdUTC), 0).UTC(),
	}
	for _, child := range n.children {
		node.Replies = append(node.Replies, toCommentNode(child))
	}
	return node
}
