package domain

import (
	"sort"
	"time"
)

// Comment is one entry in a room's discussion thread. Comments form a
// forest keyed by ParentID; a nil ParentID means top-level.
type Comment struct {
	ID             string              `json:"id"`
	ParentID       *string             `json:"parent_id,omitempty"`
	Content        string              `json:"content"`
	AuthorID       string              `json:"author_id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Reactions      map[string][]string `json:"reactions,omitempty"`
	ReactionCounts map[string]int      `json:"reaction_counts,omitempty"`
}

// Clone returns a deep copy so callers can hand comments across goroutine
// boundaries without aliasing the engine's state.
func (c *Comment) Clone() *Comment {
	dup := *c
	if c.ParentID != nil {
		pid := *c.ParentID
		dup.ParentID = &pid
	}
	if c.Reactions != nil {
		dup.Reactions = make(map[string][]string, len(c.Reactions))
		for k, users := range c.Reactions {
			dup.Reactions[k] = append([]string(nil), users...)
		}
	}
	if c.ReactionCounts != nil {
		dup.ReactionCounts = make(map[string]int, len(c.ReactionCounts))
		for k, n := range c.ReactionCounts {
			dup.ReactionCounts[k] = n
		}
	}
	return &dup
}

// HasReaction reports whether the user currently has the given reaction
// on this comment.
func (c *Comment) HasReaction(reactionType, userID string) bool {
	for _, u := range c.Reactions[reactionType] {
		if u == userID {
			return true
		}
	}
	return false
}

// ToggleReaction adds the user to the reaction set if absent, removes
// them if present, and keeps ReactionCounts equal to the set sizes.
// A user appears at most once per reaction type.
func (c *Comment) ToggleReaction(reactionType, userID string) {
	if c.Reactions == nil {
		c.Reactions = make(map[string][]string)
	}
	if c.ReactionCounts == nil {
		c.ReactionCounts = make(map[string]int)
	}

	users := c.Reactions[reactionType]
	for i, u := range users {
		if u == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(c.Reactions, reactionType)
				delete(c.ReactionCounts, reactionType)
			} else {
				c.Reactions[reactionType] = users
				c.ReactionCounts[reactionType] = len(users)
			}
			return
		}
	}

	c.Reactions[reactionType] = append(users, userID)
	c.ReactionCounts[reactionType] = len(c.Reactions[reactionType])
}

// SetReactions replaces the reaction state wholesale, recomputing counts
// from the sets so the count invariant cannot drift even if the server
// sent inconsistent numbers.
func (c *Comment) SetReactions(reactions map[string][]string) {
	if len(reactions) == 0 {
		c.Reactions = nil
		c.ReactionCounts = nil
		return
	}
	c.Reactions = make(map[string][]string, len(reactions))
	c.ReactionCounts = make(map[string]int, len(reactions))
	for k, users := range reactions {
		c.Reactions[k] = append([]string(nil), users...)
		c.ReactionCounts[k] = len(users)
	}
}

// ThreadRootID is the sentinel grouping key for top-level comments when
// building the thread view.
const ThreadRootID = ""

// ThreadNode is one comment with its resolved replies, for rendering.
type ThreadNode struct {
	Comment *Comment
	Replies []*ThreadNode
}

// BuildThread groups comments into a forest by parent ID. Replies whose
// parent is not in the set are tolerated: they surface as additional
// roots rather than failing the whole build. Siblings are ordered by
// creation time, then ID for a stable tie-break.
func BuildThread(comments []*Comment) []*ThreadNode {
	byID := make(map[string]*ThreadNode, len(comments))
	for _, c := range comments {
		byID[c.ID] = &ThreadNode{Comment: c}
	}

	var roots []*ThreadNode
	for _, c := range comments {
		node := byID[c.ID]
		parentID := ThreadRootID
		if c.ParentID != nil {
			parentID = *c.ParentID
		}
		if parent, ok := byID[parentID]; ok && parentID != ThreadRootID && parentID != c.ID {
			parent.Replies = append(parent.Replies, node)
		} else {
			// Top-level, or a dangling parent reference.
			roots = append(roots, node)
		}
	}

	sortThread(roots)
	return roots
}

func sortThread(nodes []*ThreadNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Comment, nodes[j].Comment
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for _, n := range nodes {
		sortThread(n.Replies)
	}
}
