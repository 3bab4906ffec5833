package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"RedditCurator/internal/domain"
)

const (
	moreChildrenBatch = 100
	maxMoreRounds     = 50
)

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	Score        int     `json:"score"`
	URL          string  `json:"url"`
	CreatedUTC   float64 `json:"created_utc"`
	NumComments  int     `json:"num_comments"`
	Flair        string  `json:"link_flair_text"`
	Author       string  `json:"author"`
	Over18       bool    `json:"over_18"`
}

type commentData struct {
	ID         string          `json:"id"`
	ParentID   string          `json:"parent_id"`
	Body       string          `json:"body"`
	BodyHTML   string          `json:"body_html"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Author     string          `json:"author"`
	Replies    json.RawMessage `json:"replies"`
}

type moreData struct {
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Children []string `json:"children"`
}

type moreChildrenResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

func (p postData) toItem(comments []domain.CommentItem) domain.ContentItem {
	body := htmlText(p.SelftextHTML)
	if body == "" {
		body = p.Selftext
	}
	return domain.ContentItem{
		ID:          p.ID,
		Title:       p.Title,
		Body:        body,
		Score:       p.Score,
		URL:         p.URL,
		CreatedAt:   unixUTC(p.CreatedUTC),
		NumComments: p.NumComments,
		Flair:       p.Flair,
		Author:      authorOrDeleted(p.Author),
		Comments:    comments,
	}
}

// thread is an arena of comments keyed by id plus the ordered child lists
// needed to rebuild the reply forest without recursion. pending holds ids for
// /api/morechildren; deep holds parents of "continue this thread" stubs,
// which Reddit only serves as a permalink of the parent comment.
type thread struct {
	postID    string
	nodes     map[string]commentData
	order     []string
	children  map[string][]string
	pending   []string
	asked     map[string]struct{}
	deep      []string
	deepAsked map[string]struct{}
}

func newThread(postID string) *thread {
	return &thread{
		postID:    postID,
		nodes:     map[string]commentData{},
		children:  map[string][]string{},
		asked:     map[string]struct{}{},
		deepAsked: map[string]struct{}{},
	}
}

// absorb walks listing children and nested reply listings with a work queue.
func (t *thread) absorb(things []thing) error {
	work := append([]thing(nil), things...)
	for len(work) > 0 {
		th := work[0]
		work = work[1:]

		switch th.Kind {
		case "t1":
			var c commentData
			if err := json.Unmarshal(th.Data, &c); err != nil {
				return fmt.Errorf("decode comment: %w", err)
			}
			t.add(c)

			replies := bytes.TrimSpace(c.Replies)
			if len(replies) > 0 && replies[0] == '{' {
				var nested listing
				if err := json.Unmarshal(replies, &nested); err != nil {
					return fmt.Errorf("decode replies of %s: %w", c.ID, err)
				}
				work = append(work, nested.Data.Children...)
			}
		case "more":
			var m moreData
			if err := json.Unmarshal(th.Data, &m); err != nil {
				return fmt.Errorf("decode more: %w", err)
			}
			if len(m.Children) == 0 {
				if strings.HasPrefix(m.ParentID, "t1_") {
					t.deep = append(t.deep, stripKind(m.ParentID))
				}
				continue
			}
			t.pending = append(t.pending, m.Children...)
		}
	}
	return nil
}

func (t *thread) add(c commentData) {
	if c.ID == "" {
		return
	}
	if _, exists := t.nodes[c.ID]; exists {
		return
	}
	t.nodes[c.ID] = c
	t.order = append(t.order, c.ID)
	t.children[c.ParentID] = append(t.children[c.ParentID], c.ID)
}

// nextBatch drains up to moreChildrenBatch ids that were never requested.
func (t *thread) nextBatch() []string {
	var batch []string
	for len(t.pending) > 0 && len(batch) < moreChildrenBatch {
		id := t.pending[0]
		t.pending = t.pending[1:]
		if _, done := t.nodes[id]; done {
			continue
		}
		if _, done := t.asked[id]; done {
			continue
		}
		t.asked[id] = struct{}{}
		batch = append(batch, id)
	}
	return batch
}

// nextDeep pops the next continue-this-thread parent that was never fetched.
func (t *thread) nextDeep() (string, bool) {
	for len(t.deep) > 0 {
		id := t.deep[0]
		t.deep = t.deep[1:]
		if _, done := t.deepAsked[id]; done {
			continue
		}
		t.deepAsked[id] = struct{}{}
		return id, true
	}
	return "", false
}

// unexpanded counts stubs that are still waiting for a request.
func (t *thread) unexpanded() int {
	return len(t.pending) + len(t.deep)
}

// flatten emits comments breadth-first from the post root. Comments whose
// parent never arrived are appended in arrival order.
func (t *thread) flatten() []domain.CommentItem {
	out := make([]domain.CommentItem, 0, len(t.nodes))
	visited := make(map[string]struct{}, len(t.nodes))

	queue := append([]string(nil), t.children["t3_"+t.postID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		out = append(out, t.toComment(t.nodes[id]))
		queue = append(queue, t.children["t1_"+id]...)
	}

	for _, id := range t.order {
		if _, ok := visited[id]; !ok {
			out = append(out, t.toComment(t.nodes[id]))
		}
	}
	return out
}

func (t *thread) toComment(c commentData) domain.CommentItem {
	body := htmlText(c.BodyHTML)
	if body == "" {
		body = c.Body
	}
	return domain.CommentItem{
		ID:        c.ID,
		PostID:    t.postID,
		ParentID:  stripKind(c.ParentID),
		Body:      body,
		Score:     c.Score,
		CreatedAt: unixUTC(c.CreatedUTC),
		Author:    authorOrDeleted(c.Author),
	}
}

// Thread fetches the full comment forest of a post, expanding "load more"
// stubs through /api/morechildren and "continue this thread" stubs through
// the parent comment's permalink.
func (c *Client) Thread(ctx context.Context, postID string) ([]domain.CommentItem, error) {
	pages, err := c.commentPages(ctx, "/comments/"+url.PathEscape(postID), url.Values{"raw_json": {"1"}, "limit": {"500"}})
	if err != nil {
		return nil, err
	}

	t := newThread(postID)
	if err := t.absorb(pages[1].Data.Children); err != nil {
		return nil, err
	}

	for round := 0; round < maxMoreRounds; round++ {
		if batch := t.nextBatch(); len(batch) > 0 {
			if err := c.expandMore(ctx, t, batch); err != nil {
				return nil, err
			}
			continue
		}

		parent, ok := t.nextDeep()
		if !ok {
			break
		}
		path := "/comments/" + url.PathEscape(postID) + "/_/" + url.PathEscape(parent)
		deep, err := c.commentPages(ctx, path, url.Values{"raw_json": {"1"}})
		if err != nil {
			return nil, fmt.Errorf("continue thread %s of %s: %w", parent, postID, err)
		}
		if err := t.absorb(deep[1].Data.Children); err != nil {
			return nil, err
		}
	}

	if left := t.unexpanded(); left > 0 {
		c.logger.Warn("comment expansion stopped early", "post_id", postID, "unexpanded", left)
	}
	return t.flatten(), nil
}

// commentPages loads a post permalink, which answers with the post listing
// followed by the comment listing.
func (c *Client) commentPages(ctx context.Context, path string, query url.Values) ([]listing, error) {
	var pages []listing
	if err := c.getJSON(ctx, path, query, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, fmt.Errorf("%s: expected post and comment listings, got %d", path, len(pages))
	}
	return pages, nil
}

func (c *Client) expandMore(ctx context.Context, t *thread, batch []string) error {
	var resp moreChildrenResponse
	query := url.Values{
		"api_type": {"json"},
		"link_id":  {"t3_" + t.postID},
		"children": {strings.Join(batch, ",")},
		"raw_json": {"1"},
	}
	if err := c.getJSON(ctx, "/api/morechildren", query, &resp); err != nil {
		return fmt.Errorf("expand comments of %s: %w", t.postID, err)
	}
	if len(resp.JSON.Errors) > 0 {
		return fmt.Errorf("expand comments of %s: %v", t.postID, resp.JSON.Errors)
	}
	return t.absorb(resp.JSON.Data.Things)
}

func unixUTC(seconds float64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(seconds), 0).UTC()
}

func stripKind(fullname string) string {
	if _, id, ok := strings.Cut(fullname, "_"); ok {
		return id
	}
	return fullname
}

func authorOrDeleted(author string) string {
	if author == "" {
		return domain.DeletedAuthor
	}
	return author
}
