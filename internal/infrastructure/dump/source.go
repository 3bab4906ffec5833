// Package dump replays a hierarchical JSON export of posts and their reply
// trees as a content source.
package dump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
	"RedditCurator/internal/source"
)

// PathOption overrides the dump file per request.
const PathOption = "path"

// Source reads posts from a JSON array file.
type Source struct {
	path   string
	logger *slog.Logger
}

var _ source.Strategy = (*Source)(nil)

type rawPost struct {
	ID          string       `json:"ID"`
	Title       string       `json:"Title"`
	Body        string       `json:"Body"`
	URL         string       `json:"URL"`
	Upvotes     int          `json:"Upvotes"`
	CreatedUTC  string       `json:"Created_UTC"`
	NumComments *int         `json:"Number_of_Comments"`
	Flair       string       `json:"Flair"`
	Author      string       `json:"Author"`
	Comments    []rawComment `json:"Comments"`
}

type rawComment struct {
	ID         string       `json:"ID"`
	Body       string       `json:"Body"`
	Upvotes    int          `json:"Upvotes"`
	CreatedUTC string       `json:"Created_UTC"`
	Author     string       `json:"Author"`
	Replies    []rawComment `json:"Replies"`
}

// NewSource binds a default dump path.
func NewSource(path string, logger *slog.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *Source) Name() string {
	return "dump"
}

// Open positions a streaming decoder on the first post.
func (s *Source) Open(ctx context.Context, req domain.SourceRequest) (ports.ItemStream, error) {
	path := s.path
	if p := req.Options[PathOption]; p != "" {
		path = p
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no dump path configured", domain.ErrSourceUnavailable)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('[') {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a JSON array of posts", domain.ErrSourceUnavailable, path)
	}

	s.logger.Debug("dump opened", "path", path, "limit", req.Limit)
	return &stream{file: f, dec: dec, limit: req.Limit}, nil
}

type stream struct {
	file    *os.File
	dec     *json.Decoder
	limit   int
	yielded int
}

// Next decodes one post. Malformed timestamps fail only that post.
func (s *stream) Next(ctx context.Context) (domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.ContentItem{}, err
	}
	if s.limit > 0 && s.yielded >= s.limit {
		return domain.ContentItem{}, io.EOF
	}
	if !s.dec.More() {
		return domain.ContentItem{}, io.EOF
	}

	var raw rawPost
	if err := s.dec.Decode(&raw); err != nil {
		return domain.ContentItem{}, fmt.Errorf("decode post %d: %w", s.yielded+1, err)
	}
	s.yielded++

	item, err := toItem(raw)
	if err != nil {
		return domain.ContentItem{}, &domain.ItemError{ItemID: raw.ID, Title: raw.Title, Err: err}
	}
	return item, nil
}

func (s *stream) Close() error {
	return s.file.Close()
}

func toItem(raw rawPost) (domain.ContentItem, error) {
	created, err := parseTimestamp(raw.CreatedUTC)
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("created time: %w", err)
	}

	comments, err := flatten(raw.ID, raw.Comments)
	if err != nil {
		return domain.ContentItem{}, err
	}

	numComments := len(comments)
	if raw.NumComments != nil {
		numComments = *raw.NumComments
	}

	return domain.ContentItem{
		ID:          raw.ID,
		Title:       raw.Title,
		Body:        raw.Body,
		Score:       raw.Upvotes,
		URL:         raw.URL,
		CreatedAt:   created,
		NumComments: numComments,
		Flair:       raw.Flair,
		Author:      authorOrDeleted(raw.Author),
		Comments:    comments,
	}, nil
}

// flatten walks the reply forest breadth-first with an explicit queue and
// keeps the first occurrence of every comment id.
func flatten(postID string, roots []rawComment) ([]domain.CommentItem, error) {
	type entry struct {
		node   *rawComment
		parent string
	}

	queue := make([]entry, 0, len(roots))
	for i := range roots {
		queue = append(queue, entry{node: &roots[i], parent: postID})
	}

	seen := make(map[string]struct{})
	var out []domain.CommentItem
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]

		node := head.node
		if _, dup := seen[node.ID]; dup || node.ID == "" {
			continue
		}
		seen[node.ID] = struct{}{}

		created, err := parseTimestamp(node.CreatedUTC)
		if err != nil {
			return nil, fmt.Errorf("comment %s created time: %w", node.ID, err)
		}
		out = append(out, domain.CommentItem{
			ID:        node.ID,
			PostID:    postID,
			ParentID:  head.parent,
			Body:      node.Body,
			Score:     node.Upvotes,
			CreatedAt: created,
			Author:    authorOrDeleted(node.Author),
		})

		for i := range node.Replies {
			queue = append(queue, entry{node: &node.Replies[i], parent: node.ID})
		}
	}
	return out, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	if t, err := time.Parse(domain.TimestampLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
	}
	return t.UTC(), nil
}

func authorOrDeleted(author string) string {
	if author == "" {
		return domain.DeletedAuthor
	}
	return author
}
