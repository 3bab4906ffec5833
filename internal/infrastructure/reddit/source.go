package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"

	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
	"RedditCurator/internal/source"
)

const maxPageSize = 100

// Source streams subreddit listings or search results.
type Source struct {
	client *Client
	logger *slog.Logger
}

var _ source.Strategy = (*Source)(nil)

// NewSource wraps an API client.
func NewSource(client *Client, logger *slog.Logger) *Source {
	return &Source{client: client, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *Source) Name() string {
	return "reddit"
}

// Open authenticates and confirms the subreddit exists before any post is
// fetched, so setup failures surface here rather than mid-run.
func (s *Source) Open(ctx context.Context, req domain.SourceRequest) (ports.ItemStream, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: no subreddit given", domain.ErrSourceUnavailable)
	}
	if err := s.client.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("%w: authenticate: %w", domain.ErrSourceUnavailable, err)
	}

	var about struct {
		Kind string `json:"kind"`
		Data struct {
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	if err := s.client.getJSON(ctx, "/r/"+url.PathEscape(req.Name)+"/about", url.Values{"raw_json": {"1"}}, &about); err != nil {
		return nil, fmt.Errorf("%w: subreddit %s: %w", domain.ErrSourceUnavailable, req.Name, err)
	}
	if about.Kind != "t5" {
		return nil, fmt.Errorf("%w: subreddit %s not found", domain.ErrSourceUnavailable, req.Name)
	}

	s.logger.Info("subreddit opened", "subreddit", about.Data.DisplayName, "query", req.Query, "sort", req.Sort, "limit", req.Limit)
	return &stream{client: s.client, req: req}, nil
}

type stream struct {
	client    *Client
	req       domain.SourceRequest
	after     string
	page      []postData
	pos       int
	yielded   int
	exhausted bool
}

// Next returns the next post with its full thread. A failed thread fetch is
// reported as an item error; a failed listing page ends the stream.
func (s *stream) Next(ctx context.Context) (domain.ContentItem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ContentItem{}, err
		}
		if s.req.Limit > 0 && s.yielded >= s.req.Limit {
			return domain.ContentItem{}, io.EOF
		}

		if s.pos >= len(s.page) {
			if s.exhausted {
				return domain.ContentItem{}, io.EOF
			}
			if err := s.fetchPage(ctx); err != nil {
				return domain.ContentItem{}, err
			}
			continue
		}

		post := s.page[s.pos]
		s.pos++
		if post.Over18 && !s.req.IncludeOver18 {
			continue
		}
		s.yielded++

		comments, err := s.client.Thread(ctx, post.ID)
		if err != nil {
			return domain.ContentItem{}, &domain.ItemError{ItemID: post.ID, Title: post.Title, Err: err}
		}
		return post.toItem(comments), nil
	}
}

func (s *stream) Close() error {
	return nil
}

func (s *stream) fetchPage(ctx context.Context) error {
	pageSize := maxPageSize
	if s.req.Limit > 0 && s.req.Limit-s.yielded < pageSize {
		pageSize = s.req.Limit - s.yielded
	}

	path, query := listingQuery(s.req, pageSize)
	if s.after != "" {
		query.Set("after", s.after)
	}

	var page listing
	if err := s.client.getJSON(ctx, path, query, &page); err != nil {
		return fmt.Errorf("listing page: %w", err)
	}

	s.page = s.page[:0]
	s.pos = 0
	for _, child := range page.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return fmt.Errorf("decode post: %w", err)
		}
		s.page = append(s.page, p)
	}

	s.after = page.Data.After
	if s.after == "" || len(page.Data.Children) == 0 {
		s.exhausted = true
	}
	return nil
}

func listingQuery(req domain.SourceRequest, pageSize int) (string, url.Values) {
	sort := req.Sort
	if sort == "" {
		sort = "top"
	}

	query := url.Values{
		"limit":    {strconv.Itoa(pageSize)},
		"raw_json": {"1"},
	}
	if req.TimeFilter != "" {
		query.Set("t", req.TimeFilter)
	}

	sub := "/r/" + url.PathEscape(req.Name)
	if req.Query != "" {
		query.Set("q", req.Query)
		query.Set("restrict_sr", "1")
		query.Set("sort", sort)
		if req.IncludeOver18 {
			query.Set("include_over_18", "on")
		}
		return sub + "/search", query
	}
	return sub + "/" + url.PathEscape(sort), query
}
