package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
)

const (
	postFileName     = "post.json"
	commentsFileName = "comments.csv"
)

var (
	summaryHeader  = []string{"Post ID", "Title", "Body", "Upvotes", "URL", "Created UTC", "Num Comments", "Sentiment", "Flair"}
	filteredHeader = []string{"Post ID", "Title", "Body", "Upvotes", "URL", "Created UTC", "Num Comments", "Sentiment Compound", "Flair", "Rejection Reasons"}
	commentsHeader = []string{"Post Id", "Comment ID", "Body", "Upvotes", "Created UTC", "Sentiment"}
)

// FileWriter owns the output tree of one run: two append-only tables plus a
// directory per accepted post.
type FileWriter struct {
	dir      string
	summary  *table
	filtered *table
	logger   *slog.Logger
}

var _ ports.ResultWriter = (*FileWriter)(nil)

type postDocument struct {
	PostID             string                `json:"post_id"`
	Title              string                `json:"title"`
	Body               string                `json:"body"`
	Upvotes            int                   `json:"upvotes"`
	URL                string                `json:"url"`
	CreatedUTC         string                `json:"created_utc"`
	NumComments        int                   `json:"num_comments"`
	Author             string                `json:"author"`
	Sentiment          domain.SentimentScore `json:"sentiment"`
	SentimentEscalated bool                  `json:"sentiment_escalated"`
	Flair              string                `json:"flair"`
	ReputationTerms    []string              `json:"reputation_terms,omitempty"`
	Comments           []commentDocument     `json:"comments"`
}

type commentDocument struct {
	CommentID  string                `json:"comment_id"`
	Body       string                `json:"body"`
	Upvotes    int                   `json:"upvotes"`
	CreatedUTC string                `json:"created_utc"`
	Sentiment  domain.SentimentScore `json:"sentiment"`
}

// OpenFileWriter creates <root>/<name>/ and opens both tables for appending.
// Headers are written only to new or empty files.
func OpenFileWriter(root, name string, logger *slog.Logger) (*FileWriter, error) {
	dir := filepath.Join(root, SafeName(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %w", domain.ErrPersistence, err)
	}

	base := SafeName(name)
	summary, err := openTable(filepath.Join(dir, base+"_posts.csv"), summaryHeader)
	if err != nil {
		return nil, err
	}
	filtered, err := openTable(filepath.Join(dir, base+"_filtered.csv"), filteredHeader)
	if err != nil {
		_ = summary.close()
		return nil, err
	}

	logger.Debug("output tree ready", "dir", dir)
	return &FileWriter{dir: dir, summary: summary, filtered: filtered, logger: logger}, nil
}

// Dir is the run's output directory.
func (w *FileWriter) Dir() string {
	return w.dir
}

// WriteAccepted stores the per-post directory, then appends the summary row.
// On failure nothing of the post is left behind, so the tree never shows a
// post directory without its summary row.
func (w *FileWriter) WriteAccepted(accepted domain.AcceptedItem) (err error) {
	item := accepted.Item
	itemDir := filepath.Join(w.dir, SafeName(item.ID))
	_, statErr := os.Stat(itemDir)
	created := errors.Is(statErr, fs.ErrNotExist)
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir for %s: %w", domain.ErrPersistence, item.ID, err)
	}
	defer func() {
		if err != nil {
			w.discard(itemDir, created)
		}
	}()

	if err := writePostJSON(filepath.Join(itemDir, postFileName), accepted); err != nil {
		return fmt.Errorf("%w: %s for %s: %w", domain.ErrPersistence, postFileName, item.ID, err)
	}
	if err := writeCommentsCSV(filepath.Join(itemDir, commentsFileName), item.ID, accepted.Comments); err != nil {
		return fmt.Errorf("%w: %s for %s: %w", domain.ErrPersistence, commentsFileName, item.ID, err)
	}

	row := append(itemColumns(item), formatCompound(accepted.Verdict.Sentiment.Compound), item.Flair)
	if err := w.summary.append(row); err != nil {
		return fmt.Errorf("%w: summary row for %s: %w", domain.ErrPersistence, item.ID, err)
	}
	return nil
}

// discard removes what a failed WriteAccepted produced. A directory that
// existed before the call keeps everything but the two per-post artifacts.
func (w *FileWriter) discard(itemDir string, created bool) {
	var err error
	if created {
		err = os.RemoveAll(itemDir)
	} else {
		for _, name := range []string{postFileName, commentsFileName} {
			if rmErr := os.Remove(filepath.Join(itemDir, name)); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				err = errors.Join(err, rmErr)
			}
		}
	}
	if err != nil {
		w.logger.Warn("partial post output left behind", "dir", itemDir, "error", err)
	}
}

// WriteRejected appends the post and its reasons to the filtered table.
func (w *FileWriter) WriteRejected(rejected domain.RejectedItem) error {
	item := rejected.Item
	row := append(itemColumns(item),
		formatCompound(rejected.Verdict.Sentiment.Compound),
		item.Flair,
		rejected.Verdict.ReasonText(),
	)
	if err := w.filtered.append(row); err != nil {
		return fmt.Errorf("%w: filtered row for %s: %w", domain.ErrPersistence, item.ID, err)
	}
	return nil
}

// Close flushes and releases both tables.
func (w *FileWriter) Close() error {
	return errors.Join(w.summary.close(), w.filtered.close())
}

// SafeName maps an identifier onto a single path element.
func SafeName(id string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(id))
	if strings.Trim(cleaned, "_") == "" {
		return "unknown"
	}
	return cleaned
}

func itemColumns(item domain.ContentItem) []string {
	return []string{
		item.ID,
		item.Title,
		item.Body,
		strconv.Itoa(item.Score),
		item.URL,
		domain.FormatTimestamp(item.CreatedAt),
		strconv.Itoa(item.NumComments),
	}
}

func formatCompound(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writePostJSON(path string, accepted domain.AcceptedItem) error {
	item := accepted.Item
	doc := postDocument{
		PostID:             item.ID,
		Title:              item.Title,
		Body:               item.Body,
		Upvotes:            item.Score,
		URL:                item.URL,
		CreatedUTC:         domain.FormatTimestamp(item.CreatedAt),
		NumComments:        item.NumComments,
		Author:             item.Author,
		Sentiment:          accepted.Verdict.Sentiment,
		SentimentEscalated: accepted.Verdict.Escalated,
		Flair:              item.Flair,
		ReputationTerms:    accepted.Verdict.ReputationTerms,
		Comments:           make([]commentDocument, 0, len(accepted.Comments)),
	}
	for _, c := range accepted.Comments {
		doc.Comments = append(doc.Comments, commentDocument{
			CommentID:  c.CommentID,
			Body:       c.Body,
			Upvotes:    c.Score,
			CreatedUTC: domain.FormatTimestamp(c.CreatedAt),
			Sentiment:  c.Sentiment,
		})
	}

	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

func writeCommentsCSV(path, postID string, comments []domain.CommentRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(commentsHeader); err != nil {
		_ = f.Close()
		return err
	}
	for _, c := range comments {
		err := w.Write([]string{
			postID,
			c.CommentID,
			c.Body,
			strconv.Itoa(c.Score),
			domain.FormatTimestamp(c.CreatedAt),
			formatCompound(c.Sentiment.Compound),
		})
		if err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type table struct {
	file   *os.File
	writer *csv.Writer
}

func openTable(path string, header []string) (*table, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrPersistence, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrPersistence, path, err)
	}

	t := &table{file: f, writer: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := t.append(header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: header %s: %w", domain.ErrPersistence, path, err)
		}
	}
	return t, nil
}

func (t *table) append(row []string) error {
	if err := t.writer.Write(row); err != nil {
		return err
	}
	t.writer.Flush()
	return t.writer.Error()
}

func (t *table) close() error {
	t.writer.Flush()
	return errors.Join(t.writer.Error(), t.file.Close())
}
