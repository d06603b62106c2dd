package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sablepoint/dealdesk/internal/models"
	"github.com/sablepoint/dealdesk/internal/persistence"
)

// contentRepo implements ContentRepo for PostgreSQL
type contentRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewContentRepo creates a new PostgreSQL content repository
func NewContentRepo(db *sqlx.DB, timeout time.Duration) persistence.ContentRepo {
	return &contentRepo{db: db, timeout: timeout}
}

const postColumns = `id, title, body, status, channels, scheduled_at, published_at, created_at, updated_at`

// Insert adds a new insight post
func (r *contentRepo) Insert(ctx context.Context, post *models.InsightPost) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := models.ParsePostStatus(string(post.Status)); err != nil {
		return err
	}
	if post.Status == models.PostScheduled && post.ScheduledAt == nil {
		return fmt.Errorf("scheduled post requires scheduled_at")
	}

	channelsJSON, err := marshalChannels(post)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO insight_posts (title, body, status, channels, scheduled_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRowxContext(ctx, query,
		post.Title, post.Body, post.Status, channelsJSON, post.ScheduledAt, post.PublishedAt).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	return nil
}

// Update persists post edits and status changes
func (r *contentRepo) Update(ctx context.Context, post *models.InsightPost) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	channelsJSON, err := marshalChannels(post)
	if err != nil {
		return err
	}

	query := `
		UPDATE insight_posts
		SET title = $1, body = $2, status = $3, channels = $4,
		    scheduled_at = $5, published_at = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	err = r.db.QueryRowxContext(ctx, query,
		post.Title, post.Body, post.Status, channelsJSON,
		post.ScheduledAt, post.PublishedAt, post.ID).
		Scan(&post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("post %d not found", post.ID)
		}
		return fmt.Errorf("failed to update post: %w", err)
	}

	return nil
}

// GetByID retrieves a single post
func (r *contentRepo) GetByID(ctx context.Context, id int64) (*models.InsightPost, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM insight_posts WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, query, id)
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}

	return post, nil
}

// List returns posts newest first
func (r *contentRepo) List(ctx context.Context, limit int) ([]models.InsightPost, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM insight_posts ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListDue returns scheduled posts whose scheduled_at has passed
func (r *contentRepo) ListDue(ctx context.Context, now time.Time) ([]models.InsightPost, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + postColumns + `
		FROM insight_posts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryxContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// MarkPublished transitions a post to published at the given time
func (r *contentRepo) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE insight_posts
		SET status = 'published', published_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'scheduled'`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark post published: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check publish update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("post %d is not in scheduled state", id)
	}

	return nil
}

// Helpers

func marshalChannels(post *models.InsightPost) ([]byte, error) {
	channels := post.Channels
	if channels == nil {
		channels = []string{}
	}
	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal channels: %w", err)
	}
	return channelsJSON, nil
}

func scanPost(row rowScanner) (*models.InsightPost, error) {
	var post models.InsightPost
	var channelsJSON []byte

	err := row.Scan(
		&post.ID, &post.Title, &post.Body, &post.Status, &channelsJSON,
		&post.ScheduledAt, &post.PublishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(channelsJSON) > 0 {
		if err := json.Unmarshal(channelsJSON, &post.Channels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channels: %w", err)
		}
	}

	return &post, nil
}

func scanPosts(rows *sqlx.Rows) ([]models.InsightPost, error) {
	var posts []models.InsightPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return posts, nil
}
