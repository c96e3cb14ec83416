// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/colligo-dev/colligo/internal/metrics"
	"github.com/colligo-dev/colligo/internal/models"
)

// CreatePost inserts a new post. The caller assigns the ID; CreatedAt is set
// here if zero.
func (db *DB) CreatePost(ctx context.Context, post *models.Post) error {
	start := time.Now()

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	mediaIDs, err := json.Marshal(post.MediaIDs)
	if err != nil {
		return fmt.Errorf("encode media ids: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, caption, media_ids, location, like_count, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		post.ID, post.AuthorID, post.Caption, string(mediaIDs), post.Location, post.CreatedAt,
	)
	metrics.RecordDBQuery("create", "posts", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert post %s: %w", post.ID, err)
	}
	return nil
}

// GetPost returns a post with its durable like set, or ErrPostNotFound.
func (db *DB) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	start := time.Now()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, author_id, caption, media_ids, location, like_count, created_at
		 FROM posts WHERE id = ?`, postID)

	post, err := scanPost(row)
	metrics.RecordDBQuery("get", "posts", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select post %s: %w", postID, err)
	}

	if err := db.loadLikes(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post and its like rows. Returns ErrPostNotFound if the
// post does not exist.
func (db *DB) DeletePost(ctx context.Context, postID string) error {
	start := time.Now()
	err := db.deletePost(ctx, postID)
	metrics.RecordDBQuery("delete", "posts", time.Since(start), err)
	return err
}

func (db *DB) deletePost(ctx context.Context, postID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPostNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("delete likes of %s: %w", postID, err)
	}
	return tx.Commit()
}

// PostsByAuthor returns an author's posts, newest first, with like sets
// loaded. limit <= 0 means no limit.
func (db *DB) PostsByAuthor(ctx context.Context, authorID string, limit int) ([]models.Post, error) {
	start := time.Now()

	query := `SELECT id, author_id, caption, media_ids, location, like_count, created_at
		 FROM posts WHERE author_id = ? ORDER BY created_at DESC`
	args := []interface{}{authorID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	posts, err := db.queryPosts(ctx, query, args...)
	metrics.RecordDBQuery("list_by_author", "posts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("posts by author %s: %w", authorID, err)
	}
	return posts, nil
}

// TopEngagedPosts returns an author's most-liked posts, bounded by limit.
// Ties break toward newer posts. The full post history is never scanned out.
func (db *DB) TopEngagedPosts(ctx context.Context, authorID string, limit int) ([]models.Post, error) {
	start := time.Now()

	if limit < 1 {
		limit = 1
	}
	posts, err := db.queryPosts(ctx,
		`SELECT id, author_id, caption, media_ids, location, like_count, created_at
		 FROM posts WHERE author_id = ?
		 ORDER BY like_count DESC, created_at DESC LIMIT ?`,
		authorID, limit)
	metrics.RecordDBQuery("top_engaged", "posts", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("top engaged posts of %s: %w", authorID, err)
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var mediaIDs string

	err := row.Scan(&post.ID, &post.AuthorID, &post.Caption, &mediaIDs,
		&post.Location, &post.LikeCount, &post.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mediaIDs), &post.MediaIDs); err != nil {
		return nil, fmt.Errorf("decode media ids of %s: %w", post.ID, err)
	}
	if post.MediaIDs == nil {
		post.MediaIDs = []string{}
	}
	post.Likes = []string{}
	return &post, nil
}

func (db *DB) queryPosts(ctx context.Context, query string, args ...interface{}) ([]models.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		if err := db.loadLikes(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// loadLikes fills post.Likes from the join table.
func (db *DB) loadLikes(ctx context.Context, post *models.Post) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY user_id`, post.ID)
	if err != nil {
		return fmt.Errorf("select likes of %s: %w", post.ID, err)
	}
	defer closeQuietly(rows)

	likes := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan like of %s: %w", post.ID, err)
		}
		likes = append(likes, userID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate likes of %s: %w", post.ID, err)
	}
	post.Likes = likes
	return nil
}
