package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/leporo/sqlf"
)

const topicColumns = `id, author_id, title, category, is_pinned, is_locked, replies_count, views_count,
	last_reply_at, created_at, updated_at`

const postColumns = `id, topic_id, author_id, body, is_first_post, created_at, updated_at`

type TopicListFilter struct {
	Category string
	Search   string
	Offset   int
	Limit    int
}

type TopicRepository struct {
	db DBTX
}

func NewTopicRepository(db DBTX) *TopicRepository {
	return &TopicRepository{db: db}
}

func scanTopic(row pgx.Row) (*models.Topic, error) {
	var topic models.Topic
	err := row.Scan(
		&topic.ID,
		&topic.AuthorID,
		&topic.Title,
		&topic.Category,
		&topic.IsPinned,
		&topic.IsLocked,
		&topic.RepliesCount,
		&topic.ViewsCount,
		&topic.LastReplyAt,
		&topic.CreatedAt,
		&topic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *TopicRepository) Create(ctx context.Context, authorID int64, title string, category string) (*models.Topic, error) {
	query := `
		INSERT INTO forum_topics (author_id, title, category)
		VALUES ($1, $2, $3)
		RETURNING ` + topicColumns
	return scanTopic(r.db.QueryRow(ctx, query, authorID, title, category))
}

func (r *TopicRepository) GetByID(ctx context.Context, topicID int64) (*models.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM forum_topics WHERE id = $1`
	return scanTopic(r.db.QueryRow(ctx, query, topicID))
}

// GetForUpdate reads the topic and holds its row lock until the surrounding transaction ends,
// so a concurrent lock or delete waits for the caller.
func (r *TopicRepository) GetForUpdate(ctx context.Context, topicID int64) (*models.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM forum_topics WHERE id = $1 FOR UPDATE`
	return scanTopic(r.db.QueryRow(ctx, query, topicID))
}

func (r *TopicRepository) List(ctx context.Context, filter TopicListFilter) ([]models.Topic, int, error) {
	countQuery := sqlf.PostgreSQL.Select("COUNT(*)").From("forum_topics")
	applyTopicFilter(countQuery, filter)
	total, err := countStmt(ctx, r.db, countQuery)
	if err != nil {
		return nil, 0, err
	}

	q := sqlf.PostgreSQL.Select(topicColumns).From("forum_topics")
	applyTopicFilter(q, filter)
	q.OrderBy("is_pinned DESC", "COALESCE(last_reply_at, created_at) DESC", "id DESC")
	if filter.Limit > 0 {
		q.Limit(filter.Limit).Offset(filter.Offset)
	}
	defer q.Close()

	rows, err := r.db.Query(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	topics := make([]models.Topic, 0)
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, 0, err
		}
		topics = append(topics, *topic)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return topics, total, nil
}

func applyTopicFilter(q *sqlf.Stmt, filter TopicListFilter) {
	if category := strings.TrimSpace(filter.Category); category != "" {
		q.Where("category = ?", category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q.Where("title ILIKE ?", "%"+search+"%")
	}
}

// ApplyReplyCreated records a new reply on the topic's counters.
func (r *TopicRepository) ApplyReplyCreated(ctx context.Context, topicID int64, repliedAt time.Time) error {
	query := `
		UPDATE forum_topics
		SET replies_count = replies_count + 1, last_reply_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, topicID, repliedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ApplyReplyDeleted decrements the reply counter and recomputes last_reply_at from the
// replies that remain. Must run after the reply row is gone.
func (r *TopicRepository) ApplyReplyDeleted(ctx context.Context, topicID int64) (*models.Topic, error) {
	query := `
		UPDATE forum_topics
		SET replies_count = GREATEST(replies_count - 1, 0),
			last_reply_at = (
				SELECT MAX(p.created_at)
				FROM forum_posts p
				WHERE p.topic_id = $1 AND NOT p.is_first_post
			),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + topicColumns
	return scanTopic(r.db.QueryRow(ctx, query, topicID))
}

func (r *TopicRepository) IncrementViews(ctx context.Context, topicID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE forum_topics SET views_count = views_count + 1 WHERE id = $1`, topicID)
	return err
}

func (r *TopicRepository) SetPinned(ctx context.Context, topicID int64, pinned bool) (*models.Topic, error) {
	query := `
		UPDATE forum_topics SET is_pinned = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + topicColumns
	return scanTopic(r.db.QueryRow(ctx, query, topicID, pinned))
}

func (r *TopicRepository) SetLocked(ctx context.Context, topicID int64, locked bool) (*models.Topic, error) {
	query := `
		UPDATE forum_topics SET is_locked = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + topicColumns
	return scanTopic(r.db.QueryRow(ctx, query, topicID, locked))
}

// Delete removes the topic; its posts and views go with it through ON DELETE CASCADE.
func (r *TopicRepository) Delete(ctx context.Context, topicID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM forum_topics WHERE id = $1`, topicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type PostRepository struct {
	db DBTX
}

func NewPostRepository(db DBTX) *PostRepository {
	return &PostRepository{db: db}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID,
		&post.TopicID,
		&post.AuthorID,
		&post.Body,
		&post.IsFirstPost,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) Create(
	ctx context.Context,
	topicID int64,
	authorID int64,
	body string,
	isFirstPost bool,
) (*models.Post, error) {
	query := `
		INSERT INTO forum_posts (topic_id, author_id, body, is_first_post)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + postColumns
	return scanPost(r.db.QueryRow(ctx, query, topicID, authorID, body, isFirstPost))
}

func (r *PostRepository) GetByID(ctx context.Context, postID int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM forum_posts WHERE id = $1`
	return scanPost(r.db.QueryRow(ctx, query, postID))
}

func (r *PostRepository) ListByTopic(ctx context.Context, topicID int64) ([]models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM forum_posts
		WHERE topic_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
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
	return posts, nil
}

// Delete never removes a first post; those go away only with their topic.
func (r *PostRepository) Delete(ctx context.Context, postID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM forum_posts WHERE id = $1 AND NOT is_first_post`, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type TopicViewRepository struct {
	db DBTX
}

func NewTopicViewRepository(db DBTX) *TopicViewRepository {
	return &TopicViewRepository{db: db}
}

// LockViewer serializes view recording for one (topic, identity) pair until the surrounding
// transaction ends. The two-key form keeps these locks apart from the per-coach booking locks.
func (r *TopicViewRepository) LockViewer(ctx context.Context, topicID int64, identity string) error {
	key := strconv.FormatInt(topicID, 10) + ":" + identity
	_, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext('topic_views'), hashtext($1))", key)
	return err
}

// RecordIfStale inserts a view row unless the identity already viewed the topic within window.
// It reports whether a row was inserted. Concurrent callers must hold LockViewer.
func (r *TopicViewRepository) RecordIfStale(
	ctx context.Context,
	topicID int64,
	identity string,
	window time.Duration,
) (bool, error) {
	query := `
		INSERT INTO topic_views (topic_id, identity, viewed_at)
		SELECT $1, $2, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM topic_views
			WHERE topic_id = $1 AND identity = $2 AND viewed_at > NOW() - ($3::bigint * INTERVAL '1 second')
		)
	`
	tag, err := r.db.Exec(ctx, query, topicID, identity, int64(window/time.Second))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
