package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const viewWindow = time.Hour

// ViewTracker decides whether a topic view counts. A (topic, identity) pair counts at most
// once per rolling viewWindow.
type ViewTracker interface {
	ShouldCount(ctx context.Context, topicID int64, identity string) (bool, error)
}

// ViewerIdentity keys a viewer by user id when authenticated, else by remote address.
func ViewerIdentity(userID int64, remoteAddr string) string {
	if userID > 0 {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	return "ip:" + strings.TrimSpace(remoteAddr)
}

type RedisViewTracker struct {
	client *redis.Client
}

func NewRedisViewTracker(client *redis.Client) *RedisViewTracker {
	return &RedisViewTracker{client: client}
}

func (t *RedisViewTracker) ShouldCount(ctx context.Context, topicID int64, identity string) (bool, error) {
	key := fmt.Sprintf("forum:topic:%d:view:%s", topicID, identity)
	return t.client.SetNX(ctx, key, 1, viewWindow).Result()
}

type topicViewRecorder interface {
	LockViewer(ctx context.Context, topicID int64, identity string) error
	RecordIfStale(ctx context.Context, topicID int64, identity string, window time.Duration) (bool, error)
}

// PostgresViewTracker keeps view rows in topic_views when Redis is not configured.
type PostgresViewTracker struct {
	inTx func(ctx context.Context, fn func(repo topicViewRecorder) error) error
}

func NewPostgresViewTracker(db *pgxpool.Pool) *PostgresViewTracker {
	return &PostgresViewTracker{
		inTx: func(ctx context.Context, fn func(repo topicViewRecorder) error) error {
			return withTx(ctx, db, func(tx pgx.Tx) error {
				return fn(repository.NewTopicViewRepository(tx))
			})
		},
	}
}

// ShouldCount checks and records under a per-viewer lock so two first views racing
// each other insert a single row.
func (t *PostgresViewTracker) ShouldCount(ctx context.Context, topicID int64, identity string) (bool, error) {
	var counted bool
	err := t.inTx(ctx, func(repo topicViewRecorder) error {
		if err := repo.LockViewer(ctx, topicID, identity); err != nil {
			return err
		}
		var err error
		counted, err = repo.RecordIfStale(ctx, topicID, identity, viewWindow)
		return err
	})
	if err != nil {
		return false, err
	}
	return counted, nil
}
