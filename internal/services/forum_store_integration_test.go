package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func TestTopicCountersFollowReplyDeletes(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	authorID := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, authorID) })

	topics := repository.NewTopicRepository(pool)
	posts := repository.NewPostRepository(pool)

	topic, err := topics.Create(ctx, authorID, "Counter upkeep", "general")
	if err != nil {
		t.Fatalf("Create topic: %v", err)
	}
	first, err := posts.Create(ctx, topic.ID, authorID, "opening post", true)
	if err != nil {
		t.Fatalf("Create first post: %v", err)
	}
	older := createStoredReply(t, ctx, topics, posts, topic.ID, authorID, "older reply")
	newer := createStoredReply(t, ctx, topics, posts, topic.ID, authorID, "newer reply")

	current, err := topics.GetByID(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.RepliesCount != 2 || current.LastReplyAt == nil || !current.LastReplyAt.Equal(newer.CreatedAt) {
		t.Fatalf("unexpected counters after two replies: count=%d last=%v", current.RepliesCount, current.LastReplyAt)
	}

	if err := posts.Delete(ctx, newer.ID); err != nil {
		t.Fatalf("Delete newer reply: %v", err)
	}
	current, err = topics.ApplyReplyDeleted(ctx, topic.ID)
	if err != nil {
		t.Fatalf("ApplyReplyDeleted: %v", err)
	}
	if current.RepliesCount != 1 || current.LastReplyAt == nil || !current.LastReplyAt.Equal(older.CreatedAt) {
		t.Fatalf("expected one reply ending at the older one, got count=%d last=%v", current.RepliesCount, current.LastReplyAt)
	}

	if err := posts.Delete(ctx, older.ID); err != nil {
		t.Fatalf("Delete older reply: %v", err)
	}
	current, err = topics.ApplyReplyDeleted(ctx, topic.ID)
	if err != nil {
		t.Fatalf("ApplyReplyDeleted: %v", err)
	}
	if current.RepliesCount != 0 || current.LastReplyAt != nil {
		t.Fatalf("expected no replies left, got count=%d last=%v", current.RepliesCount, current.LastReplyAt)
	}

	current, err = topics.ApplyReplyDeleted(ctx, topic.ID)
	if err != nil {
		t.Fatalf("ApplyReplyDeleted on an empty topic: %v", err)
	}
	if current.RepliesCount != 0 {
		t.Fatalf("replies_count must not go below zero, got %d", current.RepliesCount)
	}

	if err := posts.Delete(ctx, first.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows deleting the first post, got %v", err)
	}
	if _, err := posts.GetByID(ctx, first.ID); err != nil {
		t.Fatalf("first post should survive: %v", err)
	}
}

func TestTopicLockWaitsForReplyTransaction(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	authorID := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, authorID) })

	service := NewForumService(pool, nil, nil, zerolog.Nop())
	detail, err := service.CreateTopic(ctx, Actor{ID: authorID, Role: models.RoleClient}, CreateTopicInput{
		Title: "Lock ordering",
		Body:  "first",
	})
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	if _, err := repository.NewTopicRepository(tx).GetForUpdate(ctx, detail.ID); err != nil {
		t.Fatalf("GetForUpdate: %v", err)
	}

	locked := make(chan error, 1)
	go func() {
		_, err := repository.NewTopicRepository(pool).SetLocked(ctx, detail.ID, true)
		locked <- err
	}()

	select {
	case err := <-locked:
		t.Fatalf("SetLocked finished while the row lock was held: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := <-locked; err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
}

func TestTopicViewWindow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	authorID := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, authorID) })

	topic, err := repository.NewTopicRepository(pool).Create(ctx, authorID, "View window", "general")
	if err != nil {
		t.Fatalf("Create topic: %v", err)
	}
	views := repository.NewTopicViewRepository(pool)

	for i, tc := range []struct {
		identity string
		want     bool
	}{
		{identity: "user:1", want: true},
		{identity: "user:1", want: false},
		{identity: "ip:192.0.2.7", want: true},
	} {
		got, err := views.RecordIfStale(ctx, topic.ID, tc.identity, viewWindow)
		if err != nil {
			t.Fatalf("view %d: %v", i, err)
		}
		if got != tc.want {
			t.Fatalf("view %d for %s: expected %v, got %v", i, tc.identity, tc.want, got)
		}
	}
}

func TestPostgresViewTrackerCountsConcurrentFirstViewsOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	authorID := createTestAccount(t, ctx, pool, models.RoleClient)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, authorID) })

	topic, err := repository.NewTopicRepository(pool).Create(ctx, authorID, "Concurrent views", "general")
	if err != nil {
		t.Fatalf("Create topic: %v", err)
	}
	tracker := NewPostgresViewTracker(pool)
	identity := "ip:198.51.100.20"

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tracker.ShouldCount(ctx, topic.ID, identity)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.Errorf("ShouldCount: %v", err)
				return
			}
			if ok {
				counted++
			}
		}()
	}
	wg.Wait()

	if counted != 1 {
		t.Fatalf("expected exactly one counted view, got %d", counted)
	}
	assertViewRows(t, ctx, pool, topic.ID, identity, 1)
}

func createStoredReply(
	t *testing.T,
	ctx context.Context,
	topics *repository.TopicRepository,
	posts *repository.PostRepository,
	topicID int64,
	authorID int64,
	body string,
) *models.Post {
	t.Helper()

	post, err := posts.Create(ctx, topicID, authorID, body, false)
	if err != nil {
		t.Fatalf("Create reply: %v", err)
	}
	if err := topics.ApplyReplyCreated(ctx, topicID, post.CreatedAt); err != nil {
		t.Fatalf("ApplyReplyCreated: %v", err)
	}
	return post
}

func assertViewRows(t *testing.T, ctx context.Context, pool *pgxpool.Pool, topicID int64, identity string, want int) {
	t.Helper()

	var got int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM topic_views WHERE topic_id = $1 AND identity = $2", topicID, identity).Scan(&got)
	if err != nil {
		t.Fatalf("count views: %v", err)
	}
	if got != want {
		t.Fatalf("expected %d view rows, got %d", want, got)
	}
}
