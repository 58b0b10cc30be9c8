package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	defaultTopicCategory = "general"
	maxTopicTitleLength  = 200
	maxPostBodyLength    = 20000
)

type forumStore interface {
	CreateTopic(ctx context.Context, authorID int64, title string, category string) (*models.Topic, error)
	GetTopic(ctx context.Context, topicID int64) (*models.Topic, error)
	LockTopic(ctx context.Context, topicID int64) (*models.Topic, error)
	ListTopics(ctx context.Context, filter repository.TopicListFilter) ([]models.Topic, int, error)
	ApplyReplyCreated(ctx context.Context, topicID int64, repliedAt time.Time) error
	ApplyReplyDeleted(ctx context.Context, topicID int64) (*models.Topic, error)
	IncrementViews(ctx context.Context, topicID int64) error
	SetPinned(ctx context.Context, topicID int64, pinned bool) (*models.Topic, error)
	SetLocked(ctx context.Context, topicID int64, locked bool) (*models.Topic, error)
	DeleteTopic(ctx context.Context, topicID int64) error

	CreatePost(ctx context.Context, topicID int64, authorID int64, body string, isFirstPost bool) (*models.Post, error)
	GetPost(ctx context.Context, postID int64) (*models.Post, error)
	ListPosts(ctx context.Context, topicID int64) ([]models.Post, error)
	DeletePost(ctx context.Context, postID int64) error
}

// pgForumStore joins the topic and post repositories over one DBTX.
type pgForumStore struct {
	topics *repository.TopicRepository
	posts  *repository.PostRepository
}

func newPgForumStore(db repository.DBTX) *pgForumStore {
	return &pgForumStore{
		topics: repository.NewTopicRepository(db),
		posts:  repository.NewPostRepository(db),
	}
}

func (s *pgForumStore) CreateTopic(ctx context.Context, authorID int64, title string, category string) (*models.Topic, error) {
	return s.topics.Create(ctx, authorID, title, category)
}

func (s *pgForumStore) GetTopic(ctx context.Context, topicID int64) (*models.Topic, error) {
	return s.topics.GetByID(ctx, topicID)
}

func (s *pgForumStore) LockTopic(ctx context.Context, topicID int64) (*models.Topic, error) {
	return s.topics.GetForUpdate(ctx, topicID)
}

func (s *pgForumStore) ListTopics(ctx context.Context, filter repository.TopicListFilter) ([]models.Topic, int, error) {
	return s.topics.List(ctx, filter)
}

func (s *pgForumStore) ApplyReplyCreated(ctx context.Context, topicID int64, repliedAt time.Time) error {
	return s.topics.ApplyReplyCreated(ctx, topicID, repliedAt)
}

func (s *pgForumStore) ApplyReplyDeleted(ctx context.Context, topicID int64) (*models.Topic, error) {
	return s.topics.ApplyReplyDeleted(ctx, topicID)
}

func (s *pgForumStore) IncrementViews(ctx context.Context, topicID int64) error {
	return s.topics.IncrementViews(ctx, topicID)
}

func (s *pgForumStore) SetPinned(ctx context.Context, topicID int64, pinned bool) (*models.Topic, error) {
	return s.topics.SetPinned(ctx, topicID, pinned)
}

func (s *pgForumStore) SetLocked(ctx context.Context, topicID int64, locked bool) (*models.Topic, error) {
	return s.topics.SetLocked(ctx, topicID, locked)
}

func (s *pgForumStore) DeleteTopic(ctx context.Context, topicID int64) error {
	return s.topics.Delete(ctx, topicID)
}

func (s *pgForumStore) CreatePost(ctx context.Context, topicID int64, authorID int64, body string, isFirstPost bool) (*models.Post, error) {
	return s.posts.Create(ctx, topicID, authorID, body, isFirstPost)
}

func (s *pgForumStore) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID)
}

func (s *pgForumStore) ListPosts(ctx context.Context, topicID int64) ([]models.Post, error) {
	return s.posts.ListByTopic(ctx, topicID)
}

func (s *pgForumStore) DeletePost(ctx context.Context, postID int64) error {
	return s.posts.Delete(ctx, postID)
}

// ForumPublisher fans forum events out to live subscribers.
type ForumPublisher interface {
	Publish(topicID int64, event models.ForumEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(int64, models.ForumEvent) {}

type ForumService struct {
	store     forumStore
	inTx      func(ctx context.Context, fn func(store forumStore) error) error
	views     ViewTracker
	publisher ForumPublisher
	logger    zerolog.Logger
}

type CreateTopicInput struct {
	Title    string
	Category string
	Body     string
}

type TopicListInput struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

func NewForumService(
	db *pgxpool.Pool,
	views ViewTracker,
	publisher ForumPublisher,
	logger zerolog.Logger,
) *ForumService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &ForumService{
		store: newPgForumStore(db),
		inTx: func(ctx context.Context, fn func(store forumStore) error) error {
			return withTx(ctx, db, func(tx pgx.Tx) error {
				return fn(newPgForumStore(tx))
			})
		},
		views:     views,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateTopic stores the topic together with its first post.
func (s *ForumService) CreateTopic(ctx context.Context, actor Actor, input CreateTopicInput) (*models.TopicDetail, error) {
	verr := &ValidationError{}
	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		verr.add("title", "is required")
	case utf8.RuneCountInString(title) > maxTopicTitleLength:
		verr.add("title", "must be at most 200 characters")
	}
	body := strings.TrimSpace(input.Body)
	if err := validatePostBody(body); err != nil {
		verr.add("body", err.Error())
	}
	category := strings.ToLower(strings.TrimSpace(input.Category))
	if category == "" {
		category = defaultTopicCategory
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	var (
		topic *models.Topic
		first *models.Post
	)
	err := s.inTx(ctx, func(store forumStore) error {
		var err error
		topic, err = store.CreateTopic(ctx, actor.ID, title, category)
		if err != nil {
			return err
		}
		first, err = store.CreatePost(ctx, topic.ID, actor.ID, body, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	posts, err := renderPosts([]models.Post{*first})
	if err != nil {
		return nil, err
	}
	return &models.TopicDetail{Topic: *topic, Posts: posts}, nil
}

func (s *ForumService) ListTopics(ctx context.Context, input TopicListInput) ([]models.Topic, int, error) {
	filter := repository.TopicListFilter{
		Category: strings.ToLower(strings.TrimSpace(input.Category)),
		Search:   input.Search,
		Limit:    input.Limit,
	}
	if input.Page > 0 && input.Limit > 0 {
		filter.Offset = (input.Page - 1) * input.Limit
	}
	return s.store.ListTopics(ctx, filter)
}

// GetTopic returns the topic and its posts oldest first, counting the view when the
// tracker allows it. A tracker failure is logged and the view is not counted.
func (s *ForumService) GetTopic(ctx context.Context, topicID int64, viewer string) (*models.TopicDetail, error) {
	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}

	if s.views != nil && viewer != "" {
		count, err := s.views.ShouldCount(ctx, topicID, viewer)
		if err != nil {
			s.logger.Warn().Err(err).Int64("topic_id", topicID).Msg("view tracking failed")
		} else if count {
			if err := s.store.IncrementViews(ctx, topicID); err != nil {
				return nil, err
			}
			topic.ViewsCount++
		}
	}

	posts, err := s.store.ListPosts(ctx, topicID)
	if err != nil {
		return nil, err
	}
	rendered, err := renderPosts(posts)
	if err != nil {
		return nil, err
	}
	return &models.TopicDetail{Topic: *topic, Posts: rendered}, nil
}

func (s *ForumService) CreateReply(ctx context.Context, actor Actor, topicID int64, body string) (*models.Post, error) {
	body = strings.TrimSpace(body)
	if err := validatePostBody(body); err != nil {
		return nil, fieldError("body", err.Error())
	}

	// Checked under the topic row lock; a concurrent SetLocked waits for this reply.
	var post *models.Post
	err := s.inTx(ctx, func(store forumStore) error {
		topic, err := store.LockTopic(ctx, topicID)
		if err != nil {
			return err
		}
		if topic.IsLocked && !actor.IsAdmin() {
			return ErrTopicLocked
		}
		post, err = store.CreatePost(ctx, topicID, actor.ID, body, false)
		if err != nil {
			return err
		}
		return store.ApplyReplyCreated(ctx, topicID, post.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	html, err := RenderPostBody(post.Body)
	if err != nil {
		return nil, err
	}
	post.BodyHTML = html

	s.publisher.Publish(topicID, models.ForumEvent{
		Type:    models.ForumEventPostCreated,
		TopicID: topicID,
		PostID:  post.ID,
		Post:    post,
	})
	return post, nil
}

// DeletePost removes a reply and returns the topic with recomputed counters.
// First posts go away only with their topic.
func (s *ForumService) DeletePost(ctx context.Context, actor Actor, postID int64) (*models.Topic, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsFirstPost {
		return nil, ErrFirstPostDeletion
	}
	if !canModeratePost(actor, post) {
		return nil, ErrForbidden
	}

	var topic *models.Topic
	err = s.inTx(ctx, func(store forumStore) error {
		if err := store.DeletePost(ctx, postID); err != nil {
			return err
		}
		var err error
		topic, err = store.ApplyReplyDeleted(ctx, post.TopicID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(post.TopicID, models.ForumEvent{
		Type:    models.ForumEventPostDeleted,
		TopicID: post.TopicID,
		PostID:  postID,
		Topic:   topic,
	})
	return topic, nil
}

func (s *ForumService) DeleteTopic(ctx context.Context, actor Actor, topicID int64) error {
	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}
	if !canModerateTopic(actor, topic) {
		return ErrForbidden
	}
	if err := s.store.DeleteTopic(ctx, topicID); err != nil {
		return err
	}

	s.publisher.Publish(topicID, models.ForumEvent{
		Type:    models.ForumEventTopicDeleted,
		TopicID: topicID,
	})
	return nil
}

func (s *ForumService) SetPinned(ctx context.Context, actor Actor, topicID int64, pinned bool) (*models.Topic, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.SetPinned(ctx, topicID, pinned)
}

func (s *ForumService) SetLocked(ctx context.Context, actor Actor, topicID int64, locked bool) (*models.Topic, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.SetLocked(ctx, topicID, locked)
}

func validatePostBody(body string) error {
	switch {
	case body == "":
		return errors.New("is required")
	case utf8.RuneCountInString(body) > maxPostBodyLength:
		return errors.New("must be at most 20000 characters")
	default:
		return nil
	}
}

func renderPosts(posts []models.Post) ([]models.Post, error) {
	for i := range posts {
		html, err := RenderPostBody(posts[i].Body)
		if err != nil {
			return nil, err
		}
		posts[i].BodyHTML = html
	}
	return posts, nil
}
