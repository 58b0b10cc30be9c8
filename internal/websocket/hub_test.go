package forumws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/coachhub/coachhub-api/internal/models"
)

func receive(t *testing.T, client *Client) ([]byte, bool) {
	t.Helper()
	select {
	case payload, ok := <-client.send:
		return payload, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub delivery")
		return nil, false
	}
}

func TestHubDeliversOnlyToTopicSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watching := NewClient(hub, nil, 7)
	other := NewClient(hub, nil, 8)
	hub.Register(watching)
	hub.Register(other)

	hub.Publish(7, models.ForumEvent{Type: models.ForumEventPostCreated, TopicID: 7, PostID: 3})

	payload, ok := receive(t, watching)
	if !ok {
		t.Fatal("expected open channel")
	}
	var event models.ForumEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != models.ForumEventPostCreated || event.PostID != 3 {
		t.Fatalf("unexpected event %+v", event)
	}

	select {
	case payload := <-other.send:
		t.Fatalf("subscriber of another topic received %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubClosesSubscribersWhenTopicIsDeleted(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, 5)
	hub.Register(client)

	hub.Publish(5, models.ForumEvent{Type: models.ForumEventTopicDeleted, TopicID: 5})

	if _, ok := receive(t, client); !ok {
		t.Fatal("expected the deletion event before close")
	}
	if _, ok := receive(t, client); ok {
		t.Fatal("expected send channel to be closed")
	}
}

func TestHubPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(1, models.ForumEvent{Type: models.ForumEventPostCreated, TopicID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no running hub")
	}
}
