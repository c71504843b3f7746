package pubsub

import (
	"context"
	"testing"

	"github.com/vendibook/vendibook-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "vendibook-prod"}
	cases := []struct {
		in   string
		want string
	}{
		{in: "vb-push-notifications", want: "projects/vendibook-prod/topics/vb-push-notifications"},
		{in: "  vb-push-notifications  ", want: "projects/vendibook-prod/topics/vb-push-notifications"},
		{in: "projects/other/topics/vb-push-notifications", want: "projects/other/topics/vb-push-notifications"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := c.topicResourceName(tc.in); got != tc.want {
			t.Fatalf("topicResourceName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := (&Client{}).topicResourceName("topic"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.publisher("topic") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error on nil client")
	}
	if _, err := (&Client{}).PublishPush(context.Background(), []byte("{}"), nil); err == nil {
		t.Fatal("expected publish error without client")
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{PushTopic: "t"}, nil)
	if err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}
