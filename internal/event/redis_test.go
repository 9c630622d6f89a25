package event

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisPublisherPublishes(t *testing.T) {
	ctx := context.Background()
	pub, err := NewRedisPublisher(ctx, testRedisAddr(), os.Getenv("REDIS_PASSWORD"), "reconnect:test-events")
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer pub.Close()

	sub := pub.Client().Subscribe(ctx, pub.Channel())
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	e := Event{
		Name:    MatchFound,
		Time:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ItemIDs: []string{"RC-A", "RC-B"},
		Notice:  &Notice{Message: "matched", Tag: "match"},
	}
	require.NoError(t, pub.Handle(ctx, e))

	select {
	case msg := <-sub.Channel():
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, e.Name, got.Name)
		assert.Equal(t, e.ItemIDs, got.ItemIDs)
		assert.True(t, e.Time.Equal(got.Time))
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestNewRedisPublisherUnreachable(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), "127.0.0.1:1", "", "")
	assert.Error(t, err)
}
