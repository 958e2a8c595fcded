package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

func TestRedisPublisher_Publish(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel("apk-1"))
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, NewRedisPublisher(client).Publish(ctx, domain.Event{
		ProjectID: "apk-1", Op: "compile", State: domain.StateCompiled, At: at,
	}))

	select {
	case msg := <-sub.Channel():
		var ev domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, "compile", ev.Op)
		assert.Equal(t, domain.StateCompiled, ev.State)
		assert.True(t, at.Equal(ev.At))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), domain.Event{}))
}
