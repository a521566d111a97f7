package api

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubBroadcastDropsRatherThanBlocksOnFullClient(t *testing.T) {
	h := NewHub()
	c := &pushClient{send: make(chan []byte)} // unbuffered, nobody reading
	h.clients[c] = struct{}{}

	h.Broadcast("notify:update", map[string]string{"x": "y"}) // must not block
}

func TestHubClientCount(t *testing.T) {
	h := NewHub()
	require.Equal(t, 0, h.ClientCount())

	c := &pushClient{send: make(chan []byte, 1)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	require.Equal(t, 1, h.ClientCount())

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	require.Equal(t, 0, h.ClientCount())
}
