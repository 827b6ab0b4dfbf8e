package steering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is an in-memory Backend for queue tests.
type memBackend struct {
	queues map[string][]Message
}

func newMemBackend() *memBackend {
	return &memBackend{queues: make(map[string][]Message)}
}

func (b *memBackend) AppendSteering(sessionID string, m Message) error {
	b.queues[sessionID] = append(b.queues[sessionID], m)
	return nil
}

func (b *memBackend) PopSteering(sessionID string, limit int) ([]Message, error) {
	q := b.queues[sessionID]
	if limit <= 0 || limit > len(q) {
		limit = len(q)
	}
	out := q[:limit]
	b.queues[sessionID] = q[limit:]
	return out, nil
}

func (b *memBackend) ClearSteering(sessionID string) (int, error) {
	n := len(b.queues[sessionID])
	delete(b.queues, sessionID)
	return n, nil
}

func (b *memBackend) HasSteering(sessionID string) (bool, error) {
	return len(b.queues[sessionID]) > 0, nil
}

func TestIsAbortText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"stop", true},
		{"cancel", true},
		{"abort", true},
		{"nevermind", true},
		{"STOP", true},
		{"  Cancel  ", true},
		{"stop it", false},
		{"please cancel the deploy", false},
		{"", false},
		{"continue", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAbortText(tt.text))
		})
	}
}

func TestQueue_PushInfersAbort(t *testing.T) {
	q := NewQueue(newMemBackend())

	require.NoError(t, q.Push("sess-1", "  Cancel  ", "alice", false))
	require.NoError(t, q.Push("sess-1", "also check the tests", "alice", false))

	msgs, err := q.PopAll("sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsAbort)
	assert.False(t, msgs[1].IsAbort)
	assert.Equal(t, "alice", msgs[0].Sender)
	assert.NotZero(t, msgs[0].Timestamp)
}

func TestQueue_ExplicitAbortFlagKept(t *testing.T) {
	q := NewQueue(newMemBackend())

	require.NoError(t, q.Push("sess-1", "shut it down", "ops", true))

	m, err := q.PopOne("sess-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.IsAbort)
}

func TestQueue_PopOneEmpty(t *testing.T) {
	q := NewQueue(newMemBackend())

	m, err := q.PopOne("sess-1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(newMemBackend())

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, q.Push("sess-1", text, "alice", false))
	}

	m, err := q.PopOne("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "first", m.Text)

	rest, err := q.PopAll("sess-1")
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "second", rest[0].Text)
	assert.Equal(t, "third", rest[1].Text)
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue(newMemBackend())

	require.NoError(t, q.Push("sess-1", "one", "a", false))
	require.NoError(t, q.Push("sess-1", "two", "a", false))

	n, err := q.Clear("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	has, err := q.HasMessages("sess-1")
	require.NoError(t, err)
	assert.False(t, has)
}
