package jobsqueue

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewUsesEmbeddedRedisWhenAddrEmpty(t *testing.T) {
	q, err := New("", 1, zerolog.Nop())
	require.NoError(t, err)
	defer q.Stop()

	require.NotNil(t, q.miniRedis)
}

func TestEnqueueUniqueSkipsDuplicateTaskID(t *testing.T) {
	q, err := New("", 1, zerolog.Nop())
	require.NoError(t, err)
	defer q.Stop()

	id, err := q.EnqueueUnique(TaskGenerateThumbnail, ThumbnailPayload{}, "dup-1")
	require.NoError(t, err)
	require.Equal(t, "dup-1", id)

	id2, err := q.EnqueueUnique(TaskGenerateThumbnail, ThumbnailPayload{}, "dup-1")
	require.NoError(t, err)
	require.Equal(t, "dup-1", id2)
}

func TestReportQueueDepthDoesNotPanicWithNoTasks(t *testing.T) {
	q, err := New("", 1, zerolog.Nop())
	require.NoError(t, err)
	defer q.Stop()

	q.ReportQueueDepth()
}
