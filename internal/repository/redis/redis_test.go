package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gabarita-api/internal/domain/entity"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{srv.Addr()}})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestCacheRepo_JSONRoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	_, client := newTestClient(t)
	repo, err := NewCacheRepo(client)
	require.NoError(t, err)

	stats := entity.UserStats{UserID: "u1", Answered: 3, Correct: 2, XP: 23, Level: 1}

	// Act
	require.NoError(t, repo.SetJSON(ctx, "stats:u1", stats, time.Minute))
	var got entity.UserStats
	err = repo.GetJSON(ctx, "stats:u1", &got)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, stats.XP, got.XP)
	assert.Equal(t, stats.Correct, got.Correct)

	require.NoError(t, repo.Delete(ctx, "stats:u1"))
	assert.ErrorIs(t, repo.GetJSON(ctx, "stats:u1", &got), apperrors.ErrNotFound)
	_, err = repo.Get(ctx, "stats:u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCacheRepo_IncrementExpire(t *testing.T) {
	// Arrange
	ctx := context.Background()
	srv, client := newTestClient(t)
	repo, err := NewCacheRepo(client)
	require.NoError(t, err)

	// Act
	first, err := repo.Increment(ctx, "ratelimit:u1")
	require.NoError(t, err)
	second, err := repo.Increment(ctx, "ratelimit:u1")
	require.NoError(t, err)
	require.NoError(t, repo.Expire(ctx, "ratelimit:u1", time.Minute))

	// Assert
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, time.Minute, srv.TTL("ratelimit:u1"))

	srv.FastForward(2 * time.Minute)
	assert.False(t, srv.Exists("ratelimit:u1"))
	assert.NoError(t, repo.Ping(ctx))
}

func TestNewCacheRepo_NilClient(t *testing.T) {
	_, err := NewCacheRepo(nil)
	assert.Error(t, err)
}

func TestPendingRecordRepo_KeepsAnswerKey(t *testing.T) {
	// Arrange
	ctx := context.Background()
	srv, client := newTestClient(t)
	repo, err := NewPendingRecordRepo(client, time.Hour)
	require.NoError(t, err)

	record, err := entity.NewQuestionRecord(entity.QuestionDraft{
		ID:    "q-pending",
		Cargo: "Enfermeiro",
		Bloco: "Bloco 1",
		Body:  "Pergunta",
		Options: []entity.QuestionOption{
			{ID: "A", Text: "um"},
			{ID: "B", Text: "dois"},
		},
		AnswerKey:   "B",
		Explanation: "Porque sim.",
	})
	require.NoError(t, err)

	// Act
	require.NoError(t, repo.Park(ctx, record))
	got, err := repo.Fetch(ctx, "q-pending")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "B", got.AnswerKey, "Ответ должен сохраняться, хотя скрыт в JSON вопроса")
	assert.Equal(t, "Porque sim.", got.Explanation)
	assert.Len(t, got.Options, 2)
	assert.Equal(t, time.Hour, srv.TTL(pendingKeyPrefix+"q-pending"))

	_, err = repo.Fetch(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPendingRecordRepo_Unavailable(t *testing.T) {
	// Arrange
	ctx := context.Background()
	srv, client := newTestClient(t)
	repo, err := NewPendingRecordRepo(client, 0)
	require.NoError(t, err)
	srv.Close()

	// Act
	_, err = repo.Fetch(ctx, "q1")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestEventPublisher_PublishAnswer(t *testing.T) {
	// Arrange
	ctx := context.Background()
	_, client := newTestClient(t)
	publisher, err := NewEventPublisher(client)
	require.NoError(t, err)

	sub := client.Subscribe(ctx, AnswerRecordedChannel)
	defer sub.Close()
	_, err = sub.Receive(ctx) // подтверждение подписки
	require.NoError(t, err)

	event := entity.AnswerEvent{UserID: "u1", QuestionID: "q1", Correct: true, ResponseTimeMs: 1200}

	// Act
	require.NoError(t, publisher.PublishAnswer(ctx, event))

	// Assert
	select {
	case msg := <-sub.Channel():
		var envelope eventEnvelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
		assert.Equal(t, AnswerRecordedChannel, envelope.Type)
		assert.Equal(t, "u1", envelope.Data.UserID)
		assert.True(t, envelope.Data.Correct)
	case <-time.After(2 * time.Second):
		t.Fatal("событие не получено")
	}
}
