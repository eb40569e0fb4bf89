package questionpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

func TestRecorder_CorrectAnswerRoundTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv()
	engine := env.engine(t)
	recorder := env.recorder(t)
	require.NoError(t, env.cache.SetJSON(ctx, StatsCacheKey("u1"), map[string]int{"xp": 0}, time.Minute))

	sel, err := engine.Select(ctx, enfermeiroRequest("u1"))
	require.NoError(t, err)

	// Act
	fb, err := recorder.Record(ctx, AnswerRequest{
		UserID:         "u1",
		QuestionID:     sel.Question.ID,
		ChosenOptionID: " c) ",
		ResponseTime:   2500 * time.Millisecond,
	})
	recorder.Wait()

	// Assert
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	assert.Equal(t, "C", fb.AnswerKey)
	assert.Equal(t, "C", fb.ChosenOptionID)
	assert.Equal(t, "Explicação gerada.", fb.Explanation)

	rec, ok := env.ledger.Record("u1", sel.Question.ID)
	require.True(t, ok)
	assert.True(t, rec.Answered)
	assert.True(t, rec.Correct)
	assert.Equal(t, int64(2500), rec.ResponseTimeMs)

	stats, err := env.stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Answered)
	assert.Equal(t, 10, stats.XP)
	assert.Equal(t, 1, stats.CurrentStreak)

	events := env.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].UserID)
	assert.True(t, events[0].Correct)
	assert.Equal(t, int64(2500), events[0].ResponseTimeMs)

	_, err = env.cache.Get(ctx, StatsCacheKey("u1"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Кэш статистики должен быть сброшен")
}

func TestRecorder_WrongAnswer(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv()
	env.seed(t, "p1")
	require.NoError(t, env.ledger.MarkSeen(ctx, "u1", "p1"))
	recorder := env.recorder(t)

	// Act
	fb, err := recorder.Record(ctx, AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "A"})
	recorder.Wait()

	// Assert
	require.NoError(t, err)
	assert.False(t, fb.Correct)
	assert.Equal(t, "B", fb.AnswerKey)
	assert.Equal(t, "Porque B.", fb.Explanation)

	stats, err := env.stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.XP)
	assert.Equal(t, 0, stats.Correct)
}

func TestRecorder_AnswerIsCountedOnce(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv()
	env.seed(t, "p1")
	require.NoError(t, env.ledger.MarkSeen(ctx, "u1", "p1"))
	recorder := env.recorder(t)
	req := AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "B"}

	// Act
	first, err1 := recorder.Record(ctx, req)
	second, err2 := recorder.Record(ctx, req)
	recorder.Wait()

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2, "Повторный ответ не является ошибкой для пользователя")
	assert.Equal(t, first, second)

	stats, err := env.stats.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Answered, "Статистика учитывает ответ один раз")
	assert.Len(t, env.events.Events(), 1)
}

func TestRecorder_NotSeenStillReturnsResult(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv()
	env.seed(t, "p1")
	recorder := env.recorder(t)

	// Act
	fb, err := recorder.Record(ctx, AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "B"})
	recorder.Wait()

	// Assert
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	_, err = env.stats.Get(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Ответ без показа не попадает в статистику")
	assert.Equal(t, 0, env.ledger.Count("u1"), "Журнал не создает запись задним числом")
}

func TestRecorder_UnknownOptionDoesNotConsumeAnswer(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv()
	env.seed(t, "p1")
	require.NoError(t, env.ledger.MarkSeen(ctx, "u1", "p1"))
	recorder := env.recorder(t)

	// Act
	fb, err := recorder.Record(ctx, AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "Z"})
	recorder.Wait()

	// Assert
	assert.Nil(t, fb)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	rec, ok := env.ledger.Record("u1", "p1")
	require.True(t, ok)
	assert.False(t, rec.Answered, "Несуществующий вариант не расходует ответ")
	_, err = env.stats.Get(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Статистика не меняется")
	assert.Empty(t, env.events.Events())

	// Последующий корректный ответ засчитывается
	fb, err = recorder.Record(ctx, AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "B"})
	recorder.Wait()
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	rec, _ = env.ledger.Record("u1", "p1")
	assert.True(t, rec.Answered)
}

func TestRecorder_UnknownQuestion(t *testing.T) {
	// Arrange
	env := newTestEnv()
	recorder := env.recorder(t)

	// Act
	fb, err := recorder.Record(context.Background(), AnswerRequest{UserID: "u1", QuestionID: "missing", ChosenOptionID: "A"})

	// Assert
	assert.Nil(t, fb)
	assert.ErrorIs(t, err, ErrUnknownQuestion)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecorder_StoreDown(t *testing.T) {
	// Arrange
	env := newTestEnv()
	env.pool.Fail(errors.New("connection refused"))
	recorder := env.recorder(t)

	// Act
	_, err := recorder.Record(context.Background(), AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "A"})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
}

func TestRecorder_Validation(t *testing.T) {
	testCases := []struct {
		name string
		req  AnswerRequest
	}{
		{"без пользователя", AnswerRequest{QuestionID: "p1", ChosenOptionID: "A"}},
		{"без вопроса", AnswerRequest{UserID: "u1", ChosenOptionID: "A"}},
		{"без варианта", AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "()"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			_, err := env.recorder(t).Record(context.Background(), tc.req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestRecorder_WithoutOptionalDependencies(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv()
	env.seed(t, "p1")
	require.NoError(t, env.ledger.MarkSeen(ctx, "u1", "p1"))
	env.deps.Stats, env.deps.Events, env.deps.Cache, env.deps.Pending = nil, nil, nil, nil
	recorder := env.recorder(t)

	// Act
	fb, err := recorder.Record(ctx, AnswerRequest{UserID: "u1", QuestionID: "p1", ChosenOptionID: "b"})
	recorder.Wait()

	// Assert
	require.NoError(t, err)
	assert.True(t, fb.Correct)
}
