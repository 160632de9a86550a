package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/exam-proctor/internal/exam"
)

type stubFetcher struct {
	questions []exam.Question
	errs      []error
	calls     int
}

func (f *stubFetcher) ExamQuestions(context.Context, uuid.UUID) ([]exam.Question, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.questions, nil
}

func threeQuestions() []exam.Question {
	return []exam.Question{
		{ID: uuid.New(), Type: exam.KindMCQ, Text: "Capital of France?", Options: []string{"Paris", "Rome"}},
		{ID: uuid.New(), Type: exam.KindTrueFalse, Text: "The earth is round."},
		{ID: uuid.New(), Type: exam.KindMCQ, Text: "2+2?", Options: []string{"3", "4", "5"}},
	}
}

func loaded(t *testing.T, qs []exam.Question) *Session {
	t.Helper()
	s := NewSession(&stubFetcher{questions: qs}, uuid.New())
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestNextAdvancesByOne(t *testing.T) {
	s := loaded(t, threeQuestions())

	assert.Equal(t, 0, s.Index())
	assert.True(t, s.Next())
	assert.Equal(t, 1, s.Index())
	assert.True(t, s.Next())
	assert.Equal(t, 2, s.Index())
	assert.True(t, s.IsLast())
}

func TestNextIsNoopAtLastQuestion(t *testing.T) {
	s := loaded(t, threeQuestions())
	s.Next()
	s.Next()

	for i := 0; i < 3; i++ {
		assert.False(t, s.Next())
		assert.Equal(t, 2, s.Index())
	}
}

func TestNextOnEmptyList(t *testing.T) {
	s := loaded(t, nil)

	assert.False(t, s.Next())
	assert.Equal(t, 0, s.Index())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestRenderPlaceholderBeforeLoadAndWhenEmpty(t *testing.T) {
	s := NewSession(&stubFetcher{}, uuid.New())
	v, err := s.Render()
	require.NoError(t, err)
	assert.True(t, v.Placeholder)
	assert.Equal(t, LoadingText, v.Text)
	assert.Equal(t, StateLoading, s.State())

	s = loaded(t, []exam.Question{})
	v, err = s.Render()
	require.NoError(t, err)
	assert.True(t, v.Placeholder)
}

func TestRenderQuestionKinds(t *testing.T) {
	s := loaded(t, threeQuestions())

	v, err := s.Render()
	require.NoError(t, err)
	assert.Equal(t, 1, v.Position)
	assert.Equal(t, 3, v.Total)
	assert.Equal(t, []string{"Paris", "Rome"}, v.Choices)

	s.Next()
	v, err = s.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{"True", "False"}, v.Choices)
	assert.Equal(t, "The earth is round.", v.Text)
}

func TestRenderUnsupportedKindFails(t *testing.T) {
	s := loaded(t, []exam.Question{{ID: uuid.New(), Type: exam.Kind("essay"), Text: "Discuss."}})

	v, err := s.Render()
	require.ErrorIs(t, err, exam.ErrUnsupportedQuestionType)
	assert.Empty(t, v.Text)
	assert.False(t, v.Placeholder)
}

func TestLoadFailureThenRetry(t *testing.T) {
	f := &stubFetcher{questions: threeQuestions(), errs: []error{errors.New("connection refused")}}
	s := NewSession(f, uuid.New())

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.EqualError(t, s.Err(), "connection refused")

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StateReady, s.State())
	assert.NoError(t, s.Err())
	assert.Equal(t, 3, s.Len())
}

func TestLoadFetchesOnce(t *testing.T) {
	f := &stubFetcher{questions: threeQuestions()}
	s := NewSession(f, uuid.New())

	require.NoError(t, s.Load(context.Background()))
	s.Next()
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, s.Index())
}

func TestRenderIsConsistentWhileAdvancing(t *testing.T) {
	qs := make([]exam.Question, 500)
	for i := range qs {
		qs[i] = exam.Question{ID: uuid.New(), Type: exam.KindTrueFalse, Text: fmt.Sprintf("q%d", i+1)}
	}
	s := loaded(t, qs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for s.Next() {
		}
	}()

	for i := 0; i < 1000; i++ {
		v, err := s.Render()
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("q%d", v.Position), v.Text)
		require.Equal(t, len(qs), v.Total)
	}
	wg.Wait()
}
