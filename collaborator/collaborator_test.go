package collaborator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockReplaysScriptInOrder(t *testing.T) {
	scriptErr := errors.New("rate limited")
	m := NewMock(
		MockResult{Text: "first"},
		MockResult{Err: scriptErr},
		MockResult{Text: "third"},
	)

	ctx := context.Background()

	resp, err := m.Complete(ctx, Request{Prompt: "one"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)
	assert.Equal(t, "mock", resp.Model)

	_, err = m.Complete(ctx, Request{Prompt: "two"})
	assert.ErrorIs(t, err, scriptErr)

	resp, err = m.Complete(ctx, Request{Prompt: "three"})
	require.NoError(t, err)
	assert.Equal(t, "third", resp.Text)

	_, err = m.Complete(ctx, Request{Prompt: "four"})
	assert.ErrorIs(t, err, ErrScriptExhausted)
}

func TestMockRecordsRequests(t *testing.T) {
	m := NewMock(MockResult{Text: "ok"})

	_, err := m.Complete(context.Background(), Request{System: "sys", Prompt: "p"})
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "sys", reqs[0].System)
	assert.Equal(t, "p", reqs[0].Prompt)
}

func TestMockHonorsContextCancellation(t *testing.T) {
	m := NewMock(MockResult{Text: "never"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, Request{Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.Requests(), "cancelled requests are not recorded")
}
