package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMsg struct {
	Role    string
	Content string
}

func TestMessageStore_Append(t *testing.T) {
	ms := NewMessageStore[testMsg](nil)

	assert.Equal(t, 0, ms.Len())

	ms.Append(testMsg{Role: "user", Content: "Hello"})
	assert.Equal(t, 1, ms.Len())

	ms.Append(
		testMsg{Role: "assistant", Content: "Hi there"},
		testMsg{Role: "user", Content: "How are you?"},
	)
	assert.Equal(t, 3, ms.Len())
}

func TestMessageStore_Messages(t *testing.T) {
	ms := NewMessageStore[testMsg](nil)

	ms.Append(
		testMsg{Role: "user", Content: "Hello"},
		testMsg{Role: "assistant", Content: "Hi"},
	)

	messages := ms.Messages()
	assert.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Equal(t, "Hi", messages[1].Content)

	messages[0].Content = "Modified"
	storeMessages := ms.Messages()
	assert.Equal(t, "Hello", storeMessages[0].Content)
}

func TestMessageStore_Clear(t *testing.T) {
	ms := NewMessageStore[testMsg](nil)

	ms.Append(
		testMsg{Role: "user", Content: "Hello"},
		testMsg{Role: "assistant", Content: "Hi"},
	)

	ms.Clear()
	assert.Equal(t, 0, ms.Len())
	assert.Empty(t, ms.Messages())
}

func TestMessageStore_Clone(t *testing.T) {
	ms := NewMessageStore[testMsg](nil)

	ms.Append(
		testMsg{Role: "user", Content: "Hello"},
		testMsg{Role: "assistant", Content: "Hi"},
	)

	clone := ms.Clone()

	assert.Equal(t, 2, clone.Len())
	assert.Equal(t, "Hello", clone.Messages()[0].Content)

	ms.Append(testMsg{Role: "user", Content: "New"})
	assert.Equal(t, 3, ms.Len())
	assert.Equal(t, 2, clone.Len())

	clone.Clear()
	assert.Equal(t, 3, ms.Len())
}

func TestMessageStore_Last(t *testing.T) {
	ms := NewMessageStore[testMsg](nil)

	ms.Append(
		testMsg{Role: "user", Content: "1"},
		testMsg{Role: "assistant", Content: "2"},
		testMsg{Role: "user", Content: "3"},
		testMsg{Role: "assistant", Content: "4"},
	)

	last := ms.Last(2)
	assert.Len(t, last, 2)
	assert.Equal(t, "3", last[0].Content)
	assert.Equal(t, "4", last[1].Content)

	all := ms.Last(10)
	assert.Len(t, all, 4)

	assert.Nil(t, ms.Last(0))
	assert.Nil(t, ms.Last(-1))
}

func TestMessageStore_NewFrom(t *testing.T) {
	initial := []testMsg{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi"},
	}

	ms := NewMessageStoreFrom(initial, nil)

	assert.Equal(t, 2, ms.Len())
	assert.Equal(t, "Hello", ms.Messages()[0].Content)

	initial[0].Content = "Modified"
	assert.Equal(t, "Hello", ms.Messages()[0].Content)
}

func TestMessageStore_SyncReload(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	ms1 := NewMessageStore[testMsg](adapter)
	ms1.Append(
		testMsg{Role: "user", Content: "Hello"},
		testMsg{Role: "assistant", Content: "Hi there"},
	)
	require.NoError(t, ms1.Sync(ctx, "conversation"))

	ms2 := NewMessageStore[testMsg](adapter)
	require.NoError(t, ms2.Reload(ctx, "conversation"))

	assert.Equal(t, 2, ms2.Len())
	messages := ms2.Messages()
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "Hi there", messages[1].Content)
}

func TestMessageStore_ReloadNotFound(t *testing.T) {
	ctx := context.Background()
	ms := NewMessageStore[testMsg](nil)

	err := ms.Reload(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMessageStore_Concurrent(t *testing.T) {
	ms := NewMessageStore[testMsg](nil)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ms.Append(testMsg{Role: "user", Content: "msg"})
		}(i)
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ms.Messages()
		}()
	}

	wg.Wait()
	assert.Equal(t, 100, ms.Len())
}

func TestMessageStore_EmptyAppend(t *testing.T) {
	ms := NewMessageStore[testMsg](nil)

	ms.Append()
	assert.Equal(t, 0, ms.Len())
}
