package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms_chat_console/pkg/errorx"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(1, 8)
	defer c.Close()
	ctx := context.Background()

	v, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	_, err = c.GetOrError(ctx, "missing")
	assert.True(t, errorx.IsNotFound(err))

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err = c.GetOrError(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k"))
	v, _ = c.Get(ctx, "k")
	assert.Equal(t, "", v)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(1, 8)
	defer c.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, _ := c.Get(ctx, "k")
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	v, _ = c.Get(ctx, "k")
	assert.Equal(t, "", v)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	c := NewMemoryCache(1, 8)
	defer c.Close()
	ctx := context.Background()
	for _, k := range []string{"chat_meta_1", "chat_meta_2", "other"} {
		require.NoError(t, c.Set(ctx, k, "x", 0))
	}

	require.NoError(t, c.DeleteByPattern(ctx, "chat_meta_*"))
	v, _ := c.Get(ctx, "chat_meta_1")
	assert.Equal(t, "", v)
	v, _ = c.Get(ctx, "other")
	assert.Equal(t, "x", v)
}

func TestSubmitTaskRunsBeforeClose(t *testing.T) {
	c := NewMemoryCache(2, 4)
	var mu sync.Mutex
	n := 0
	for i := 0; i < 20; i++ {
		c.SubmitTask(func() {
			mu.Lock()
			n++
			mu.Unlock()
		})
	}
	c.SubmitTask(func() { panic("boom") })
	require.NoError(t, c.Close())
	assert.Equal(t, 20, n)

	// 关闭后同步执行
	c.SubmitTask(func() { n++ })
	assert.Equal(t, 21, n)
}

func TestChatMetaRoundTrip(t *testing.T) {
	c := NewMemoryCache(1, 8)
	defer c.Close()
	ctx := context.Background()

	meta, err := LoadChatMeta(ctx, c, 4)
	require.NoError(t, err)
	assert.Nil(t, meta)

	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, SaveChatMeta(ctx, c, 4, ChatMeta{Text: "hi", Time: at}, time.Hour))
	meta, err = LoadChatMeta(ctx, c, 4)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "hi", meta.Text)
	assert.True(t, at.Equal(meta.Time))

	require.NoError(t, c.Set(ctx, chatMetaKey(5), "{broken", 0))
	meta, err = LoadChatMeta(ctx, c, 5)
	require.NoError(t, err)
	assert.Nil(t, meta)

	require.NoError(t, ClearChatMeta(ctx, c))
	meta, _ = LoadChatMeta(ctx, c, 4)
	assert.Nil(t, meta)
}

func TestSaveChatMetaAsync(t *testing.T) {
	c := NewMemoryCache(1, 8)
	SaveChatMetaAsync(c, 8, ChatMeta{Text: "later"}, 0)
	require.NoError(t, c.Close())

	meta, err := LoadChatMeta(context.Background(), c, 8)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "later", meta.Text)
}
