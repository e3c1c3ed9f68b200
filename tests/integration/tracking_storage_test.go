package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"funnel/internal/constants"
	"funnel/internal/tracking"
)

func TestDataLayer_PushAndEntries(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	dl := tracking.NewDataLayer(infra.RedisClient, 50, 30*time.Minute)

	require.NoError(t, dl.Push(ctx, "visitor-dl-1", map[string]any{"event": "page_view", "page_url": "https://example.com/"}))
	require.NoError(t, dl.Push(ctx, "visitor-dl-1", map[string]any{"event": "pdf_download", "file_name": "roadmap.pdf"}))

	entries, err := dl.Entries(ctx, "visitor-dl-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Most recent entry first.
	assert.Equal(t, "pdf_download", entries[0]["event"])
	assert.Equal(t, "roadmap.pdf", entries[0]["file_name"])
	assert.Equal(t, "page_view", entries[1]["event"])
}

func TestDataLayer_CapsEntries(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	dl := tracking.NewDataLayer(infra.RedisClient, 3, 30*time.Minute)

	for i := 0; i < 5; i++ {
		require.NoError(t, dl.Push(ctx, "visitor-dl-2", map[string]any{"event": "page_view", "seq": i}))
	}

	entries, err := dl.Entries(ctx, "visitor-dl-2")
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Oldest entries are trimmed away.
	assert.Equal(t, float64(4), entries[0]["seq"])
	assert.Equal(t, float64(2), entries[2]["seq"])
}

func TestDataLayer_SessionTTL(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	dl := tracking.NewDataLayer(infra.RedisClient, 50, 30*time.Minute)

	require.NoError(t, dl.Push(ctx, "visitor-dl-3", map[string]any{"event": "page_view"}))

	ttl, err := infra.RedisClient.TTL(ctx, constants.KeyPrefixDataLayer+"visitor-dl-3").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 25*time.Minute)
	assert.LessOrEqual(t, ttl, 30*time.Minute)
}

func TestSessionEventCache_StoreAndMerge(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	cache := tracking.NewSessionEventCache(infra.RedisClient, 30*time.Minute)

	require.NoError(t, cache.Store(ctx, "visitor-ec-1", tracking.EventPDFDownload, map[string]string{
		"pdf_downloaded":    "true",
		"last_pdf_download": "2026-08-28T10:00:00Z",
	}))
	require.NoError(t, cache.Store(ctx, "visitor-ec-1", tracking.EventBookCallClick, map[string]string{
		"book_call_clicked": "true",
	}))

	props, err := cache.EventProperties(ctx, "visitor-ec-1")
	require.NoError(t, err)
	assert.Equal(t, "true", props["pdf_downloaded"])
	assert.Equal(t, "2026-08-28T10:00:00Z", props["last_pdf_download"])
	assert.Equal(t, "true", props["book_call_clicked"])
}

func TestSessionEventCache_StoreOverwritesSameKind(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	cache := tracking.NewSessionEventCache(infra.RedisClient, 30*time.Minute)

	require.NoError(t, cache.Store(ctx, "visitor-ec-2", tracking.EventPDFDownload, map[string]string{
		"last_pdf_download": "2026-08-28T10:00:00Z",
	}))
	require.NoError(t, cache.Store(ctx, "visitor-ec-2", tracking.EventPDFDownload, map[string]string{
		"last_pdf_download": "2026-08-28T11:30:00Z",
	}))

	props, err := cache.EventProperties(ctx, "visitor-ec-2")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-28T11:30:00Z", props["last_pdf_download"])
}

func TestSessionEventCache_Clear(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	cache := tracking.NewSessionEventCache(infra.RedisClient, 30*time.Minute)

	require.NoError(t, cache.Store(ctx, "visitor-ec-3", tracking.EventFormSubmission, map[string]string{"lead_source_detail": "Hero Form"}))
	require.NoError(t, cache.Clear(ctx, "visitor-ec-3"))

	props, err := cache.EventProperties(ctx, "visitor-ec-3")
	require.NoError(t, err)
	assert.Empty(t, props)
}
