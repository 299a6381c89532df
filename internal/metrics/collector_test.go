package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpProviderFetch, 10*time.Millisecond)
	c.RecordTiming(OpProviderFetch, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.ProviderFetch)
	assert.Equal(t, int64(2), snap.ProviderFetch.Count)
	assert.Equal(t, int64(40), snap.ProviderFetch.TotalTimeMs)
	assert.Equal(t, int64(10), snap.ProviderFetch.MinTimeMs)
	assert.Equal(t, int64(30), snap.ProviderFetch.MaxTimeMs)
	assert.InDelta(t, 20.0, snap.ProviderFetch.AvgTimeMs, 0.001)
	assert.Nil(t, snap.ProviderFetch.TotalInputTokens)

	assert.Nil(t, snap.WebLookup, "unused operations are omitted")
}

func TestRecordLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpClassify, 5*time.Millisecond, 100, 20)
	c.RecordLLMUsage(OpClassify, 7*time.Millisecond, 50, 40)

	snap := c.Snapshot()
	require.NotNil(t, snap.Classify)
	require.NotNil(t, snap.Classify.TotalInputTokens)
	assert.Equal(t, int64(150), *snap.Classify.TotalInputTokens)
	assert.Equal(t, int64(60), *snap.Classify.TotalOutputTokens)
	assert.Equal(t, int64(50), *snap.Classify.MinInputTokens)
	assert.Equal(t, int64(40), *snap.Classify.MaxOutputTokens)
}

func TestSnapshotNamed(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpDiscovery, time.Millisecond)
	c.RecordTiming(OpRelevance, time.Millisecond)

	named := c.Snapshot().Named()
	assert.Len(t, named, 2)
	assert.Contains(t, named, OpDiscovery)
	assert.Contains(t, named, OpRelevance)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(OpWebLookup, time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Snapshot().WebLookup.Count)
}
