package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID_UniqueAndMonotonic(t *testing.T) {
	const n = 10000
	seen := make(map[int64]bool, n)
	prev := int64(0)
	for i := 0; i < n; i++ {
		id := NextID()
		require.False(t, seen[id], "duplicate id %d", id)
		require.Greater(t, id, prev)
		seen[id] = true
		prev = id
	}
}

func TestNextID_ConcurrentUnique(t *testing.T) {
	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	ids := make(chan int64, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- NextID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, workers*perWorker)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestBusinessNumbers(t *testing.T) {
	orderNo := GenerateOrderNo()
	paymentNo := GeneratePaymentNo()
	entryNo := GenerateEntryNo()

	assert.True(t, strings.HasPrefix(orderNo, "ORD"))
	assert.True(t, strings.HasPrefix(paymentNo, "PAY"))
	assert.True(t, strings.HasPrefix(entryNo, "LED"))

	// prefix(3) + timestamp(14) + suffix(8)
	assert.Len(t, orderNo, 25)
	assert.Len(t, paymentNo, 25)
	assert.Len(t, entryNo, 25)

	assert.NotEqual(t, GenerateOrderNo(), GenerateOrderNo())
}
