package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMailBox(t *testing.T) {
	{ // FIFO per key, independent keys
		mb := NewMailBox[int]()
		k1 := MailKey{From: 0, To: 1, Tag: 4}
		k2 := MailKey{From: 0, To: 1, Tag: 5}
		for i := 0; i < 5; i++ {
			mb.PostMessage(k1, i)
		}
		mb.PostMessage(k2, 100)
		assert.Equal(t, []int{4, 5}, mb.PendingTags(0, 1))
		m, ok := mb.ReceiveMessage(k2, time.Second)
		assert.True(t, ok)
		assert.Equal(t, 100, m)
		for i := 0; i < 5; i++ {
			m, ok = mb.ReceiveMessage(k1, time.Second)
			assert.True(t, ok)
			assert.Equal(t, i, m)
		}
		assert.Nil(t, mb.PendingTags(0, 1))
	}
	{ // Timeout with nothing posted
		mb := NewMailBox[int]()
		_, ok := mb.ReceiveMessage(MailKey{1, 0, 0}, 10*time.Millisecond)
		assert.False(t, ok)
	}
	{ // Blocking receive woken by a concurrent post
		var (
			mb  = NewMailBox[[]float64]()
			key = MailKey{From: 2, To: 3, Tag: 1}
			wg  sync.WaitGroup
			got []float64
			ok  bool
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok = mb.ReceiveMessage(key, 5*time.Second)
		}()
		time.Sleep(10 * time.Millisecond)
		mb.PostMessage(key, []float64{1, 2})
		wg.Wait()
		assert.True(t, ok)
		assert.Equal(t, []float64{1, 2}, got)
	}
	{ // Claims bind in posting order whatever the wait order
		var (
			mb  = NewMailBox[int]()
			key = MailKey{From: 1, To: 0, Tag: 2}
		)
		first := mb.Claim(key)
		second := mb.Claim(key)
		assert.Equal(t, 0, first)
		assert.Equal(t, 1, second)
		mb.PostMessage(key, 10)
		mb.PostMessage(key, 20)
		m, ok := mb.ReceiveClaimed(key, second, time.Second)
		assert.True(t, ok)
		assert.Equal(t, 20, m)
		m, ok = mb.ReceiveClaimed(key, first, time.Second)
		assert.True(t, ok)
		assert.Equal(t, 10, m)
		assert.Nil(t, mb.PendingTags(1, 0))
	}
	{ // A later claim does not steal an earlier one's message
		var (
			mb  = NewMailBox[int]()
			key = MailKey{From: 0, To: 1, Tag: 0}
		)
		first := mb.Claim(key)
		second := mb.Claim(key)
		mb.PostMessage(key, 7)
		_, ok := mb.ReceiveClaimed(key, second, 10*time.Millisecond)
		assert.False(t, ok)
		m, ok := mb.ReceiveClaimed(key, first, time.Second)
		assert.True(t, ok)
		assert.Equal(t, 7, m)
	}
}
