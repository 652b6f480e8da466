package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeIterator(t *testing.T) {
	{
		r := NewRangeIterator([2]int{0, 2}, [2]int{5, 5}, [2]int{7, 6})
		assert.Equal(t, []int{0, 1, 2, 5}, r.Indices())
		assert.Equal(t, 4, r.Len())
		assert.True(t, r.Contains(5))
		assert.False(t, r.Contains(6))
		// Restartable
		var first, second []int
		for r.First(); !r.IsDone(); r.Next() {
			first = append(first, r.Ind)
		}
		for r.First(); !r.IsDone(); r.Next() {
			second = append(second, r.Ind)
		}
		assert.Equal(t, first, second)
	}
	{ // Empty
		r := NewRangeIterator([2]int{3, 2})
		assert.True(t, r.IsDone())
		assert.Nil(t, r.Indices())
		assert.Equal(t, 0, r.Len())
		r.Next()
		assert.True(t, r.IsDone())
	}
}
