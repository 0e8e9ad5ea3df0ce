package pool

import (
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelize(t *testing.T) {
	for _, pl := range []*Pool{nil, NewPool(4)} {
		squares := Parallelize(pl, 50, func(i int) int { return i * i })
		require.Len(t, squares, 50)
		for i, s := range squares {
			assert.Equal(t, i*i, s)
		}
		pl.TearDown()
	}
}

func TestSearch(t *testing.T) {
	for _, pl := range []*Pool{nil, NewPool(3)} {
		var ctr int64
		found := Search(pl, 5, func() (int64, bool) {
			v := atomic.AddInt64(&ctr, 1)
			return v, v%7 == 0
		})
		require.Len(t, found, 5)
		for _, v := range found {
			assert.Zero(t, v%7)
		}
		pl.TearDown()
	}
}

func TestTearDownTwice(t *testing.T) {
	pl := NewPool(0)
	assert.Positive(t, pl.Workers())
	pl.TearDown()
	pl.TearDown()
	var nilPool *Pool
	assert.Equal(t, 1, nilPool.Workers())
}

func TestLockedReader(t *testing.T) {
	r := NewLockedReader(bytes.NewReader([]byte{1, 2, 3, 4}))
	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
}
