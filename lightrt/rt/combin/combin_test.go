package combin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAll_FourChooseTwo(t *testing.T) {
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	assert.Equal(t, want, All(4, 2))
}

func TestAll_Singletons(t *testing.T) {
	assert.Equal(t, [][]int{{0}, {1}, {2}}, All(3, 1))
	assert.Equal(t, [][]int{{0, 1, 2}}, All(3, 3))
}

func TestAll_Degenerate(t *testing.T) {
	assert.Empty(t, All(2, 3))
	assert.Empty(t, All(0, 1))
	assert.Empty(t, All(5, 0))
}

func TestIterator_Reset(t *testing.T) {
	it := New(5, 3)
	first := 0
	for it.Next() {
		first++
	}
	assert.False(t, it.Next(), "exhausted iterator stays exhausted")

	it.Reset()
	second := 0
	for it.Next() {
		second++
	}
	assert.Equal(t, 10, first)
	assert.Equal(t, first, second)
}

func TestCountMatchesEnumeration(t *testing.T) {
	for n := 0; n <= 8; n++ {
		for k := 1; k <= 4; k++ {
			assert.Equal(t, Count(n, k), len(All(n, k)), "C(%d,%d)", n, k)
		}
	}
}

func TestSeq_IncreasingAndEarlyStop(t *testing.T) {
	n := 0
	for c := range Seq(6, 3) {
		for i := 1; i < len(c); i++ {
			assert.Less(t, c[i-1], c[i])
		}
		n++
		if n == 4 {
			break
		}
	}
	assert.Equal(t, 4, n)
}
