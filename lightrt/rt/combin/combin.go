// Package combin enumerates k-element increasing subsets of {0, ..., n-1}
// in lexicographic order.
package combin

import "iter"

// Iterator walks the k-combinations of n elements without recursion. It is
// finite and can be restarted with Reset.
//
//	it := combin.New(4, 2)
//	for it.Next() {
//		use(it.Value())
//	}
type Iterator struct {
	n, k    int
	cur     []int
	started bool
	done    bool
}

func New(n, k int) *Iterator {
	it := &Iterator{n: n, k: k}
	it.Reset()
	return it
}

func (it *Iterator) Reset() {
	it.started = false
	it.done = it.k <= 0 || it.k > it.n
	if it.cur == nil && it.k > 0 {
		it.cur = make([]int, it.k)
	}
}

// Next advances to the next combination and reports whether one exists.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		for i := range it.cur {
			it.cur[i] = i
		}
		it.started = true
		return true
	}

	// Rightmost position that can still be incremented.
	i := it.k - 1
	for i >= 0 && it.cur[i] == it.n-it.k+i {
		i--
	}
	if i < 0 {
		it.done = true
		return false
	}
	it.cur[i]++
	for j := i + 1; j < it.k; j++ {
		it.cur[j] = it.cur[j-1] + 1
	}
	return true
}

// Value returns the current combination. The slice is reused by Next; copy
// it to keep it.
func (it *Iterator) Value() []int {
	return it.cur
}

// Seq yields each combination as a fresh slice.
func Seq(n, k int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		it := New(n, k)
		for it.Next() {
			if !yield(append([]int(nil), it.Value()...)) {
				return
			}
		}
	}
}

// All collects every k-combination of n elements.
func All(n, k int) [][]int {
	var out [][]int
	for c := range Seq(n, k) {
		out = append(out, c)
	}
	return out
}

// Count is the binomial coefficient C(n, k).
func Count(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	c := 1
	for i := 1; i <= k; i++ {
		c = c * (n - k + i) / i
	}
	return c
}
