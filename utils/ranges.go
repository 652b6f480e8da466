package utils

// RangeIterator walks the integers of a set of inclusive [start, end]
// segments in order. It can be restarted with First.
type RangeIterator struct {
	segments [][2]int
	seg      int
	Ind      int
}

func NewRangeIterator(segments ...[2]int) (r RangeIterator) {
	for _, s := range segments {
		if s[1] >= s[0] {
			r.segments = append(r.segments, s)
		}
	}
	r.First()
	return
}

func (r *RangeIterator) First() {
	r.seg = 0
	if len(r.segments) != 0 {
		r.Ind = r.segments[0][0]
	}
}

func (r *RangeIterator) Next() {
	if r.IsDone() {
		return
	}
	r.Ind++
	if r.Ind > r.segments[r.seg][1] {
		r.seg++
		if !r.IsDone() {
			r.Ind = r.segments[r.seg][0]
		}
	}
}

func (r *RangeIterator) IsDone() bool {
	return r.seg >= len(r.segments)
}

// Segments returns the non-empty inclusive segments
func (r RangeIterator) Segments() [][2]int {
	return r.segments
}

// Indices materializes the sequence
func (r RangeIterator) Indices() (I []int) {
	for r.First(); !r.IsDone(); r.Next() {
		I = append(I, r.Ind)
	}
	return
}

func (r RangeIterator) Len() (n int) {
	for _, s := range r.segments {
		n += s[1] - s[0] + 1
	}
	return
}

// Contains reports whether i is part of the sequence
func (r RangeIterator) Contains(i int) bool {
	for _, s := range r.segments {
		if i >= s[0] && i <= s[1] {
			return true
		}
	}
	return false
}
