package ringbuf

// Ring is a fixed-capacity ring buffer keeping the most recently pushed
// value at position 0. Once full, new pushes overwrite the oldest slot.
type Ring[T any] struct {
	data   []T
	head   int
	pushed int
}

func New[T any](size int) *Ring[T] {
	return &Ring[T]{
		data: make([]T, size),
		head: 0,
	}
}

func (r *Ring[T]) Push(v T) *Ring[T] {
	r.head = r.head - 1
	if r.head < 0 {
		r.head = len(r.data) - 1
	}
	r.data[r.head] = v
	r.pushed++
	return r
}

// Walk visits the occupied slots from newest to oldest.
func (r *Ring[T]) Walk(fn func(T)) {
	n := r.Len()
	for i := 0; i < n; i++ {
		fn(r.data[(r.head+i)%len(r.data)])
	}
}

// GetN returns the i-th most recent value; i must be below Len.
func (r *Ring[T]) GetN(i int) T {
	idx := r.head + i
	if idx < 0 {
		idx = len(r.data) + idx
	}
	return r.data[idx%len(r.data)]
}

// Len is the number of occupied slots.
func (r *Ring[T]) Len() int {
	if r.pushed < len(r.data) {
		return r.pushed
	}
	return len(r.data)
}

func (r *Ring[T]) Cap() int {
	return len(r.data)
}
