// duart/ringbuffer.go

package duart

// RingBuffer is a fixed-capacity circular byte buffer with back enqueue and
// front dequeue. The zero value is unusable until Init binds storage.
//
// One end of a ring is serviced in signal-handler context and the other in
// mainline code. Multi-step mainline updates must run with the corresponding
// signal masked; see Backend.DisableInterrupts.
type RingBuffer struct {
	data   []byte
	head   int // index of the oldest byte
	length int // bytes currently held, 0..len(data)
}

// NewRingBuffer returns a ring bound to storage.
func NewRingBuffer(storage []byte) *RingBuffer {
	rb := &RingBuffer{}
	rb.Init(storage)
	return rb
}

// Init binds a pre-allocated storage span and empties the ring. The capacity
// is len(storage) and never changes afterwards.
func (rb *RingBuffer) Init(storage []byte) {
	rb.data = storage
	rb.head = 0
	rb.length = 0
}

// Size returns the total capacity of the ring in bytes.
func (rb *RingBuffer) Size() int {
	return len(rb.data)
}

// Used returns how many bytes the ring currently holds.
func (rb *RingBuffer) Used() int {
	return rb.length
}

// Free returns how many more bytes Put can accept.
func (rb *RingBuffer) Free() int {
	return len(rb.data) - rb.length
}

// IsEmpty reports whether the ring holds no data.
func (rb *RingBuffer) IsEmpty() bool {
	return rb.length == 0
}

// Put appends a byte at the back. If the ring is already full it returns
// false with no side effect; this is the sole overflow signal.
func (rb *RingBuffer) Put(val byte) bool {
	if rb.length >= len(rb.data) {
		return false
	}
	rb.data[(rb.head+rb.length)%len(rb.data)] = val
	rb.length++
	return true
}

// Get removes and returns the byte at the front.
//
// Precondition: !IsEmpty(). Get performs no emptiness check; callers gate on
// ring state before dequeuing.
func (rb *RingBuffer) Get() byte {
	val := rb.data[rb.head]
	rb.head = (rb.head + 1) % len(rb.data)
	rb.length--
	return val
}

// Flush empties the ring by resetting its length. Stored bytes become
// unreachable but are not erased.
func (rb *RingBuffer) Flush() {
	rb.length = 0
}
