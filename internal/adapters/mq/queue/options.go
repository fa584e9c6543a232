package queue

// settings holds the configurable fields shared by all payload types.
type settings struct {
	name       string
	capacity   int
	bufferSize int
}

// Option applies a configuration option to an in-memory queue.
type Option func(*settings)

// WithName sets the queue name used in metrics labels.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(s *settings) {
		if capacity > 0 {
			s.capacity = capacity
			s.bufferSize = capacity
		}
	}
}

// WithBufferSize sets the buffer size for the underlying channel.
func WithBufferSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}
