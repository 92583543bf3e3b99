package native

// ByteStream backs a java.io.ByteArrayInputStream.
type ByteStream struct {
	data []byte
	pos  int
}

// NewByteStream creates a stream over data.
func NewByteStream(data []byte) *ByteStream {
	return &ByteStream{data: data}
}

// Read returns the next byte as 0-255, or -1 at end of stream.
func (s *ByteStream) Read() int32 {
	if s.pos >= len(s.data) {
		return -1
	}
	b := s.data[s.pos]
	s.pos++
	return int32(b)
}

// Available returns the number of unread bytes.
func (s *ByteStream) Available() int32 {
	return int32(len(s.data) - s.pos)
}
