package live

// Chunker slices fixed-size windows off an accumulation buffer. The buffer
// only grows by Append and only shrinks by Next removing a prefix.
type Chunker struct {
	size int
	buf  []float32
}

// NewChunker returns a Chunker emitting windows of size samples.
func NewChunker(size int) *Chunker {
	return &Chunker{size: size}
}

// Append adds samples to the end of the buffer.
func (c *Chunker) Append(samples []float32) {
	c.buf = append(c.buf, samples...)
}

// Next removes and returns the first window when one is complete.
func (c *Chunker) Next() ([]float32, bool) {
	if c.size <= 0 || len(c.buf) < c.size {
		return nil, false
	}
	chunk := make([]float32, c.size)
	copy(chunk, c.buf)
	n := copy(c.buf, c.buf[c.size:])
	c.buf = c.buf[:n]
	return chunk, true
}

// Buffered returns the number of samples waiting for a full window.
func (c *Chunker) Buffered() int { return len(c.buf) }

// Remainder returns a copy of the samples not yet emitted.
func (c *Chunker) Remainder() []float32 {
	out := make([]float32, len(c.buf))
	copy(out, c.buf)
	return out
}
