package sink

import "io"

// Sink is the downstream consumer of transformed segments. Write is
// called once per emitted segment, in playback order; there is no
// acknowledgement channel.
type Sink interface {
	Write(p []byte) error
}

// WriterSink emits segments to any io.Writer (a file, a pipe, stdout).
type WriterSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a segment sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write forwards one segment to the underlying writer.
func (s *WriterSink) Write(p []byte) error {
	_, err := s.w.Write(p)
	return err
}
