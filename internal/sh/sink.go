package sh

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// LineSink receives process output one line at a time. Run calls it from two goroutines.
type LineSink interface {
	Line(stream Stream, line string)
}

type LineSinkFunc func(stream Stream, line string)

func (f LineSinkFunc) Line(stream Stream, line string) {
	f(stream, line)
}

// LogSink writes every line as a log entry tagged with the stream.
type LogSink struct {
	Entry *logrus.Entry
}

func NewLogSink(entry *logrus.Entry) *LogSink {
	return &LogSink{Entry: entry}
}

func (s *LogSink) Line(stream Stream, line string) {
	s.Entry.WithField("stream", string(stream)).Info(line)
}

// SerializedSink makes a sink that is not safe for concurrent use callable from both drain workers.
type SerializedSink struct {
	mu   deadlock.Mutex
	sink LineSink
}

func Serialized(sink LineSink) *SerializedSink {
	if already, ok := sink.(*SerializedSink); ok {
		return already
	}
	return &SerializedSink{sink: sink}
}

func (s *SerializedSink) Line(stream Stream, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Line(stream, line)
}

type RecordedLine struct {
	Stream Stream
	Text   string
}

// RecordingSink keeps every line in arrival order.
type RecordingSink struct {
	mu    deadlock.Mutex
	lines []RecordedLine
}

func (s *RecordingSink) Line(stream Stream, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, RecordedLine{Stream: stream, Text: line})
}

func (s *RecordingSink) Lines() []RecordedLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedLine(nil), s.lines...)
}

func (s *RecordingSink) StreamLines(stream Stream) []string {
	var out []string
	for _, line := range s.Lines() {
		if line.Stream == stream {
			out = append(out, line.Text)
		}
	}
	return out
}
