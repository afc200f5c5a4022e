package stream

import (
	"bytes"

	"github.com/bytedance/sonic"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// scanState is the position of the frame scanner between reads
type scanState int

const (
	// stateAwaitingLine: the buffer may hold a complete line
	stateAwaitingLine scanState = iota
	// stateHaveLine: a line was cut from the buffer and awaits interpretation
	stateHaveLine
	// stateAwaitingMoreBytes: nothing can be resolved until the next read
	stateAwaitingMoreBytes
)

func (s scanState) String() string {
	switch s {
	case stateAwaitingLine:
		return "AwaitingLine"
	case stateHaveLine:
		return "HaveLine"
	case stateAwaitingMoreBytes:
		return "AwaitingMoreBytes"
	default:
		return "unknown"
	}
}

// eventKind is what the scanner produced
type eventKind int

const (
	eventNeedBytes eventKind = iota
	eventDelta
	eventDone
)

// frameScanner reassembles event-stream lines from arbitrary chunks and
// extracts content deltas. It works on bytes so multi-byte characters
// split across chunks are only decoded once the whole line is present.
type frameScanner struct {
	buf   []byte
	line  []byte
	state scanState

	// retrying is set while the frame at the head of buf has failed to
	// parse once and was pushed back
	retrying bool
	dropped  int
}

// feed appends a chunk and resumes line extraction
func (s *frameScanner) feed(chunk []byte) {
	s.buf = append(s.buf, chunk...)
	if s.state == stateAwaitingMoreBytes {
		s.state = stateAwaitingLine
	}
}

// pending reports the bytes received but not resolved into lines
func (s *frameScanner) pending() int {
	return len(s.buf)
}

// next runs the state machine until it yields a delta, reaches the
// sentinel, or needs more bytes. Ignored lines and empty deltas yield
// nothing.
func (s *frameScanner) next() (eventKind, string) {
	for {
		switch s.state {
		case stateAwaitingMoreBytes:
			return eventNeedBytes, ""

		case stateAwaitingLine:
			i := bytes.IndexByte(s.buf, '\n')
			if i < 0 {
				s.state = stateAwaitingMoreBytes
				continue
			}
			s.line = s.buf[:i]
			s.buf = s.buf[i+1:]
			s.state = stateHaveLine

		case stateHaveLine:
			line := s.line
			s.line = nil
			s.state = stateAwaitingLine

			kind, delta, ok := interpret(line)
			if !ok {
				s.pushBack(line)
				continue
			}
			s.retrying = false
			if kind == eventDone || (kind == eventDelta && delta != "") {
				return kind, delta
			}
		}
	}
}

// pushBack returns an unparseable frame to the head of the buffer and
// pauses until more bytes arrive. A frame that still fails after that is
// dropped so it cannot stall the stream.
func (s *frameScanner) pushBack(line []byte) {
	if s.retrying {
		s.retrying = false
		s.dropped++
		return
	}

	restored := make([]byte, 0, len(line)+1+len(s.buf))
	restored = append(restored, line...)
	restored = append(restored, '\n')
	s.buf = append(restored, s.buf...)

	s.retrying = true
	s.state = stateAwaitingMoreBytes
}

// resume re-examines a pushed-back frame when no more bytes will arrive,
// so it is dropped and the lines queued behind it are still decoded. It
// reports false when nothing is left to resolve.
func (s *frameScanner) resume() bool {
	if !s.retrying || s.state != stateAwaitingMoreBytes {
		return false
	}
	s.state = stateAwaitingLine
	return true
}

// interpret classifies one line. ok is false only for a data frame whose
// payload is not valid JSON; every other line is either an event or
// ignored (eventNeedBytes with ok).
func interpret(line []byte) (eventKind, string, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})

	if len(bytes.TrimSpace(line)) == 0 || line[0] == ':' {
		return eventNeedBytes, "", true
	}
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return eventNeedBytes, "", true
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if string(payload) == doneMarker {
		return eventDone, "", true
	}

	var chunk any
	if err := sonic.Unmarshal(payload, &chunk); err != nil {
		return eventNeedBytes, "", false
	}
	return eventDelta, deltaContent(chunk), true
}

// deltaContent reads choices[0].delta.content, tolerating any other shape
func deltaContent(chunk any) string {
	obj, _ := chunk.(map[string]any)
	choices, _ := obj["choices"].([]any)
	if len(choices) == 0 {
		return ""
	}
	first, _ := choices[0].(map[string]any)
	delta, _ := first["delta"].(map[string]any)
	content, _ := delta["content"].(string)
	return content
}
