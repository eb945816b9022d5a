// Package tracelog provides wire-level tracing for an S7 session:
// connection lifecycle events and TX/RX frame hex dumps. It is adapted
// from the teacher's logging/debug.go, but drops that package's global
// singleton and file ownership — a Session takes a Sink and calls it
// directly, leaving log-destination choice (file, stdout, a structured
// logger) to the embedding application.
package tracelog

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Sink receives connection lifecycle and wire-trace events from a
// Session. Implementations must be safe for use by one goroutine at a
// time, matching a Session's own single-owner discipline.
type Sink interface {
	Connect(address string)
	ConnectSuccess(address, details string)
	ConnectError(address string, err error)
	Disconnect(address, reason string)
	Error(context string, err error)
	TX(data []byte)
	RX(data []byte)
}

// Discard is a Sink that does nothing, the default when no sink is
// configured.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Connect(string)            {}
func (discardSink) ConnectSuccess(string, string) {}
func (discardSink) ConnectError(string, error) {}
func (discardSink) Disconnect(string, string) {}
func (discardSink) Error(string, error)       {}
func (discardSink) TX([]byte)                 {}
func (discardSink) RX([]byte)                 {}

// WriterSink writes timestamped, hex-dumped trace lines to w, in the
// same format as the teacher's debug.log (§2 ambient stack).
type WriterSink struct {
	w io.Writer
}

// NewWriterSink returns a Sink that writes to w.
func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) logf(format string, args ...interface{}) {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(s.w, "%s %s\n", timestamp, fmt.Sprintf(format, args...))
}

func (s *WriterSink) Connect(address string) {
	s.logf("CONNECT to %s", address)
}

func (s *WriterSink) ConnectSuccess(address, details string) {
	s.logf("CONNECTED to %s - %s", address, details)
}

func (s *WriterSink) ConnectError(address string, err error) {
	s.logf("CONNECT FAILED to %s: %v", address, err)
}

func (s *WriterSink) Disconnect(address, reason string) {
	s.logf("DISCONNECT from %s: %s", address, reason)
}

func (s *WriterSink) Error(context string, err error) {
	s.logf("ERROR in %s: %v", context, err)
}

func (s *WriterSink) TX(data []byte) {
	s.logf("TX (%d bytes):\n%s", len(data), hexDump(data))
}

func (s *WriterSink) RX(data []byte) {
	s.logf("RX (%d bytes):\n%s", len(data), hexDump(data))
}

// hexDump renders data as offset/hex/ASCII lines, 16 bytes per line —
// the same layout as the teacher's logging.hexDump.
func hexDump(data []byte) string {
	if len(data) == 0 {
		return "    (empty)"
	}

	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		sb.WriteString(fmt.Sprintf("    %04X: ", offset))

		for i := 0; i < 8; i++ {
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" ")

		for i := 8; i < 16; i++ {
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" ")

		for i := 0; i < 16; i++ {
			if offset+i < len(data) {
				b := data[offset+i]
				if b >= 32 && b < 127 {
					sb.WriteByte(b)
				} else {
					sb.WriteByte('.')
				}
			}
		}
		sb.WriteString("\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}
