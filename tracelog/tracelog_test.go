package tracelog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriterSinkConnectEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	sink.Connect("10.0.0.1:102")
	sink.ConnectSuccess("10.0.0.1:102", "rack=0 slot=2 pdu=480")
	sink.ConnectError("10.0.0.2:102", errors.New("dial timeout"))
	sink.Disconnect("10.0.0.1:102", "close requested")
	sink.Error("read SZL", errors.New("short buffer"))

	out := buf.String()
	for _, want := range []string{
		"CONNECT to 10.0.0.1:102",
		"CONNECTED to 10.0.0.1:102 - rack=0 slot=2 pdu=480",
		"CONNECT FAILED to 10.0.0.2:102: dial timeout",
		"DISCONNECT from 10.0.0.1:102: close requested",
		"ERROR in read SZL: short buffer",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestWriterSinkTXRXHexDump(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	sink.TX([]byte{0x03, 0x00, 0x00, 0x16})
	out := buf.String()
	if !strings.Contains(out, "TX (4 bytes)") {
		t.Errorf("missing TX byte count, got:\n%s", out)
	}
	if !strings.Contains(out, "03 00 00 16") {
		t.Errorf("missing hex bytes, got:\n%s", out)
	}
}

func TestDiscardSinkIsSafe(t *testing.T) {
	Discard.Connect("x")
	Discard.ConnectSuccess("x", "y")
	Discard.ConnectError("x", errors.New("e"))
	Discard.Disconnect("x", "y")
	Discard.Error("x", errors.New("e"))
	Discard.TX([]byte{1, 2, 3})
	Discard.RX([]byte{1, 2, 3})
}

func TestHexDumpEmpty(t *testing.T) {
	if got := hexDump(nil); got != "    (empty)" {
		t.Errorf("hexDump(nil) = %q", got)
	}
}
