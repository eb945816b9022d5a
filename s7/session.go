package s7

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/yatesdr/s7core/tracelog"
)

// State identifies a Session's position in the connection lifecycle
// (§4.6): Disconnected -> TCPConnected -> COTPConnected -> Ready, with
// Closed/Faulted as terminal states reachable from any of the above.
type State int

const (
	StateDisconnected State = iota
	StateTCPConnected
	StateCOTPConnected
	StateReady
	StateClosed
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateTCPConnected:
		return "tcp-connected"
	case StateCOTPConnected:
		return "cotp-connected"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

const (
	defaultS7Port    = 102
	defaultPDUSize   = 480
	proposedPDUSize  = 960
	minUsablePDUSize = 240
)

// options holds Open's configuration, set via functional Option values —
// the same shape as the teacher's client.go Connect options.
type options struct {
	rack     int
	slot     int
	connType byte
	timeout  time.Duration
	sink     tracelog.Sink
}

// Option configures Open. WithRackSlot and WithTimeout are adapted
// directly from the teacher's client.go; WithTraceSink is new, since this
// module's tracelog package replaces the teacher's global logger with an
// injectable one (§2 ambient stack).
type Option func(*options)

// WithRackSlot sets the destination rack/slot encoded into the COTP
// connection request. Default is rack 0, slot 2 (S7-300/400 convention);
// S7-1200/1500 CPUs commonly use rack 0, slot 1.
func WithRackSlot(rack, slot int) Option {
	return func(o *options) { o.rack, o.slot = rack, slot }
}

// WithTimeout sets the dial and per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithConnectionType sets the PG/OP/S7Basic tag (§4.4/§6) carried in the
// COTP connect-request's dst-TSAP high byte. Default is ConnTypePG.
func WithConnectionType(connType byte) Option {
	return func(o *options) { o.connType = connType }
}

// WithTraceSink attaches a tracelog.Sink that observes connection events
// and raw TX/RX frames.
func WithTraceSink(sink tracelog.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// Session owns one S7 connection: the TCP socket, the negotiated PDU
// size, and the rotating PDU-reference counter. A Session has a single
// owner — every exported method assumes the caller does not invoke it
// concurrently with another call on the same Session, matching the
// teacher's transport's single in-flight request model (§4.6 Concurrency
// model). The internal mutex guards state transitions and bookkeeping,
// it does not multiplex concurrent requests onto the wire.
type Session struct {
	mu       sync.Mutex
	conn     net.Conn
	state    State
	address  string
	rack     int
	slot     int
	connType byte
	timeout  time.Duration
	pduSize  uint16
	nextRef  uint16
	inFlight map[uint16]bool
	nextSeq  byte
	sink     tracelog.Sink
}

// Open dials address, performs the COTP connection and S7
// SetupCommunication handshake, and returns a Session in StateReady
// (§4.6). address may omit the port, in which case 102 is assumed.
func Open(address string, opts ...Option) (*Session, error) {
	cfg := &options{
		rack:     0,
		slot:     2,
		connType: ConnTypePG,
		timeout:  10 * time.Second,
		sink:     tracelog.Discard,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.sink == nil {
		cfg.sink = tracelog.Discard
	}

	if host, port, err := net.SplitHostPort(address); err != nil || port == "" {
		if host == "" {
			host = address
		}
		address = fmt.Sprintf("%s:%d", host, defaultS7Port)
	}

	s := &Session{
		address:  address,
		rack:     cfg.rack,
		slot:     cfg.slot,
		connType: cfg.connType,
		timeout:  cfg.timeout,
		pduSize:  defaultPDUSize,
		inFlight: make(map[uint16]bool),
		sink:     cfg.sink,
	}

	s.sink.Connect(address)
	conn, err := net.DialTimeout("tcp", address, s.timeout)
	if err != nil {
		s.sink.ConnectError(address, err)
		return nil, &TransportError{Err: err}
	}
	s.conn = conn
	s.state = StateTCPConnected

	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		conn.Close()
		s.state = StateFaulted
		return nil, &TransportError{Err: err}
	}

	if err := s.cotpHandshake(); err != nil {
		conn.Close()
		s.state = StateFaulted
		s.sink.ConnectError(address, err)
		return nil, err
	}
	s.state = StateCOTPConnected

	pduSize, err := s.setupComm()
	if err != nil {
		conn.Close()
		s.state = StateFaulted
		s.sink.ConnectError(address, err)
		return nil, err
	}
	s.pduSize = pduSize
	s.state = StateReady

	conn.SetDeadline(time.Time{})
	s.sink.ConnectSuccess(address, fmt.Sprintf("rack=%d slot=%d pdu=%d", s.rack, s.slot, pduSize))
	return s, nil
}

// State returns the Session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PDUSize returns the negotiated PDU size.
func (s *Session) PDUSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.pduSize)
}

// Close terminates the underlying connection and moves the Session to
// StateClosed. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.sink.Disconnect(s.address, "close requested")
	s.state = StateClosed
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Session) cotpHandshake() error {
	cr := buildCOTPConnectRequest(s.rack, s.slot, s.connType)
	s.sink.TX(cr)
	if err := sendTPKT(s.conn, cr); err != nil {
		return err
	}
	cc, err := recvTPKT(s.conn)
	if err != nil {
		return err
	}
	s.sink.RX(cc)
	return parseCOTPConnectConfirm(cc)
}

func (s *Session) setupComm() (uint16, error) {
	ref := s.allocateRef()
	defer s.releaseRef(ref)

	req := buildSetupCommRequest(ref, proposedPDUSize)
	frame := wrapCOTPData(req)
	s.sink.TX(frame)
	if err := sendTPKT(s.conn, frame); err != nil {
		return 0, err
	}
	resp, err := recvTPKT(s.conn)
	if err != nil {
		return 0, err
	}
	s.sink.RX(resp)
	s7Resp, err := unwrapCOTPData(resp)
	if err != nil {
		return 0, err
	}
	if h, err := parseS7Header(s7Resp); err != nil {
		return 0, err
	} else if h.PDURef != ref {
		return 0, ErrProtocolDesync
	}
	return parseSetupCommResponse(s7Resp)
}

// allocateRef returns the next PDU reference not already in flight,
// rotating through the 16-bit space (§4.6). The single-owner model means
// only one reference is ever in flight in practice, but the bookkeeping
// guards against reuse if a caller pipelines sends ahead of receives.
func (s *Session) allocateRef() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		s.nextRef++
		if s.nextRef == 0 {
			s.nextRef = 1
		}
		if !s.inFlight[s.nextRef] {
			s.inFlight[s.nextRef] = true
			return s.nextRef
		}
	}
}

func (s *Session) releaseRef(ref uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, ref)
}

// allocateSeq returns the next UserData sequence byte, rotating through
// 1-255 (0 is reserved, matching allocateRef's own skip-zero rotation).
func (s *Session) allocateSeq() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	if s.nextSeq == 0 {
		s.nextSeq = 1
	}
	return s.nextSeq
}

// sendReceive wraps an S7 PDU in COTP/TPKT framing, sends it, and
// returns the unwrapped S7 response PDU bytes. A non-ready Session fails
// fast with ErrNotConnected (§4.6/§7). expectedRef is the PDU reference
// allocated for this request; a response carrying a different reference,
// or a message type that is not Ack, AckData or UserData, means the
// stream has desynced and is fatal (§4.5), faulting the session and
// returning ErrProtocolDesync.
func (s *Session) sendReceive(s7PDU []byte, expectedRef uint16) ([]byte, error) {
	s.mu.Lock()
	if s.state != StateReady || s.conn == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := s.conn
	timeout := s.timeout
	s.mu.Unlock()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		s.fault()
		return nil, &TransportError{Err: err}
	}

	frame := wrapCOTPData(s7PDU)
	s.sink.TX(frame)
	if err := sendTPKT(conn, frame); err != nil {
		s.fault()
		return nil, err
	}

	resp, err := recvTPKT(conn)
	if err != nil {
		s.fault()
		return nil, err
	}
	s.sink.RX(resp)

	s7Resp, err := unwrapCOTPData(resp)
	if err != nil {
		s.fault()
		return nil, err
	}

	h, err := parseS7Header(s7Resp)
	if err != nil {
		s.fault()
		return nil, err
	}
	if h.PDURef != expectedRef ||
		(h.MsgType != s7MsgAck && h.MsgType != s7MsgAckData && h.MsgType != s7MsgUserData) {
		s.fault()
		return nil, ErrProtocolDesync
	}
	return s7Resp, nil
}

// fault moves the Session to StateFaulted and closes the underlying
// socket so a faulted session can't leak the descriptor before the
// caller invokes Close (§4.6).
func (s *Session) fault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFaulted
	if s.conn != nil {
		s.sink.Disconnect(s.address, "transport error")
		s.conn.Close()
		s.conn = nil
	}
}
