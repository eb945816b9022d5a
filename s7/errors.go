package s7

import (
	"errors"
	"fmt"
)

// S7 error classes (error-class byte of an Ack/Ack-Data header, §4.5/§7).
const (
	errClassNoError     = 0x00
	errClassAppRelation = 0x81
	errClassObjDef      = 0x82
	errClassResource    = 0x83
	errClassService     = 0x84
	errClassNoResource  = 0x85 // no resource available, often PDU size exceeded
	errClassAccess      = 0x87
	errClassSyntaxID    = 0xD2 // documented Siemens class for syntax errors
)

// S7 ReadVar/WriteVar per-item return codes (§4.5/§7).
const (
	dataItemSuccess          = 0xFF
	dataItemHardwareFault    = 0x01
	dataItemAccessDenied     = 0x03
	dataItemAddressError     = 0x05
	dataItemTypeError        = 0x06
	dataItemTypeInconsistent = 0x07 // data type/size mismatch
	dataItemNotExist         = 0x0A
)

// Sentinel error kinds (§7). Transport errors, desyncs, and protocol
// errors in a response's framing or header fault the session; any
// failure during Open (including NegotiationError) closes the connection
// and returns no Session.
// Protocol errors found while decoding a response's parameter or data
// section are returned without faulting the session. Address/Range
// errors do not fault it.
var (
	// ErrShortBuffer is returned by the byte codec when a target slice is
	// too small for the requested field (§4.1).
	ErrShortBuffer = errors.New("s7: short buffer")
	// ErrInvalidBCD is returned when a BCD nibble is out of the 0-9 range.
	ErrInvalidBCD = errors.New("s7: invalid BCD digit")
	// ErrNotConnected is returned when an operation is invoked before the
	// session has completed its handshake (§4.6).
	ErrNotConnected = errors.New("s7: not connected")
	// ErrProtocolDesync is returned when a response's PDU reference or
	// ROSCTR does not match what was expected; it is always fatal (§4.5).
	ErrProtocolDesync = errors.New("s7: protocol desynchronized")
)

// TransportError wraps a failure in the underlying TCP connection: dial
// failure, read/write error, or EOF (§7).
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return fmt.Sprintf("s7: transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError signals malformed TPKT/COTP/S7 framing: a bad protocol
// ID, an unexpected PDU type, or a truncated field (§7).
type ProtocolError struct{ Msg string }

func (e *ProtocolError) Error() string { return "s7: protocol error: " + e.Msg }

// NegotiationError signals that SetupCommunication was rejected or
// returned a PDU size below the minimum usable size (§4.6/§7).
type NegotiationError struct{ Msg string }

func (e *NegotiationError) Error() string { return "s7: negotiation error: " + e.Msg }

// AddressError signals that an address string could not be parsed, or
// that an offset/bit/value was out of its legal range (§4.3/§7).
type AddressError struct{ Msg string }

func (e *AddressError) Error() string { return "s7: address error: " + e.Msg }

// RangeError signals a value outside the legal range for its datatype,
// e.g. an S5TIME duration outside [10ms, 9_990_000ms] (§4.2/§7).
type RangeError struct{ Msg string }

func (e *RangeError) Error() string { return "s7: range error: " + e.Msg }

// S7Error represents a whole-PDU Ack error: a non-zero error-class/code
// pair returned by the PLC (§4.5/§7). It is surfaced directly for
// whole-PDU operations. Inside batched ReadArea/WriteArea results it is
// not converted to an ItemError: the S7Error itself becomes the error of
// every item in the affected chunk, and the call's own error stays nil.
type S7Error struct {
	Class byte
	Code  byte
}

func (e S7Error) Error() string { return s7ErrorMessage(e.Class, e.Code) }

// knownS7Errors holds the handful of documented Siemens error-class/code
// pairs with a specific human-readable meaning, e.g. 0xD2/0x01 "Wrong
// syntax-ID" (§7). Pairs not present here fall back to a generic
// class-level message.
var knownS7Errors = map[[2]byte]string{
	{errClassSyntaxID, 0x01}: "wrong syntax-ID",
	{errClassSyntaxID, 0x02}: "wrong transport size in item data",
	{errClassSyntaxID, 0x04}: "requested data size does not fit the item",
	{errClassAccess, 0x04}:   "address out of range",
	{errClassAccess, 0x05}:   "write data size mismatch",
}

func s7ErrorMessage(class, code byte) string {
	if msg, ok := knownS7Errors[[2]byte{class, code}]; ok {
		return fmt.Sprintf("S7 error 0x%02X/0x%02X: %s", class, code, msg)
	}
	switch class {
	case errClassNoError:
		return "no error"
	case errClassAppRelation:
		return fmt.Sprintf("application relationship error (code %d)", code)
	case errClassObjDef:
		return fmt.Sprintf("object definition error (code %d)", code)
	case errClassResource:
		return fmt.Sprintf("resource error (code %d)", code)
	case errClassService:
		return fmt.Sprintf("service error (code %d)", code)
	case errClassNoResource:
		return fmt.Sprintf("no resource available - request may exceed PDU size (code %d)", code)
	case errClassAccess:
		return fmt.Sprintf("access error (code %d)", code)
	case errClassSyntaxID:
		return fmt.Sprintf("syntax error (code %d)", code)
	default:
		return fmt.Sprintf("S7 error class 0x%02X code %d", class, code)
	}
}

// ItemError represents a per-item ReadVar/WriteVar return code (§4.5/§7).
// An ItemError never aborts a batch — it only populates the offending
// item's ReadResult.Error (or its slot in WriteArea's error slice).
type ItemError struct{ Code byte }

func (e ItemError) Error() string { return dataItemError(e.Code) }

func dataItemError(code byte) string {
	switch code {
	case dataItemSuccess:
		return ""
	case dataItemHardwareFault:
		return "hardware fault"
	case dataItemAccessDenied:
		return "access denied"
	case dataItemAddressError:
		return "invalid address"
	case dataItemTypeError:
		return "data type not supported"
	case dataItemTypeInconsistent:
		return "data type/size mismatch"
	case dataItemNotExist:
		return "object does not exist"
	default:
		return fmt.Sprintf("data item error 0x%02X", code)
	}
}
