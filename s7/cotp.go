package s7

import "fmt"

// COTP (ISO 8073 class 0) connection establishment and data transfer
// framing, grounded on the teacher's transport.go cotpConnect/sendReceive
// (§4.4).
const (
	cotpCR = 0xE0 // Connection Request
	cotpCC = 0xD0 // Connection Confirm
	cotpDT = 0xF0 // Data Transfer, EOT bit set in the header's last octet

	cotpParamSrcTSAP  = 0xC1
	cotpParamDstTSAP  = 0xC2
	cotpParamTPDUSize = 0xC0

	cotpTPDUSize1024 = 0x0A // 2^10 = 1024, the size class COTP negotiates
)

// Connection-type tags carried in the dst-TSAP's high byte (§4.4/§6):
// PG (programming device), OP (operator panel), and S7Basic each grant a
// different communication route on the CPU, independent of rack/slot.
const (
	ConnTypePG      = 0x01
	ConnTypeOP      = 0x02
	ConnTypeS7Basic = 0x03
)

// cotpDTHeader is the fixed 3-byte header prefixed to every COTP Data
// Transfer PDU: length (2, excluding itself), PDU type, EOT+TPDU-number.
var cotpDTHeader = []byte{0x02, cotpDT, 0x80}

// buildCOTPConnectRequest builds a COTP CR PDU addressed to the PLC's
// rack/slot, encoded into the destination TSAP's low byte
// (rack<<5 | slot) with connType (PG/OP/S7Basic) carried in the high
// byte, matching the teacher's cotpConnect generalized per §4.4/§6.
func buildCOTPConnectRequest(rack, slot int, connType byte) []byte {
	srcTSAP := []byte{0x01, 0x00}
	dstTSAP := []byte{connType, byte(rack<<5 | slot)}

	cr := []byte{
		0x00,       // length, filled in below
		cotpCR,     // PDU type
		0x00, 0x00, // destination reference
		0x00, 0x01, // source reference
		0x00, // class 0
	}
	cr = append(cr, cotpParamSrcTSAP, byte(len(srcTSAP)))
	cr = append(cr, srcTSAP...)
	cr = append(cr, cotpParamDstTSAP, byte(len(dstTSAP)))
	cr = append(cr, dstTSAP...)
	cr = append(cr, cotpParamTPDUSize, 0x01, cotpTPDUSize1024)

	cr[0] = byte(len(cr) - 1)
	return cr
}

// parseCOTPConnectConfirm validates a COTP CC response.
func parseCOTPConnectConfirm(cc []byte) error {
	if len(cc) < 2 {
		return &ProtocolError{Msg: "COTP CC too short"}
	}
	if cc[1] != cotpCC {
		return &ProtocolError{Msg: fmt.Sprintf("expected COTP CC (0x%02X), got 0x%02X", cotpCC, cc[1])}
	}
	return nil
}

// wrapCOTPData wraps an S7 PDU in a COTP Data Transfer header.
func wrapCOTPData(s7PDU []byte) []byte {
	out := make([]byte, 0, len(cotpDTHeader)+len(s7PDU))
	out = append(out, cotpDTHeader...)
	out = append(out, s7PDU...)
	return out
}

// unwrapCOTPData strips a COTP Data Transfer header and returns the
// enclosed S7 PDU bytes.
func unwrapCOTPData(frame []byte) ([]byte, error) {
	if len(frame) < 3 {
		return nil, &ProtocolError{Msg: "COTP DT frame too short"}
	}
	if frame[1] != cotpDT {
		return nil, &ProtocolError{Msg: fmt.Sprintf("expected COTP DT (0x%02X), got 0x%02X", cotpDT, frame[1])}
	}
	return frame[3:], nil
}
