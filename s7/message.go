package s7

import (
	"encoding/binary"
	"fmt"
)

// S7 PDU header constants and ReadVar/WriteVar/UserData framing, grounded
// on the teacher's protocol.go buildSetupCommRequest/buildReadRequest/
// buildWriteRequest/parseReadResponse/addressToS7Any, generalized from
// single-item to ordered multi-item batches (§4.5).
const (
	s7ProtocolID = 0x32

	s7MsgJob      = 0x01
	s7MsgAck      = 0x02
	s7MsgAckData  = 0x03
	s7MsgUserData = 0x07

	s7FuncSetupComm = 0xF0
	s7FuncRead      = 0x04
	s7FuncWrite     = 0x05
	s7FuncPlcStop   = 0x29
	s7FuncPlcStart  = 0x28

	s7AnySpecType = 0x12
	s7AnyLen      = 0x0A
	s7AnySyntaxID = 0x10

	// ReadVar/WriteVar transport-size tags (§4.5). These coincide with
	// DataType's own 1-8 values, but Item.wireSpec only ever uses the
	// BIT, BYTE, WORD and DWORD tags: every datatype is transported as its
	// underlying storage (INT, DATE and S5TIME as WORD; DINT, REAL, TIME
	// and TIME_OF_DAY as DWORD; CHAR, STRING and record types as BYTE).
	tsBIT   = 0x01
	tsBYTE  = 0x02
	tsCHAR  = 0x03
	tsWORD  = 0x04
	tsINT   = 0x05
	tsDWORD = 0x06
	tsDINT  = 0x07
	tsREAL  = 0x08

	// tsLenOctets marks a ReadVar response item whose length field is
	// already in bytes rather than bits (e.g. an octet-string read),
	// matching the teacher's branch in parseReadResponse.
	tsLenOctets = 0x09
)

// s7Header is the common prefix of every S7 PDU: protocol ID, message
// type, a 2-byte PDU reference the caller correlates request/response
// with, and the parameter/data section lengths (§4.5). AckData/UserData
// responses extend this with a 2-byte error class/code pair.
type s7Header struct {
	MsgType   byte
	PDURef    uint16
	ParamLen  uint16
	DataLen   uint16
	ErrClass  byte // valid only when MsgType is AckData or UserData
	ErrCode   byte
	headerLen int // 10 for Job/Ack, 12 for AckData/UserData
}

func buildJobHeader(pduRef uint16, paramLen, dataLen int) []byte {
	return []byte{
		s7ProtocolID, s7MsgJob,
		0x00, 0x00,
		byte(pduRef >> 8), byte(pduRef),
		byte(paramLen >> 8), byte(paramLen),
		byte(dataLen >> 8), byte(dataLen),
	}
}

// parseS7Header parses a response's common header, detecting whether it
// carries the extra error-class/code pair (AckData, UserData) or not
// (Ack with no data).
func parseS7Header(data []byte) (s7Header, error) {
	if len(data) < 10 {
		return s7Header{}, ErrShortBuffer
	}
	if data[0] != s7ProtocolID {
		return s7Header{}, &ProtocolError{Msg: fmt.Sprintf("invalid protocol ID: 0x%02X", data[0])}
	}
	h := s7Header{
		MsgType:  data[1],
		PDURef:   binary.BigEndian.Uint16(data[4:6]),
		ParamLen: binary.BigEndian.Uint16(data[6:8]),
		DataLen:  binary.BigEndian.Uint16(data[8:10]),
	}
	switch h.MsgType {
	case s7MsgAckData, s7MsgUserData:
		if len(data) < 12 {
			return s7Header{}, ErrShortBuffer
		}
		h.ErrClass = data[10]
		h.ErrCode = data[11]
		h.headerLen = 12
	default:
		h.headerLen = 10
	}
	return h, nil
}

// Item is one element of a ReadArea/WriteArea batch: an address, its
// datatype, and the number of consecutive elements (1 for a scalar).
// ByteLen overrides the wire byte count for variable-length payloads
// (STRING reads, where the caller decides how many bytes to fetch).
type Item struct {
	Addr    Address
	Type    DataType
	Count   int
	ByteLen int
}

// wireSpec returns the S7ANY transport-size tag and element count for
// the item (§4.5: the "count" field is in transport-size units, not
// always bytes).
func (it Item) wireSpec() (tag byte, count int) {
	if it.ByteLen > 0 {
		return tsBYTE, it.ByteLen
	}
	n := it.Count
	if n < 1 {
		n = 1
	}
	if it.Addr.Bit >= 0 {
		return tsBIT, 1
	}
	switch it.Type {
	case Bool:
		return tsBIT, 1
	case Byte, Char:
		return tsBYTE, n
	case Word, Int, Date, S5Time, Counter, Timer:
		return tsWORD, n
	case DWord, DInt, Real, Time, TimeOfDay:
		return tsDWORD, n
	case DateTime:
		return tsBYTE, n * 8
	case IECCounterType:
		return tsBYTE, n * 8
	case IECTimerType:
		return tsBYTE, n * 19
	default:
		return tsBYTE, n
	}
}

// byteLen returns the number of payload bytes this item's response data
// will occupy, given its wire spec.
func (it Item) byteLen() int {
	tag, count := it.wireSpec()
	switch tag {
	case tsBIT:
		return 1
	case tsWORD:
		return count * 2
	case tsDWORD:
		return count * 4
	}
	return count
}

// s7AnyBytes encodes the item's address as a 12-byte S7ANY item
// descriptor (§4.3/§4.5), grounded on addressToS7Any.
func (it Item) s7AnyBytes() []byte {
	tag, count := it.wireSpec()

	dbNumber := 0
	if it.Addr.Area == AreaDB || it.Addr.Area == AreaDI {
		dbNumber = it.Addr.Number
	}

	bitAddr := it.Addr.Offset * 8
	if it.Addr.Bit >= 0 {
		bitAddr += it.Addr.Bit
	}

	return []byte{
		s7AnySpecType, s7AnyLen, s7AnySyntaxID,
		tag,
		byte(count >> 8), byte(count),
		byte(dbNumber >> 8), byte(dbNumber),
		it.Addr.Area.Code(),
		byte(bitAddr >> 16), byte(bitAddr >> 8), byte(bitAddr),
	}
}

// buildSetupCommRequest builds the SetupCommunication Job PDU proposing
// pduSize as the maximum PDU size (§4.6).
func buildSetupCommRequest(pduRef uint16, pduSize uint16) []byte {
	params := []byte{
		s7FuncSetupComm,
		0x00,
		0x00, 0x01, // max AMQ calling
		0x00, 0x01, // max AMQ called
		byte(pduSize >> 8), byte(pduSize),
	}
	header := buildJobHeader(pduRef, len(params), 0)
	return append(header, params...)
}

// parseSetupCommResponse parses the SetupCommunication AckData PDU and
// returns the negotiated PDU size (§4.6). A non-zero error-class/code
// (the PLC rejected the setup) and a negotiated size below the usable
// minimum both surface as NegotiationError.
func parseSetupCommResponse(data []byte) (uint16, error) {
	h, err := parseS7Header(data)
	if err != nil {
		return 0, err
	}
	if h.ErrClass != 0 || h.ErrCode != 0 {
		return 0, &NegotiationError{Msg: fmt.Sprintf("setup communication rejected: %v", S7Error{Class: h.ErrClass, Code: h.ErrCode})}
	}
	params := data[h.headerLen:]
	if len(params) < 8 {
		return 0, &ProtocolError{Msg: "setup communication response too short"}
	}
	if params[0] != s7FuncSetupComm {
		return 0, &ProtocolError{Msg: fmt.Sprintf("unexpected function in setup response: 0x%02X", params[0])}
	}
	pduSize := binary.BigEndian.Uint16(params[6:8])
	if pduSize < minUsablePDUSize {
		return 0, &NegotiationError{Msg: fmt.Sprintf("negotiated PDU size %d below minimum %d", pduSize, minUsablePDUSize)}
	}
	return pduSize, nil
}

// buildReadVarRequest builds a ReadVar Job PDU for one chunk's items,
// preserving their order (§4.5).
func buildReadVarRequest(pduRef uint16, items []Item) []byte {
	params := make([]byte, 0, 2+len(items)*12)
	params = append(params, s7FuncRead, byte(len(items)))
	for _, it := range items {
		params = append(params, it.s7AnyBytes()...)
	}
	header := buildJobHeader(pduRef, len(params), 0)
	return append(header, params...)
}

// parseReadVarResponse parses a ReadVar AckData PDU into one result per
// requested item, in request order. A whole-PDU error (non-zero
// error-class/code, or an ACK with no data) fails every item with the
// same error; a per-item failure only fails that item (§4.5/§7).
func parseReadVarResponse(data []byte, items []Item) ([][]byte, []error) {
	results := make([][]byte, len(items))
	errs := make([]error, len(items))

	h, err := parseS7Header(data)
	if err != nil {
		fillAll(errs, err)
		return results, errs
	}
	if h.MsgType == s7MsgAck {
		fillAll(errs, &ProtocolError{Msg: "PLC returned ACK with no data"})
		return results, errs
	}
	if h.ErrClass != 0 || h.ErrCode != 0 {
		fillAll(errs, S7Error{Class: h.ErrClass, Code: h.ErrCode})
		return results, errs
	}

	dataStart := h.headerLen + int(h.ParamLen)
	if dataStart > len(data) || int(h.DataLen) > len(data)-dataStart {
		fillAll(errs, &ProtocolError{Msg: "invalid ReadVar response lengths"})
		return results, errs
	}

	pos := dataStart
	for i, it := range items {
		if pos >= len(data) {
			fillRemaining(errs, i, &ProtocolError{Msg: "unexpected end of ReadVar response data"})
			break
		}
		returnCode := data[pos]
		if returnCode != dataItemSuccess {
			errs[i] = ItemError{Code: returnCode}
			pos++
			continue
		}
		if pos+4 > len(data) {
			fillRemaining(errs, i, &ProtocolError{Msg: "truncated ReadVar item header"})
			break
		}
		tag := data[pos+1]
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		var n int
		switch {
		case it.Addr.Bit >= 0 || it.Type == Bool:
			n = 1
		case tag == tsLenOctets:
			n = length
		default:
			n = (length + 7) / 8
		}
		pos += 4
		if pos+n > len(data) {
			fillRemaining(errs, i, &ProtocolError{Msg: "truncated ReadVar item data"})
			break
		}
		results[i] = append([]byte(nil), data[pos:pos+n]...)
		pos += n
		if i < len(items)-1 && n%2 == 1 {
			pos++ // items pad to an even boundary except the last
		}
	}
	return results, errs
}

// buildWriteVarRequest builds a WriteVar Job PDU writing values (one per
// item, in order) to items (§4.5).
func buildWriteVarRequest(pduRef uint16, items []Item, values [][]byte) []byte {
	params := make([]byte, 0, 2+len(items)*12)
	params = append(params, s7FuncWrite, byte(len(items)))
	for _, it := range items {
		params = append(params, it.s7AnyBytes()...)
	}

	var payload []byte
	for i, it := range items {
		v := values[i]
		tag, _ := it.wireSpec()
		bitLen := len(v) * 8
		if tag == tsBIT {
			bitLen = 1
		}
		payload = append(payload, 0x00, tag, byte(bitLen>>8), byte(bitLen))
		payload = append(payload, v...)
		if i < len(items)-1 && len(v)%2 == 1 {
			payload = append(payload, 0x00)
		}
	}

	header := buildJobHeader(pduRef, len(params), len(payload))
	out := append(header, params...)
	return append(out, payload...)
}

// parseWriteVarResponse parses a WriteVar AckData PDU into one per-item
// error (nil on success), in request order (§4.5/§7). Per-item return
// codes are single bytes packed contiguously, with no padding.
func parseWriteVarResponse(data []byte, itemCount int) []error {
	errs := make([]error, itemCount)

	h, err := parseS7Header(data)
	if err != nil {
		fillAll(errs, err)
		return errs
	}
	if h.MsgType == s7MsgAck {
		fillAll(errs, &ProtocolError{Msg: "PLC returned ACK with no data"})
		return errs
	}
	if h.ErrClass != 0 || h.ErrCode != 0 {
		fillAll(errs, S7Error{Class: h.ErrClass, Code: h.ErrCode})
		return errs
	}

	dataStart := h.headerLen + int(h.ParamLen)
	if dataStart+itemCount > len(data) {
		fillAll(errs, &ProtocolError{Msg: "truncated WriteVar response data"})
		return errs
	}
	for i := 0; i < itemCount; i++ {
		code := data[dataStart+i]
		if code != dataItemSuccess {
			errs[i] = ItemError{Code: code}
		}
	}
	return errs
}

func fillAll(errs []error, err error) {
	for i := range errs {
		errs[i] = err
	}
}

func fillRemaining(errs []error, from int, err error) {
	for i := from; i < len(errs); i++ {
		errs[i] = err
	}
}

// UserData framing (§4.5): time (function group 0x7) and CPU/SZL
// (function group 0x4) requests. The teacher carries no UserData
// support; this layer is new machinery grounded on §4.5's description
// of the parameter block (3-byte head, 1-byte length, method byte,
// function-group byte, sub-function byte, sequence byte — "plus for
// responses data-unit-ref and more-follows flag") and on real S7
// userdata traffic's well-known data-section shape: a return-code/
// transport-size/length-prefixed envelope, mirroring ReadVar/WriteVar's
// own data-item framing. The request parameter is the 8-byte form (the
// quartet's length-byte is 4); the response parameter extends it with
// two more bytes (data-unit-reference, more-follows), so its
// length-byte is 6. Subfunction codes for the time group are not given
// by name in the source material and are a documented choice (DESIGN.md):
// 0x01 read clock, 0x02 set clock, matching well-known S7 UserData
// traffic for these operations.
const (
	userDataHead0 = 0x00
	userDataHead1 = 0x01
	userDataHead2 = 0x12

	userDataMethodRequest  = 0x11
	userDataMethodResponse = 0x12

	userDataReqParamLen  = 0x04
	userDataRespParamLen = 0x06

	userDataFuncGroupCPU  = 0x04 // CPU functions, carries SZL read
	userDataFuncGroupTime = 0x07 // clock read/set

	userDataSubFuncReadSZL    = 0x01
	userDataSubFuncReadClock  = 0x01
	userDataSubFuncSetClock   = 0x02
	// userDataSubFuncBlockInfo has no documented value in the source
	// material; read_block_info is built as a CPU-function-group
	// UserData request the same way read_szl is, with this subfunction
	// value chosen to match well-known S7 block-info traffic.
	userDataSubFuncBlockInfo = 0x03

	userDataReturnSuccess  = 0xFF
	userDataTransportOctet = 0x09
)

// buildUserDataRequest assembles the common request parameter (8 bytes)
// followed by a return-code/transport-size/length-prefixed data section
// wrapping payload.
func buildUserDataRequest(pduRef uint16, seq byte, funcGroup, subFunc byte, payload []byte) []byte {
	params := []byte{
		userDataHead0, userDataHead1, userDataHead2,
		userDataReqParamLen,
		userDataMethodRequest,
		funcGroup,
		subFunc,
		seq,
	}
	data := []byte{userDataReturnSuccess, userDataTransportOctet, byte(len(payload) >> 8), byte(len(payload))}
	data = append(data, payload...)

	header := buildJobHeader(pduRef, len(params), len(data))
	out := append(header, params...)
	return append(out, data...)
}

// userDataResponse is a decoded UserData AckData PDU's envelope: the
// function-group/sub-function it answers, the more-follows/data-unit
// bookkeeping fields, and the data section's payload (after the
// return-code/transport-size/length header is stripped).
type userDataResponse struct {
	FuncGroup  byte
	SubFunc    byte
	MoreFollow bool
	DataUnit   byte
	Payload    []byte
}

// parseUserDataResponse parses the common UserData response envelope
// shared by time and CPU/SZL replies (§4.5).
func parseUserDataResponse(data []byte) (userDataResponse, error) {
	h, err := parseS7Header(data)
	if err != nil {
		return userDataResponse{}, err
	}
	if h.MsgType != s7MsgUserData {
		return userDataResponse{}, &ProtocolError{Msg: fmt.Sprintf("expected UserData response, got message type 0x%02X", h.MsgType)}
	}
	if h.ErrClass != 0 || h.ErrCode != 0 {
		return userDataResponse{}, S7Error{Class: h.ErrClass, Code: h.ErrCode}
	}

	params := data[h.headerLen:]
	if len(params) < 10 {
		return userDataResponse{}, &ProtocolError{Msg: "UserData response parameter section too short"}
	}
	resp := userDataResponse{
		FuncGroup:  params[5],
		SubFunc:    params[6],
		DataUnit:   params[8],
		MoreFollow: params[9] != 0,
	}

	dataStart := h.headerLen + int(h.ParamLen)
	if dataStart > len(data) || int(h.DataLen) > len(data)-dataStart {
		return userDataResponse{}, &ProtocolError{Msg: "invalid UserData response lengths"}
	}
	section := data[dataStart : dataStart+int(h.DataLen)]
	if len(section) < 4 {
		return userDataResponse{}, &ProtocolError{Msg: "UserData data section too short"}
	}
	if section[0] != userDataReturnSuccess {
		return userDataResponse{}, ItemError{Code: section[0]}
	}
	length := int(binary.BigEndian.Uint16(section[2:4]))
	if 4+length > len(section) {
		return userDataResponse{}, &ProtocolError{Msg: "UserData data section truncated"}
	}
	resp.Payload = append([]byte(nil), section[4:4+length]...)
	return resp, nil
}

// buildReadSZLRequest builds a UserData PDU requesting the SZL partial
// list identified by (szlID, szlIndex) (§4.7 read_szl).
func buildReadSZLRequest(pduRef uint16, seq byte, szlID uint16, szlIndex uint16) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], szlID)
	binary.BigEndian.PutUint16(payload[2:4], szlIndex)
	return buildUserDataRequest(pduRef, seq, userDataFuncGroupCPU, userDataSubFuncReadSZL, payload)
}

// szlResponse is a decoded UserData/SZL response (§4.7).
type szlResponse struct {
	SZLID      uint16
	SZLIndex   uint16
	MoreFollow bool
	DataUnit   byte
	Records    []byte // concatenated fixed-stride SZL records
}

// parseReadSZLResponse parses a UserData/SZL AckData-with-data PDU.
func parseReadSZLResponse(data []byte) (szlResponse, error) {
	env, err := parseUserDataResponse(data)
	if err != nil {
		return szlResponse{}, err
	}
	if len(env.Payload) < 4 {
		return szlResponse{}, &ProtocolError{Msg: "SZL payload missing ID/index header"}
	}
	return szlResponse{
		SZLID:      binary.BigEndian.Uint16(env.Payload[0:2]),
		SZLIndex:   binary.BigEndian.Uint16(env.Payload[2:4]),
		MoreFollow: env.MoreFollow,
		DataUnit:   env.DataUnit,
		Records:    append([]byte(nil), env.Payload[4:]...),
	}, nil
}

// buildReadClockRequest builds a UserData PDU requesting the CPU's
// current time-of-day (§4.7 read_plc_time/sync_plc_time).
func buildReadClockRequest(pduRef uint16, seq byte) []byte {
	return buildUserDataRequest(pduRef, seq, userDataFuncGroupTime, userDataSubFuncReadClock, nil)
}

// parseReadClockResponse parses a read-clock UserData response into its
// raw 8-byte DATETIME payload, for value.go's DecodeDateTime.
func parseReadClockResponse(data []byte) ([]byte, error) {
	env, err := parseUserDataResponse(data)
	if err != nil {
		return nil, err
	}
	if len(env.Payload) < 8 {
		return nil, &ProtocolError{Msg: "read-clock response payload too short"}
	}
	return env.Payload[len(env.Payload)-8:], nil
}

// buildSetClockRequest builds a UserData PDU setting the CPU's clock to
// ts, encoded as an 8-byte DATETIME payload (§4.7 set_plc_time).
func buildSetClockRequest(pduRef uint16, seq byte, ts []byte) []byte {
	return buildUserDataRequest(pduRef, seq, userDataFuncGroupTime, userDataSubFuncSetClock, ts)
}

// parseSetClockResponse validates a set-clock UserData AckData PDU,
// returning any protocol or item-level error.
func parseSetClockResponse(data []byte) error {
	_, err := parseUserDataResponse(data)
	return err
}

// buildReadBlockInfoRequest builds a UserData PDU requesting the
// metadata record for one program block (§4.7 read_block_info). The
// wire payload (1-byte block-type code, 2-byte block number) has no
// documented byte layout in the source material; it is built the same
// way as read_szl's payload, consistent with read_block_info being
// described as sharing the CPU function group.
func buildReadBlockInfoRequest(pduRef uint16, seq byte, blockType byte, number uint16) []byte {
	payload := []byte{blockType, byte(number >> 8), byte(number)}
	return buildUserDataRequest(pduRef, seq, userDataFuncGroupCPU, userDataSubFuncBlockInfo, payload)
}

// parseReadBlockInfoResponse returns a read_block_info response's raw
// payload for szl.go's decodeBlockInfo to interpret.
func parseReadBlockInfoResponse(data []byte) ([]byte, error) {
	env, err := parseUserDataResponse(data)
	if err != nil {
		return nil, err
	}
	return env.Payload, nil
}

// buildPIServiceRequest builds a Job PDU invoking a Program Invocation
// service (PLC stop/start, §4.7 stop/start_plc_cold/start_plc_hot). The
// exact parameter bytes for these services are not in the source
// material; the shape used here (function code, a reserved block, an
// ASCII service-name length and string) matches the well-known general
// form of S7 PI-service requests.
func buildPIServiceRequest(pduRef uint16, funcCode byte, service string) []byte {
	params := []byte{funcCode, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, byte(len(service))}
	params = append(params, []byte(service)...)
	header := buildJobHeader(pduRef, len(params), 0)
	return append(header, params...)
}

// parsePIServiceResponse validates a PI-service AckData/Ack PDU. A
// non-zero error-class/code surfaces as S7Error; anything else is
// success.
func parsePIServiceResponse(data []byte) error {
	h, err := parseS7Header(data)
	if err != nil {
		return err
	}
	if h.ErrClass != 0 || h.ErrCode != 0 {
		return S7Error{Class: h.ErrClass, Code: h.ErrCode}
	}
	return nil
}
