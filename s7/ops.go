package s7

import (
	"time"
)

// Operation façade (§4.7/§4.8): the named public calls a caller drives
// a Session through, composing the message/chunk layers below. Each
// read/write call allocates its own PDU reference and (for UserData
// calls) sequence number, then hands the framed PDU to
// Session.sendReceive — grounded on the teacher's client.go Read/Write,
// generalized from its single gos7.Client.AGReadDB call to this
// module's own wire layer.

// ReadResult is one element of a ReadArea batch's result, carrying its
// own independent error so a failure on one item doesn't invalidate the
// rest (§4.5/§7).
type ReadResult struct {
	Item  Item
	Data  []byte
	Error error
}

// ReadArea reads a batch of items in one or more chunked ReadVar
// requests, preserving item order (§4.5).
func (s *Session) ReadArea(items []Item) ([]ReadResult, error) {
	results := make([]ReadResult, len(items))
	offset := 0
	for _, chunk := range chunkReadItems(items, s.PDUSize()) {
		ref := s.allocateRef()
		req := buildReadVarRequest(ref, chunk)
		resp, err := s.sendReceive(req, ref)
		s.releaseRef(ref)
		if err != nil {
			return nil, err
		}
		data, errs := parseReadVarResponse(resp, chunk)
		for i, it := range chunk {
			results[offset+i] = ReadResult{Item: it, Data: data[i], Error: errs[i]}
		}
		offset += len(chunk)
	}
	return results, nil
}

// WriteArea writes values (one per item) in one or more chunked
// WriteVar requests, returning one error per item in request order
// (§4.5).
func (s *Session) WriteArea(items []Item, values [][]byte) ([]error, error) {
	errs := make([]error, len(items))
	offset := 0
	for _, chunk := range chunkWriteItems(items, values, s.PDUSize()) {
		ref := s.allocateRef()
		req := buildWriteVarRequest(ref, chunk.Items, chunk.Values)
		resp, err := s.sendReceive(req, ref)
		s.releaseRef(ref)
		if err != nil {
			return nil, err
		}
		chunkErrs := parseWriteVarResponse(resp, len(chunk.Items))
		copy(errs[offset:], chunkErrs)
		offset += len(chunk.Items)
	}
	return errs, nil
}

// readSZL issues one read_szl UserData request/response round trip.
func (s *Session) readSZL(id, index uint16) (szlResponse, error) {
	ref := s.allocateRef()
	seq := s.allocateSeq()
	req := buildReadSZLRequest(ref, seq, id, index)
	resp, err := s.sendReceive(req, ref)
	s.releaseRef(ref)
	if err != nil {
		return szlResponse{}, err
	}
	return parseReadSZLResponse(resp)
}

// ReadSZL reads the raw records of one SZL partial list (§4.7
// read_szl).
func (s *Session) ReadSZL(id, index uint16) ([]byte, error) {
	resp, err := s.readSZL(id, index)
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// ReadCPUStatus reads and decodes SZL 0x0424 (§4.7 read_cpu_status).
func (s *Session) ReadCPUStatus() (CPUStatus, error) {
	resp, err := s.readSZL(szlIDCPUStatus, szlIndexNone)
	if err != nil {
		return CPUStatus{}, err
	}
	return decodeCPUStatus(resp.Records)
}

// ReadCatalogCode reads and decodes SZL 0x0011 (§4.7 read_catalog_code).
func (s *Session) ReadCatalogCode() (CatalogCode, error) {
	resp, err := s.readSZL(szlIDCatalogCode, szlIndexNone)
	if err != nil {
		return CatalogCode{}, err
	}
	return decodeCatalogCode(resp.Records)
}

// ReadCPUInfo reads and decodes SZL 0x001C (§4.7 read_cpu_info).
func (s *Session) ReadCPUInfo() (CPUInfo, error) {
	resp, err := s.readSZL(szlIDCPUInfo, szlIndexNone)
	if err != nil {
		return CPUInfo{}, err
	}
	return decodeCPUInfo(resp.Records)
}

// ReadCommProc reads and decodes SZL 0x0131/0x0001 (§4.7
// read_comm_proc).
func (s *Session) ReadCommProc() ([]CommProc, error) {
	resp, err := s.readSZL(szlIDCommProc, szlIndexCommProc)
	if err != nil {
		return nil, err
	}
	return decodeCommProc(resp.Records)
}

// ReadProtection reads and decodes SZL 0x0232/0x0004 (§4.7
// read_protection).
func (s *Session) ReadProtection() ([]Protection, error) {
	resp, err := s.readSZL(szlIDProtection, szlIndexProtection)
	if err != nil {
		return nil, err
	}
	return decodeProtection(resp.Records)
}

// ReadCPUDiagnostics reads and decodes SZL 0x00A0 (§4.7
// read_cpu_diagnostics).
func (s *Session) ReadCPUDiagnostics() ([]Diagnostic, error) {
	resp, err := s.readSZL(szlIDDiagnostics, szlIndexNone)
	if err != nil {
		return nil, err
	}
	return decodeDiagnostics(resp.Records)
}

// ReadCPULeds reads and decodes SZL 0x0074 (§4.7 read_cpu_leds).
func (s *Session) ReadCPULeds() ([]CPULED, error) {
	resp, err := s.readSZL(szlIDCPULeds, szlIndexNone)
	if err != nil {
		return nil, err
	}
	return decodeCPULeds(resp.Records)
}

// ReadBlockInfo reads and decodes a program block's metadata record
// (§4.7 read_block_info).
func (s *Session) ReadBlockInfo(blockType byte, number uint16) (BlockInfo, error) {
	ref := s.allocateRef()
	seq := s.allocateSeq()
	req := buildReadBlockInfoRequest(ref, seq, blockType, number)
	resp, err := s.sendReceive(req, ref)
	s.releaseRef(ref)
	if err != nil {
		return BlockInfo{}, err
	}
	payload, err := parseReadBlockInfoResponse(resp)
	if err != nil {
		return BlockInfo{}, err
	}
	return decodeBlockInfo(payload)
}

// ReadPLCTime reads the CPU's current clock (§4.7 read_plc_time).
func (s *Session) ReadPLCTime() (time.Time, error) {
	ref := s.allocateRef()
	seq := s.allocateSeq()
	req := buildReadClockRequest(ref, seq)
	resp, err := s.sendReceive(req, ref)
	s.releaseRef(ref)
	if err != nil {
		return time.Time{}, err
	}
	payload, err := parseReadClockResponse(resp)
	if err != nil {
		return time.Time{}, err
	}
	return DecodeDateTime(payload)
}

// SetPLCTime sets the CPU's clock to ts and, once the PLC acknowledges
// the request, returns ts (§4.7 set_plc_time).
func (s *Session) SetPLCTime(ts time.Time) (time.Time, error) {
	payload, err := EncodeDateTime(ts)
	if err != nil {
		return time.Time{}, err
	}
	ref := s.allocateRef()
	seq := s.allocateSeq()
	req := buildSetClockRequest(ref, seq, payload)
	resp, err := s.sendReceive(req, ref)
	s.releaseRef(ref)
	if err != nil {
		return time.Time{}, err
	}
	if err := parseSetClockResponse(resp); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// SyncPLCTime sets the CPU's clock to the local system's current time
// (UTC if utc is true, local time otherwise), returning the timestamp
// used (§4.7 sync_plc_time).
func (s *Session) SyncPLCTime(utc bool) (time.Time, error) {
	now := time.Now()
	if utc {
		now = now.UTC()
	}
	return s.SetPLCTime(now)
}

// piService names the Program Invocation services backing stop and the
// two start variants (§4.7). See buildPIServiceRequest's doc comment
// for the provenance of the byte layout.
const (
	piServiceStop      = "P_PROGRAM"
	piServiceStartHot  = "P_PROGRAM"
	piServiceStartCold = "C_PROGRAM"
)

// Stop places the CPU in STOP mode, returning boolean success (§4.7
// stop).
func (s *Session) Stop() (bool, error) {
	return s.piService(s7FuncPlcStop, piServiceStop)
}

// StartCold starts the CPU with a cold restart (a full memory reset),
// returning boolean success (§4.7 start_plc_cold).
func (s *Session) StartCold() (bool, error) {
	return s.piService(s7FuncPlcStart, piServiceStartCold)
}

// StartHot starts the CPU with a warm restart (resuming from its
// retained state), returning boolean success (§4.7 start_plc_hot).
func (s *Session) StartHot() (bool, error) {
	return s.piService(s7FuncPlcStart, piServiceStartHot)
}

func (s *Session) piService(funcCode byte, service string) (bool, error) {
	ref := s.allocateRef()
	req := buildPIServiceRequest(ref, funcCode, service)
	resp, err := s.sendReceive(req, ref)
	s.releaseRef(ref)
	if err != nil {
		return false, err
	}
	if err := parsePIServiceResponse(resp); err != nil {
		return false, err
	}
	return true, nil
}
