package s7

import (
	"encoding/binary"
	"fmt"
)

// SZL IDs and indexes for the named operation façade (§4.7), confirmed
// against the documented CPU System Status List layout: read_cpu_status
// uses 0x0424, read_catalog_code 0x0011, read_cpu_info 0x001C,
// read_comm_proc 0x0131/index 0x0001, read_protection 0x0232/index
// 0x0004, read_cpu_diagnostics 0x00A0, read_cpu_leds 0x0074.
const (
	szlIDCPUStatus     = 0x0424
	szlIDCatalogCode   = 0x0011
	szlIDCPUInfo       = 0x001C
	szlIDCommProc      = 0x0131
	szlIndexCommProc   = 0x0001
	szlIDProtection    = 0x0232
	szlIndexProtection = 0x0004
	szlIDDiagnostics   = 0x00A0
	szlIDCPULeds       = 0x0074
	szlIndexNone       = 0x0000
)

// CPUStatus is the decoded record for read_cpu_status (§4.7).
type CPUStatus struct {
	RequestedMode byte
	PreviousMode  byte
	Error         byte
}

// decodeCPUStatus decodes the fixed-offset fields of an SZL 0x0424
// record (§4.7).
func decodeCPUStatus(records []byte) (CPUStatus, error) {
	if len(records) < 3 {
		return CPUStatus{}, &ProtocolError{Msg: "SZL 0x0424 record too short"}
	}
	return CPUStatus{
		RequestedMode: records[0],
		PreviousMode:  records[1],
		Error:         records[2],
	}, nil
}

// CatalogCode is the decoded record for read_catalog_code (§4.7).
type CatalogCode struct {
	ModuleOrderNo string
	ModuleVersion string
	HWID          uint16
	HWVersion     string
	FWID          uint16
	FWVersion     string
	FWExtID       uint16
	FWExtVersion  string
	Error         byte
}

// decodeCatalogCode decodes an SZL 0x0011 record. The order number is a
// fixed 20-byte ASCII field followed by a module-version byte pair, then
// for each of HW, FW and FW-extension a 2-byte big-endian ID and a
// major/minor version byte pair (rendered as "major.minor" in decimal),
// and a final error byte (§4.7).
func decodeCatalogCode(records []byte) (CatalogCode, error) {
	const recLen = 35
	if len(records) < recLen {
		return CatalogCode{}, &ProtocolError{Msg: "SZL 0x0011 record too short"}
	}
	hwID := binary.BigEndian.Uint16(records[22:24])
	fwID := binary.BigEndian.Uint16(records[26:28])
	fwExtID := binary.BigEndian.Uint16(records[30:32])
	return CatalogCode{
		ModuleOrderNo: readFixedASCII(records[0:20], true),
		ModuleVersion: fmt.Sprintf("%d.%d", records[20], records[21]),
		HWID:          hwID,
		HWVersion:     fmt.Sprintf("%d.%d", records[24], records[25]),
		FWID:          fwID,
		FWVersion:     fmt.Sprintf("%d.%d", records[28], records[29]),
		FWExtID:       fwExtID,
		FWExtVersion:  fmt.Sprintf("%d.%d", records[32], records[33]),
		Error:         records[34],
	}, nil
}

// CPUInfo is the decoded record for read_cpu_info: 14 fixed-length
// ASCII fields describing the module identity (§4.7, README).
type CPUInfo struct {
	Fields [14]string
}

// decodeCPUInfo decodes an SZL 0x001C record as 14 consecutive
// 32-byte, space-padded ASCII fields.
func decodeCPUInfo(records []byte) (CPUInfo, error) {
	const fieldLen = 32
	const fieldCount = 14
	if len(records) < fieldLen*fieldCount {
		return CPUInfo{}, &ProtocolError{Msg: "SZL 0x001C record too short"}
	}
	var info CPUInfo
	for i := 0; i < fieldCount; i++ {
		start := i * fieldLen
		info.Fields[i] = readFixedASCII(records[start:start+fieldLen], true)
	}
	return info, nil
}

// CommProc is one decoded entry of read_comm_proc's list (§4.7).
type CommProc struct {
	MaxPDU    uint16
	MaxConn   uint16
	MPIRate   uint32
	MKBusRate uint32
	Error     byte
}

// decodeCommProc decodes the repeated fixed-stride entries of an SZL
// 0x0131/0x0001 record list (§4.7).
func decodeCommProc(records []byte) ([]CommProc, error) {
	const stride = 12
	if len(records)%stride != 0 {
		return nil, &ProtocolError{Msg: "SZL 0x0131 record not a multiple of entry size"}
	}
	out := make([]CommProc, 0, len(records)/stride)
	for off := 0; off < len(records); off += stride {
		e := records[off : off+stride]
		out = append(out, CommProc{
			MaxPDU:    binary.BigEndian.Uint16(e[0:2]),
			MaxConn:   binary.BigEndian.Uint16(e[2:4]),
			MPIRate:   binary.BigEndian.Uint32(e[4:8]),
			MKBusRate: binary.BigEndian.Uint32(e[8:12]),
		})
	}
	return out, nil
}

// Protection is one decoded entry of read_protection's list (§4.7).
type Protection struct {
	ProtectionLevel      byte
	PasswordLevel        byte
	ValidProtectionLevel byte
	ModeSelector         byte
	StartupSwitch        byte
	Error                byte
}

// decodeProtection decodes the repeated fixed-stride entries of an SZL
// 0x0232/0x0004 record list (§4.7).
func decodeProtection(records []byte) ([]Protection, error) {
	const stride = 5
	if len(records)%stride != 0 {
		return nil, &ProtocolError{Msg: "SZL 0x0232 record not a multiple of entry size"}
	}
	out := make([]Protection, 0, len(records)/stride)
	for off := 0; off < len(records); off += stride {
		e := records[off : off+stride]
		out = append(out, Protection{
			ProtectionLevel:      e[0],
			PasswordLevel:        e[1],
			ValidProtectionLevel: e[2],
			ModeSelector:         e[3],
			StartupSwitch:        e[4],
		})
	}
	return out, nil
}

// Diagnostic is one decoded entry of read_cpu_diagnostics's list (§4.7).
type Diagnostic struct {
	EventID     uint16
	Description string
	Priority    byte
	OBNumber    byte
	DatID       uint16
	Info1       uint32
	Info2       uint32
	Timestamp   []byte // raw 8-byte DATETIME, decode with DecodeDateTime
	Error       byte
}

// decodeDiagnostics decodes the repeated fixed-stride entries of an SZL
// 0x00A0 record list. Description is left as an empty placeholder: the
// CPU diagnostic-event text table is a separate SZL not covered here,
// so only the structured numeric/timestamp fields are populated.
func decodeDiagnostics(records []byte) ([]Diagnostic, error) {
	const stride = 20
	if len(records)%stride != 0 {
		return nil, &ProtocolError{Msg: "SZL 0x00A0 record not a multiple of entry size"}
	}
	out := make([]Diagnostic, 0, len(records)/stride)
	for off := 0; off < len(records); off += stride {
		e := records[off : off+stride]
		out = append(out, Diagnostic{
			EventID:   binary.BigEndian.Uint16(e[0:2]),
			Priority:  e[2],
			OBNumber:  e[3],
			DatID:     binary.BigEndian.Uint16(e[4:6]),
			Info1:     uint32(binary.BigEndian.Uint16(e[6:8])),
			Info2:     binary.BigEndian.Uint32(e[8:12]),
			Timestamp: append([]byte(nil), e[12:20]...),
		})
	}
	return out, nil
}

// Block type codes for read_block_info (§4.7), matching the well-known
// Siemens block-type byte values.
const (
	BlockTypeOB  = 0x38
	BlockTypeDB  = 0x41
	BlockTypeSDB = 0x42
	BlockTypeFC  = 0x43
	BlockTypeSFC = 0x44
	BlockTypeFB  = 0x45
	BlockTypeSFB = 0x46
)

// BlockInfo is the decoded record for read_block_info (§4.7).
type BlockInfo struct {
	BlockType      byte
	BlockNumber    uint16
	LoadMemorySize uint32
	CodeLength     uint32
	LocalDataSize  uint32
	MC7Length      uint32
	Author         string
	Family         string
	Name           string
	Version        string
	Error          byte
}

// decodeBlockInfo decodes a read_block_info UserData payload. The
// layout (type/number header followed by four length fields and three
// 8-byte identity strings) is not given by the source material; it
// mirrors the well-known shape of real S7 block-info responses.
func decodeBlockInfo(payload []byte) (BlockInfo, error) {
	const headerLen = 3 + 4*4 + 3*8 + 2
	if len(payload) < headerLen {
		return BlockInfo{}, &ProtocolError{Msg: "block info payload too short"}
	}
	info := BlockInfo{
		BlockType:      payload[0],
		BlockNumber:    binary.BigEndian.Uint16(payload[1:3]),
		LoadMemorySize: binary.BigEndian.Uint32(payload[3:7]),
		CodeLength:     binary.BigEndian.Uint32(payload[7:11]),
		LocalDataSize:  binary.BigEndian.Uint32(payload[11:15]),
		MC7Length:      binary.BigEndian.Uint32(payload[15:19]),
		Author:         readFixedASCII(payload[19:27], true),
		Family:         readFixedASCII(payload[27:35], true),
		Name:           readFixedASCII(payload[35:43], true),
	}
	info.Version = fmt.Sprintf("%d.%d", payload[43], payload[44])
	return info, nil
}

// CPULED is one decoded entry of read_cpu_leds's list (§4.7).
type CPULED struct {
	Rack     byte
	Type     byte
	ID       byte
	On       bool
	Flashing bool
	Error    byte
}

// decodeCPULeds decodes the repeated fixed-stride entries of an SZL
// 0x0074 record list (§4.7).
func decodeCPULeds(records []byte) ([]CPULED, error) {
	const stride = 5
	if len(records)%stride != 0 {
		return nil, &ProtocolError{Msg: "SZL 0x0074 record not a multiple of entry size"}
	}
	out := make([]CPULED, 0, len(records)/stride)
	for off := 0; off < len(records); off += stride {
		e := records[off : off+stride]
		out = append(out, CPULED{
			Rack:     e[0],
			Type:     e[1],
			ID:       e[2],
			On:       e[3] != 0,
			Flashing: e[4] != 0,
		})
	}
	return out, nil
}
