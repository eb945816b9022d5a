package s7

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestOpsReadArea(t *testing.T) {
	s, server := openOverPipe(t, 480, func(req []byte) []byte {
		h, _ := parseS7Header(req)
		resp := []byte{
			s7ProtocolID, s7MsgAckData, 0x00, 0x00,
			byte(h.PDURef >> 8), byte(h.PDURef),
			0x00, 0x00, 0x00, 0x05, 0x00, 0x00,
			dataItemSuccess, tsBYTE, 0x00, 0x08, 0x2A,
		}
		return resp
	})
	defer server.Close()
	defer s.Close()

	items := []Item{{Addr: mustAddr(t, "DB1.DBX0"), Type: Byte}}
	results, err := s.ReadArea(items)
	if err != nil {
		t.Fatalf("ReadArea: %v", err)
	}
	if len(results) != 1 || results[0].Error != nil {
		t.Fatalf("results = %+v", results)
	}
	if len(results[0].Data) != 1 || results[0].Data[0] != 0x2A {
		t.Errorf("Data = %v, want [0x2A]", results[0].Data)
	}
}

func TestOpsWriteArea(t *testing.T) {
	s, server := openOverPipe(t, 480, func(req []byte) []byte {
		h, _ := parseS7Header(req)
		return []byte{
			s7ProtocolID, s7MsgAckData, 0x00, 0x00,
			byte(h.PDURef >> 8), byte(h.PDURef),
			0x00, 0x00, 0x00, 0x01, 0x00, 0x00,
			dataItemSuccess,
		}
	})
	defer server.Close()
	defer s.Close()

	items := []Item{{Addr: mustAddr(t, "DB1.DBX0"), Type: Byte}}
	errs, err := s.WriteArea(items, [][]byte{{0x01}})
	if err != nil {
		t.Fatalf("WriteArea: %v", err)
	}
	if len(errs) != 1 || errs[0] != nil {
		t.Errorf("errs = %v", errs)
	}
}

func TestOpsReadCPUStatus(t *testing.T) {
	s, server := openOverPipe(t, 480, func(req []byte) []byte {
		h, _ := parseS7Header(req)
		payload := []byte{0x04, 0x24, 0x00, 0x00, 0x08, 0x03, 0x00}
		return buildFakeUserDataResponse(h.PDURef, userDataFuncGroupCPU, userDataSubFuncReadSZL, 1, false, payload)
	})
	defer server.Close()
	defer s.Close()

	status, err := s.ReadCPUStatus()
	if err != nil {
		t.Fatalf("ReadCPUStatus: %v", err)
	}
	if status.RequestedMode != 0x08 || status.PreviousMode != 0x03 {
		t.Errorf("status = %+v", status)
	}
}

func TestOpsReadPLCTimeBoundary(t *testing.T) {
	dt := []byte{0x22, 0x09, 0x08, 0x17, 0x07, 0x25, 0x38, 0x04}
	s, server := openOverPipe(t, 480, func(req []byte) []byte {
		h, _ := parseS7Header(req)
		return buildFakeUserDataResponse(h.PDURef, userDataFuncGroupTime, userDataSubFuncReadClock, 1, false, dt)
	})
	defer server.Close()
	defer s.Close()

	got, err := s.ReadPLCTime()
	if err != nil {
		t.Fatalf("ReadPLCTime: %v", err)
	}
	want := time.Date(2022, 9, 8, 17, 7, 25, 380_000_000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ReadPLCTime = %v, want %v", got, want)
	}
}

func TestOpsSetPLCTimeEchoesTimestamp(t *testing.T) {
	s, server := openOverPipe(t, 480, func(req []byte) []byte {
		h, _ := parseS7Header(req)
		return buildFakeUserDataResponse(h.PDURef, userDataFuncGroupTime, userDataSubFuncSetClock, 1, false, nil)
	})
	defer server.Close()
	defer s.Close()

	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := s.SetPLCTime(ts)
	if err != nil {
		t.Fatalf("SetPLCTime: %v", err)
	}
	if !got.Equal(ts) {
		t.Errorf("SetPLCTime echoed %v, want %v", got, ts)
	}
}

func TestOpsStop(t *testing.T) {
	s, server := openOverPipe(t, 480, func(req []byte) []byte {
		h, _ := parseS7Header(req)
		resp := make([]byte, 12)
		resp[0] = s7ProtocolID
		resp[1] = s7MsgAckData
		binary.BigEndian.PutUint16(resp[4:6], h.PDURef)
		return resp
	})
	defer server.Close()
	defer s.Close()

	ok, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !ok {
		t.Error("Stop returned false on success response")
	}
}

func TestOpsReadSZLPropagatesS7Error(t *testing.T) {
	s, server := openOverPipe(t, 480, func(req []byte) []byte {
		h, _ := parseS7Header(req)
		resp := make([]byte, 12)
		resp[0] = s7ProtocolID
		resp[1] = s7MsgUserData
		binary.BigEndian.PutUint16(resp[4:6], h.PDURef)
		resp[10] = 0x87
		resp[11] = 0x04
		return resp
	})
	defer server.Close()
	defer s.Close()

	if _, err := s.ReadSZL(szlIDCPUStatus, szlIndexNone); err == nil {
		t.Error("expected S7Error to propagate")
	}
}
