package s7

import "testing"

func TestDecodeCPUStatus(t *testing.T) {
	got, err := decodeCPUStatus([]byte{0x08, 0x04, 0x00})
	if err != nil {
		t.Fatalf("decodeCPUStatus: %v", err)
	}
	if got.RequestedMode != 0x08 || got.PreviousMode != 0x04 {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeCPUStatusShortRecord(t *testing.T) {
	if _, err := decodeCPUStatus([]byte{0x01}); err == nil {
		t.Error("expected error for short record")
	}
}

func TestDecodeCatalogCode(t *testing.T) {
	rec := make([]byte, 35)
	copy(rec[0:20], []byte("6ES7 315-2AH14-0AB0 "))
	rec[20], rec[21] = 1, 0       // module version 1.0
	rec[22], rec[23] = 0x00, 0x01 // HWID
	rec[24], rec[25] = 2, 1       // HW version 2.1
	rec[26], rec[27] = 0x00, 0x02 // FWID
	rec[28], rec[29] = 3, 4       // FW version 3.4
	rec[30], rec[31] = 0x00, 0x03 // FWExtID
	rec[32], rec[33] = 5, 6       // FW ext version 5.6
	rec[34] = 0

	got, err := decodeCatalogCode(rec)
	if err != nil {
		t.Fatalf("decodeCatalogCode: %v", err)
	}
	if got.ModuleOrderNo != "6ES7 315-2AH14-0AB0" {
		t.Errorf("ModuleOrderNo = %q", got.ModuleOrderNo)
	}
	if got.ModuleVersion != "1.0" {
		t.Errorf("ModuleVersion = %q", got.ModuleVersion)
	}
	if got.HWID != 1 || got.FWID != 2 || got.FWExtID != 3 {
		t.Errorf("HWID/FWID/FWExtID = %d/%d/%d", got.HWID, got.FWID, got.FWExtID)
	}
	if got.HWVersion != "2.1" || got.FWVersion != "3.4" || got.FWExtVersion != "5.6" {
		t.Errorf("HWVersion/FWVersion/FWExtVersion = %s/%s/%s", got.HWVersion, got.FWVersion, got.FWExtVersion)
	}
}

func TestDecodeCPUInfo(t *testing.T) {
	rec := make([]byte, 32*14)
	copy(rec[0:32], []byte("CPU 315-2 PN/DP"))
	got, err := decodeCPUInfo(rec)
	if err != nil {
		t.Fatalf("decodeCPUInfo: %v", err)
	}
	if got.Fields[0] != "CPU 315-2 PN/DP" {
		t.Errorf("Fields[0] = %q", got.Fields[0])
	}
}

func TestDecodeCommProcList(t *testing.T) {
	var rec []byte
	rec = append(rec, 0x01, 0xE0, 0x00, 0x04, 0x00, 0x00, 0x01, 0x2C, 0x00, 0x00, 0x00, 0x00)
	rec = append(rec, 0x03, 0xC0, 0x00, 0x02, 0x00, 0x00, 0x02, 0x58, 0x00, 0x00, 0x00, 0x00)
	got, err := decodeCommProc(rec)
	if err != nil {
		t.Fatalf("decodeCommProc: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].MaxPDU != 0x01E0 || got[1].MaxConn != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeCommProcRejectsPartialEntry(t *testing.T) {
	if _, err := decodeCommProc([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Error("expected error for non-multiple-of-stride record")
	}
}

func TestDecodeProtectionList(t *testing.T) {
	rec := []byte{0x01, 0x00, 0x01, 0x03, 0x00}
	got, err := decodeProtection(rec)
	if err != nil {
		t.Fatalf("decodeProtection: %v", err)
	}
	if len(got) != 1 || got[0].ModeSelector != 0x03 {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeDiagnosticsList(t *testing.T) {
	rec := make([]byte, 20)
	rec[0], rec[1] = 0x39, 0xA1 // event ID
	rec[2] = 0x01               // priority
	rec[3] = 1                  // OB number
	got, err := decodeDiagnostics(rec)
	if err != nil {
		t.Fatalf("decodeDiagnostics: %v", err)
	}
	if len(got) != 1 || got[0].EventID != 0x39A1 {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeCPULedsList(t *testing.T) {
	rec := []byte{0x00, 0x01, 0x02, 0x01, 0x00}
	got, err := decodeCPULeds(rec)
	if err != nil {
		t.Fatalf("decodeCPULeds: %v", err)
	}
	if len(got) != 1 || !got[0].On || got[0].Flashing {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeBlockInfo(t *testing.T) {
	payload := make([]byte, 45)
	payload[0] = BlockTypeFC
	payload[1], payload[2] = 0x00, 0x0A // block number 10
	copy(payload[19:27], []byte("AUTHOR"))
	copy(payload[27:35], []byte("FAMILY"))
	copy(payload[35:43], []byte("BLKNAME"))
	payload[43], payload[44] = 1, 2 // version 1.2

	got, err := decodeBlockInfo(payload)
	if err != nil {
		t.Fatalf("decodeBlockInfo: %v", err)
	}
	if got.BlockType != BlockTypeFC || got.BlockNumber != 10 {
		t.Errorf("got %+v", got)
	}
	if got.Author != "AUTHOR" || got.Name != "BLKNAME" || got.Version != "1.2" {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeBlockInfoTooShort(t *testing.T) {
	if _, err := decodeBlockInfo([]byte{0x01}); err == nil {
		t.Error("expected error for short payload")
	}
}
