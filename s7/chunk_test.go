package s7

import "testing"

func TestChunkReadItemsSplitsOnBudget(t *testing.T) {
	var items []Item
	for i := 0; i < 50; i++ {
		items = append(items, Item{Addr: mustAddr(t, "DB1.DBX0"), Type: Byte, Count: 1})
	}
	chunks := chunkReadItems(items, 240)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for 50 items at PDU 240, got %d", len(chunks))
	}
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	if total != len(items) {
		t.Errorf("chunked item count = %d, want %d", total, len(items))
	}
}

func TestChunkReadItemsSingleChunkWhenSmall(t *testing.T) {
	items := []Item{
		{Addr: mustAddr(t, "DB1.DBX0"), Type: Byte},
		{Addr: mustAddr(t, "DB1.DBX1"), Type: Byte},
	}
	chunks := chunkReadItems(items, 480)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0]) != 2 {
		t.Errorf("chunk has %d items, want 2", len(chunks[0]))
	}
}

func TestChunkReadItemsPreservesOrder(t *testing.T) {
	var items []Item
	for i := 0; i < 30; i++ {
		addr := mustAddr(t, "DB1.DBX0")
		addr.Offset = i
		items = append(items, Item{Addr: addr, Type: Byte})
	}
	chunks := chunkReadItems(items, 64)
	var flat []Item
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	for i := range items {
		if flat[i] != items[i] {
			t.Fatalf("order not preserved at index %d", i)
		}
	}
}

func TestChunkWriteItemsSplitsOnBudget(t *testing.T) {
	var items []Item
	var values [][]byte
	for i := 0; i < 50; i++ {
		items = append(items, Item{Addr: mustAddr(t, "DB1.DBX0"), Type: Byte})
		values = append(values, []byte{byte(i)})
	}
	chunks := chunkWriteItems(items, values, 240)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	var total int
	for _, c := range chunks {
		if len(c.Items) != len(c.Values) {
			t.Fatalf("chunk items/values length mismatch: %d/%d", len(c.Items), len(c.Values))
		}
		total += len(c.Items)
	}
	if total != len(items) {
		t.Errorf("chunked item count = %d, want %d", total, len(items))
	}
}

func TestChunkDefaultsPDUSize(t *testing.T) {
	items := []Item{{Addr: mustAddr(t, "DB1.DBX0"), Type: Byte}}
	chunks := chunkReadItems(items, 0)
	if len(chunks) != 1 || len(chunks[0]) != 1 {
		t.Fatalf("unexpected chunking with pduSize=0: %+v", chunks)
	}
}
