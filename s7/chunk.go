package s7

// Greedy per-PDU-size packing of ReadVar/WriteVar items (§4.5). The
// negotiated PDU size bounds both the request parameter section and the
// response/request data section, so a chunk is closed as soon as either
// would overflow; order is always preserved across chunks since the
// façade reassembles results by walking the chunks in sequence.
//
// No teacher precedent: the teacher's transport.go/protocol.go only ever
// issue single-item requests.
const chunkHeaderOverhead = 16 // conservative margin for the 12-byte AckData header + func/count bytes

// chunkReadItems splits items into chunks, each of which fits within
// pduSize once wrapped in a ReadVar request/response pair.
func chunkReadItems(items []Item, pduSize int) [][]Item {
	if pduSize <= 0 {
		pduSize = defaultPDUSize
	}
	budget := pduSize - chunkHeaderOverhead

	var chunks [][]Item
	var cur []Item
	paramLen := 2 // function byte + item count byte
	dataLen := 0

	for _, it := range items {
		itemParam := 12
		itemData := 4 + it.byteLen()
		if it.byteLen()%2 == 1 {
			itemData++
		}
		if len(cur) > 0 && (paramLen+itemParam > budget || dataLen+itemData > budget) {
			chunks = append(chunks, cur)
			cur = nil
			paramLen = 2
			dataLen = 0
		}
		cur = append(cur, it)
		paramLen += itemParam
		dataLen += itemData
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

// writeChunk is one packed group of a WriteArea batch: parallel items
// and the values to write to them.
type writeChunk struct {
	Items  []Item
	Values [][]byte
}

// chunkWriteItems splits items/values into chunks that each fit within
// pduSize once wrapped in a WriteVar request.
func chunkWriteItems(items []Item, values [][]byte, pduSize int) []writeChunk {
	if pduSize <= 0 {
		pduSize = defaultPDUSize
	}
	budget := pduSize - chunkHeaderOverhead

	var chunks []writeChunk
	var curItems []Item
	var curValues [][]byte
	paramLen := 2
	dataLen := 0

	for i, it := range items {
		v := values[i]
		itemParam := 12
		itemData := 4 + len(v)
		if len(v)%2 == 1 {
			itemData++
		}
		if len(curItems) > 0 && (paramLen+itemParam > budget || dataLen+itemData > budget) {
			chunks = append(chunks, writeChunk{Items: curItems, Values: curValues})
			curItems, curValues = nil, nil
			paramLen = 2
			dataLen = 0
		}
		curItems = append(curItems, it)
		curValues = append(curValues, v)
		paramLen += itemParam
		dataLen += itemData
	}
	if len(curItems) > 0 {
		chunks = append(chunks, writeChunk{Items: curItems, Values: curValues})
	}
	return chunks
}
