package sendworker

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodePreAllocated(t *testing.T) {
	header := FormatMap(map[string]string{"instanceID": "abc"})
	prefixLen := GetPrefixLen(Version1, header)
	assert.Equal(t, CommonPrefixLen+Version1DataPrefixLen+len(header), prefixLen)

	body := []byte(`{"trace.trace_id":"0"}`)
	payload := make([]byte, prefixLen, prefixLen+len(body))
	payload = append(payload, body...)

	framed := EncodePreAllocated(payload, header)

	assert.Equal(t, ConnectionMagicNum, binary.LittleEndian.Uint16(framed[0:2]))
	assert.Equal(t, uint32(len(framed)-CommonPrefixLen), binary.LittleEndian.Uint32(framed[2:6]))
	assert.Equal(t, Version1, framed[6])
	bodyOffset := binary.LittleEndian.Uint32(framed[7:11])
	bodyLen := binary.LittleEndian.Uint32(framed[11:15])
	assert.Equal(t, uint32(Version1DataPrefixLen+len(header)), bodyOffset)
	assert.Equal(t, uint32(len(body)), bodyLen)
	assert.Equal(t, body, framed[len(framed)-len(body):])
}

func TestEncodePreAllocatedTooShort(t *testing.T) {
	short := []byte{1, 2, 3}
	assert.Equal(t, short, EncodePreAllocated(short, nil))
}

func TestFormatMapSkipsEmpty(t *testing.T) {
	b := FormatMap(map[string]string{"": "v", "k": ""})
	assert.Empty(t, b)

	b = FormatMap(map[string]string{"k": "v"})
	// 4-byte len + key + 4-byte len + value
	assert.Len(t, b, 4+1+4+1)
}
