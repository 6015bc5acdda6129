package sendworker

import (
	"bytes"
	"encoding/binary"
)

const (
	ConnectionMagicNum    = uint16(31843)
	Version1              = uint8(1)
	CommonPrefixLen       = 6  // magicNum 2byte + Length 4Byte
	Version1DataPrefixLen = 13 // prefix len of version 1, not including magicNum and Length field
)

// Frame layout, all integers little endian:
//
//	[magicNum u16][dataLen u32][version u8][bodyOffset u32][bodyLen u32][headerLen u32][header][body]
//
// EncodePreAllocated writes the frame prefix into a payload whose first
// GetPrefixLen bytes were reserved by the caller, so batching appends the
// body without a second copy.
func EncodePreAllocated(payload []byte, headerBytes []byte) []byte {
	totalPrefixLen := GetPrefixLen(1, headerBytes)
	if len(payload) < totalPrefixLen {
		return payload
	}
	bodyOffset := Version1DataPrefixLen + len(headerBytes)
	bodyLen := len(payload) - totalPrefixLen
	dataLen := len(payload) - CommonPrefixLen

	binary.LittleEndian.PutUint16(payload[0:2], ConnectionMagicNum)
	binary.LittleEndian.PutUint32(payload[2:6], uint32(dataLen))

	payload[6] = Version1

	binary.LittleEndian.PutUint32(payload[7:11], uint32(bodyOffset))
	binary.LittleEndian.PutUint32(payload[11:15], uint32(bodyLen))

	binary.LittleEndian.PutUint32(payload[15:19], uint32(len(headerBytes)))
	copy(payload[19:19+len(headerBytes)], headerBytes)

	return payload
}

func FormatMap(m map[string]string) []byte {
	b := bytes.NewBuffer(nil)
	for k, v := range m {
		if len(k) == 0 || len(v) == 0 {
			continue
		}
		kLen, vLen := make([]byte, 4), make([]byte, 4)
		binary.LittleEndian.PutUint32(kLen, uint32(len(k)))
		binary.LittleEndian.PutUint32(vLen, uint32(len(v)))
		b.Write(kLen)
		b.WriteString(k)
		b.Write(vLen)
		b.WriteString(v)
	}
	return b.Bytes()
}

func GetPrefixLen(version uint8, headerBytes []byte) int {
	if version == Version1 {
		return CommonPrefixLen + Version1DataPrefixLen + len(headerBytes)
	}
	return -1
}
