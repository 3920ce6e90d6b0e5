// Package protocol implements the framed command protocol spoken between the
// host and the bus bridge. Frames follow the Klipper layout:
//
//	len | seq | payload | crc16 (big endian) | 0x7E
//
// The payload is a sequence of messages, each a VLQ command ID followed by
// its VLQ-encoded arguments.
package protocol

// Version is the bridge protocol version reported in the dictionary.
const Version = "twimaster-0.1"

// Frame layout constants
const (
	FrameHeader  = 2 // length and sequence bytes
	FrameTrailer = 3 // CRC and sync bytes
	FrameMin     = FrameHeader + FrameTrailer
	FrameMax     = 64
	PayloadMax   = FrameMax - FrameMin

	SyncByte = 0x7E

	SeqMask = 0x0F
	SeqDest = 0x10
)

// Message IDs fixed before the dictionary is known.
const (
	IdentifyResponseID = 0
	IdentifyID         = 1

	// IdentifyChunk is the largest dictionary chunk requested at once.
	IdentifyChunk = 40
)
