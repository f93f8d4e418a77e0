package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHello  FrameType = 0x00 // Connection setup
	FrameCall   FrameType = 0x01 // Adapter call
	FrameResult FrameType = 0x02 // Successful call result
	FrameError  FrameType = 0x03 // Failed call or fatal error
	FrameClose  FrameType = 0x04 // Orderly shutdown
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameCall:
		return "Call"
	case FrameResult:
		return "Result"
	case FrameError:
		return "Error"
	case FrameClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagReply FrameFlags = 0x01 // Frame answers a request
	FlagFinal FrameFlags = 0x02 // Sender closes after this frame
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a protocol frame: a 4-byte header followed by the payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame with no flags.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+length)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(length >> 8)
	buf[3] = byte(length)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// DecodeFrame decodes a frame from one websocket message. The payload is
// copied; trailing bytes after the declared length are rejected.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}

	ft := FrameType(data[0])
	if ft > FrameClose {
		return nil, ErrInvalidFrameType
	}
	length := int(data[2])<<8 | int(data[3])

	switch {
	case len(data) < FrameHeaderSize+length:
		return nil, io.ErrUnexpectedEOF
	case len(data) > FrameHeaderSize+length:
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])

	return &Frame{
		Type:    ft,
		Flags:   FrameFlags(data[1]),
		Payload: payload,
	}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// ReadFrame reads a complete frame from an io.Reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	ft := FrameType(header[0])
	if ft > FrameClose {
		return nil, ErrInvalidFrameType
	}
	length := int(header[2])<<8 | int(header[3])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	return &Frame{Type: ft, Flags: FrameFlags(header[1]), Payload: payload}, nil
}
