package protocol

import "fmt"

// ErrorCode identifies the type of error.
type ErrorCode uint16

const (
	ErrUnknown         ErrorCode = 0x0000 // Unknown error
	ErrInvalidFrame    ErrorCode = 0x0001 // Malformed frame
	ErrInvalidCall     ErrorCode = 0x0002 // Malformed call
	ErrUnknownRef      ErrorCode = 0x0003 // Ref not bound on the bridge
	ErrHostFailure     ErrorCode = 0x0004 // The host adapter returned an error
	ErrVersionMismatch ErrorCode = 0x0005 // Incompatible protocol version
	ErrSurfaceRejected ErrorCode = 0x0006 // The bridge refused the surface
	ErrCanceled        ErrorCode = 0x0007 // The call was canceled
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrInvalidCall:
		return "InvalidCall"
	case ErrUnknownRef:
		return "UnknownRef"
	case ErrHostFailure:
		return "HostFailure"
	case ErrVersionMismatch:
		return "VersionMismatch"
	case ErrSurfaceRejected:
		return "SurfaceRejected"
	case ErrCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// ErrorMessage answers a failed Call (Seq > 0) or reports a connection
// level problem (Seq == 0).
type ErrorMessage struct {
	Seq     uint64
	Code    ErrorCode
	Message string
	Fatal   bool // If true, the sender closes the connection
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUvarint(em.Seq)
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}

	return &ErrorMessage{
		Seq:     seq,
		Code:    ErrorCode(code),
		Message: message,
		Fatal:   fatal,
	}, d.Finish()
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	return fmt.Sprintf("protocol: %s: %s", em.Code, em.Message)
}
