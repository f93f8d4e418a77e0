package protocol

// Version is a protocol version as major.minor. Peers must agree on Major.
type Version struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = Version{Major: 1, Minor: 0}

// Hello is the first frame a client sends. Surface names the surface the
// client wants to drive.
type Hello struct {
	Version Version
	Surface string
}

// EncodeHello encodes a Hello to bytes.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.WriteByte(h.Version.Major)
	e.WriteByte(h.Version.Minor)
	e.WriteString(h.Surface)
	return e.Bytes()
}

// DecodeHello decodes a Hello from bytes.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)

	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	surface, err := d.ReadString()
	if err != nil {
		return nil, err
	}

	return &Hello{Version: Version{Major: major, Minor: minor}, Surface: surface}, d.Finish()
}
