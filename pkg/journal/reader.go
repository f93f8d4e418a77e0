package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	derrors "github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/reconcile"
)

// Record is one applied script read back from a journal.
type Record struct {
	Surface string
	Seq     uint64
	Phase   reconcile.Phase
	Time    time.Time
	Script  dom.Script

	// Applied is the number of ops that completed.
	Applied int

	// Err is the failure message, empty on success.
	Err string
}

// Failed reports whether the script stopped early.
func (r Record) Failed() bool { return r.Err != "" }

// Reader decodes records from a journal.
type Reader struct {
	dec        *cbor.Decoder
	zr         *zstd.Decoder
	closer     io.Closer
	compressed bool
	n          int
}

// NewReader checks the journal header and returns a Reader for the records.
// A bad header is a D020 error, an unknown version D021.
func NewReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReader(src)

	header := make([]byte, len(Magic)+2)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, derrors.New("D020").WithDetail("journal header is truncated").Wrap(err)
	}
	if string(header[:len(Magic)]) != Magic {
		return nil, derrors.New("D020").WithDetail("not a journal file")
	}
	if v := header[len(Magic)]; v != Version {
		return nil, derrors.New("D021").WithDetail(fmt.Sprintf("version %d, supported %d", v, Version))
	}

	r := &Reader{compressed: header[len(Magic)+1]&flagCompressed != 0}
	var in io.Reader = br
	if r.compressed {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, derrors.New("D020").Wrap(err)
		}
		r.zr = zr
		in = zr
	}
	r.dec = decMode.NewDecoder(in)
	return r, nil
}

// Open opens the journal at path. Close closes the file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Compressed reports whether the records are zstd-compressed.
func (r *Reader) Compressed() bool { return r.compressed }

// Next returns the next record, or io.EOF after the last one. A record that
// cannot be decoded, including one cut short, is a D020 error.
func (r *Reader) Next() (Record, error) {
	var w wireRecord
	if err := r.dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, r.corrupt(err)
	}

	script, err := decodeScript(w.Ops)
	if err != nil {
		return Record{}, r.corrupt(err)
	}
	if w.Applied < 0 || w.Applied > len(script) {
		return Record{}, r.corrupt(fmt.Errorf("%d ops applied of %d", w.Applied, len(script)))
	}
	r.n++

	return Record{
		Surface: w.Surface,
		Seq:     w.Seq,
		Phase:   reconcile.Phase(w.Phase),
		Time:    w.Time,
		Script:  script,
		Applied: w.Applied,
		Err:     w.Err,
	}, nil
}

// ReadAll returns the remaining records.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

func (r *Reader) corrupt(err error) error {
	return derrors.New("D020").WithDetail(fmt.Sprintf("record %d", r.n+1)).Wrap(err)
}

// Close releases the decompressor and closes the file opened by Open.
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
