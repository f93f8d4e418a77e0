package journal

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/arcadiusmc/delphi/pkg/reconcile"
)

// Magic starts every journal file.
const Magic = "DLPJ"

// Version is the record format written by this package.
const Version = 1

const flagCompressed = 0x01

// ErrWriterClosed is returned for writes after Close.
var ErrWriterClosed = errors.New("journal: writer closed")

// Option configures a Writer.
type Option func(*Writer)

// WithCompression zstd-compresses the records.
func WithCompression(enabled bool) Option {
	return func(w *Writer) { w.compress = enabled }
}

// WithLogger sets the logger. Default: slog.Default() with component=journal.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Writer appends script records to a journal. It implements
// reconcile.Observer and may be shared by reconcilers on different
// goroutines.
type Writer struct {
	compress bool
	logger   *slog.Logger

	mu      sync.Mutex
	dst     io.Writer
	closer  io.Closer // underlying file, when opened by Create
	zw      *zstd.Encoder
	enc     *cbor.Encoder
	records int
	err     error
	closed  bool
}

var _ reconcile.Observer = (*Writer)(nil)

// NewWriter writes the journal header to dst and returns a Writer appending
// to it.
func NewWriter(dst io.Writer, opts ...Option) (*Writer, error) {
	w := &Writer{
		dst:    dst,
		logger: slog.Default().With("component", "journal"),
	}
	for _, opt := range opts {
		opt(w)
	}

	var flags byte
	if w.compress {
		flags |= flagCompressed
	}
	if _, err := dst.Write(append([]byte(Magic), Version, flags)); err != nil {
		return nil, err
	}

	out := dst
	if w.compress {
		zw, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		w.zw = zw
		out = zw
	}
	w.enc = encMode.NewEncoder(out)
	return w, nil
}

// Create creates or truncates the file at path and returns a Writer on it.
// Close closes the file.
func Create(path string, opts ...Option) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	w.logger = w.logger.With("path", path)
	return w, nil
}

// ObserveScript appends a record for e. Encoding failures are logged, and
// the first one is kept and returned by Err and Close.
func (w *Writer) ObserveScript(e reconcile.ScriptEvent) {
	if err := w.Write(e); err != nil && !errors.Is(err, ErrWriterClosed) {
		w.logger.Warn("journal write failed", "surface", e.Surface, "seq", e.Seq, "error", err)
	}
}

// Write appends a record for e.
func (w *Writer) Write(e reconcile.ScriptEvent) error {
	rec := wireRecord{
		Surface: e.Surface,
		Seq:     e.Seq,
		Phase:   string(e.Phase),
		Time:    e.Time,
		Ops:     encodeScript(e.Script),
		Applied: e.Applied,
	}
	if e.Err != nil {
		rec.Err = e.Err.Error()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if w.err != nil {
		return w.err
	}
	if err := w.enc.Encode(rec); err != nil {
		w.err = err
		return err
	}
	w.records++
	return nil
}

// Flush pushes buffered compressed data to the destination.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.zw == nil || w.closed {
		return w.err
	}
	if err := w.zw.Flush(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

// Records returns the number of records written.
func (w *Writer) Records() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Err returns the first write error.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close finishes the compressed stream and closes the file opened by
// Create. It returns the first error seen by the Writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return w.err
	}
	w.closed = true

	errs := []error{w.err}
	if w.zw != nil {
		errs = append(errs, w.zw.Close())
	}
	if w.closer != nil {
		errs = append(errs, w.closer.Close())
	}
	w.logger.Debug("journal closed", "records", w.records)
	return errors.Join(errs...)
}
