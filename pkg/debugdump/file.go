package debugdump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink stores dumps in a local directory.
type FileSink struct {
	dir string
}

// NewFileSink creates the directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileSink{dir: dir}, nil
}

// Dir returns the dump directory.
func (s *FileSink) Dir() string { return s.dir }

// Write stores data as dir/name. The file appears complete or not at all.
func (s *FileSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}

	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}
