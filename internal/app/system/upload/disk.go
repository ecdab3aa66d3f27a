package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
)

// Disk stores blobs under a root directory. Keys are slash-separated paths
// relative to the root.
type Disk struct {
	root string
}

// NewDisk returns a Disk rooted at dir, creating it if needed.
func NewDisk(dir string) (*Disk, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload dir is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: abs}, nil
}

// Root returns the absolute directory files are written to.
func (d *Disk) Root() string { return d.root }

// Put writes r to key. The write goes to a temp file first and is renamed
// into place so readers never see a partial file.
func (d *Disk) Put(ctx context.Context, key string, r io.Reader, _ *storage.PutOptions) error {
	full, err := d.FullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), full)
}

// FullPath resolves key under the root, rejecting keys that escape it.
func (d *Disk) FullPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + key))
	full := filepath.Join(d.root, clean)
	if full == d.root || !strings.HasPrefix(full, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return full, nil
}

// ctxReader stops a copy once the request context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
