package app

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/proconverter/proconverter-lemons/internal/domain"
)

// DownloadStore maps single-use download tokens to packaged archives. An
// archive is purged once its download is opened, whether or not the transfer
// completes.
type DownloadStore struct {
	mu    sync.Mutex
	files map[string]string
}

func NewDownloadStore() *DownloadStore {
	return &DownloadStore{files: make(map[string]string)}
}

// Put registers the archive and returns its download token.
func (d *DownloadStore) Put(archivePath string) string {
	token := uuid.NewString()
	d.mu.Lock()
	d.files[token] = archivePath
	d.mu.Unlock()
	return token
}

// Open claims the token and returns a reader over the archive. The token is
// consumed immediately; closing the reader deletes the file.
func (d *DownloadStore) Open(token string) (io.ReadCloser, string, error) {
	d.mu.Lock()
	path, ok := d.files[token]
	if ok {
		delete(d.files, token)
	}
	d.mu.Unlock()

	if !ok {
		return nil, "", domain.ErrDownloadNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", domain.ErrDownloadNotFound
	}
	return &purgeOnClose{File: f, path: path}, "stamps.zip", nil
}

// purgeOnClose deletes the underlying archive when the download finishes.
type purgeOnClose struct {
	*os.File
	path string
}

func (p *purgeOnClose) Close() error {
	err := p.File.Close()
	if rmErr := os.Remove(p.path); rmErr != nil {
		slog.Error("Failed to purge served archive", "path", p.path, "error", rmErr)
	}
	return err
}
