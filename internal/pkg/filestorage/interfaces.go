package filestorage

import (
	"errors"
	"io"
	"mime/multipart"
	"time"
)

// ErrFileNotFound is returned when a blob path points at nothing on disk.
var ErrFileNotFound = errors.New("file not found")

// BlobStore stores note PDFs and hands back the public path saved on the record.
type BlobStore interface {
	// SaveFile stores an uploaded file under a fresh unique name
	SaveFile(fileHeader *multipart.FileHeader) (string, error)

	// Save stores the content of r under a fresh unique name
	Save(r io.Reader) (string, error)

	// DeleteFile removes a blob; ErrFileNotFound if it is already gone
	DeleteFile(blobPath string) error

	Exists(blobPath string) (bool, error)

	// ModTime returns when the blob was last written; ErrFileNotFound if it is gone
	ModTime(blobPath string) (time.Time, error)

	// List returns the public paths of every blob currently stored
	List() ([]string, error)

	// GetFullPath returns the filesystem path for a public blob path
	GetFullPath(blobPath string) string
}
