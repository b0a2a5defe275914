package filestorage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/pkg/logger"
)

const (
	blobPrefix    = "note-"
	blobExtension = ".pdf"
)

// LocalStorage keeps blobs in a single flat directory on the local filesystem.
type LocalStorage struct {
	basePath  string // directory holding the files
	publicURL string // URL prefix the files are served under, e.g. /uploads/pdfs
}

// NewLocalStorage creates a new LocalStorage instance, creating basePath if needed.
func NewLocalStorage(basePath, publicURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Debug().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath:  basePath,
		publicURL: "/" + strings.Trim(publicURL, "/"),
	}, nil
}

// BasePath returns the storage directory.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// SaveFile saves an uploaded file and returns its public path.
func (ls *LocalStorage) SaveFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil {
		return "", apperrors.ErrMissingUploadFile
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("%w: failed to open uploaded file: %w", apperrors.ErrBlobIO, err)
	}
	defer file.Close()

	blobPath, err := ls.Save(file)
	if err != nil {
		return "", err
	}
	logger.Info().Str("filename", fileHeader.Filename).Str("blobPath", blobPath).Msg("File saved successfully")
	return blobPath, nil
}

// Save writes r under a generated name. A partially written file is removed.
func (ls *LocalStorage) Save(r io.Reader) (string, error) {
	name := blobPrefix + uuid.NewString() + blobExtension
	dstPath := filepath.Join(ls.basePath, name)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("%w: failed to create destination file: %w", apperrors.ErrBlobIO, err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(dstPath)
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy file content")
		return "", fmt.Errorf("%w: failed to save file content: %w", apperrors.ErrBlobIO, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("%w: failed to flush file: %w", apperrors.ErrBlobIO, err)
	}

	return path.Join(ls.publicURL, name), nil
}

// DeleteFile removes a blob. It returns ErrFileNotFound when the path is empty
// or the file is already gone; callers decide whether that matters.
func (ls *LocalStorage) DeleteFile(blobPath string) error {
	physicalPath := ls.GetFullPath(blobPath)
	if physicalPath == "" {
		return ErrFileNotFound
	}

	if err := os.Remove(physicalPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("%w: failed to delete file: %w", apperrors.ErrBlobIO, err)
	}

	logger.Debug().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// Exists reports whether the blob is on disk.
func (ls *LocalStorage) Exists(blobPath string) (bool, error) {
	physicalPath := ls.GetFullPath(blobPath)
	if physicalPath == "" {
		return false, nil
	}

	_, err := os.Stat(physicalPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %w", apperrors.ErrBlobIO, err)
}

// ModTime returns the modification time of the blob.
func (ls *LocalStorage) ModTime(blobPath string) (time.Time, error) {
	physicalPath := ls.GetFullPath(blobPath)
	if physicalPath == "" {
		return time.Time{}, ErrFileNotFound
	}

	info, err := os.Stat(physicalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, ErrFileNotFound
		}
		return time.Time{}, fmt.Errorf("%w: %w", apperrors.ErrBlobIO, err)
	}
	return info.ModTime(), nil
}

// List returns the public paths of every stored blob, sorted.
func (ls *LocalStorage) List() ([]string, error) {
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read storage directory: %w", apperrors.ErrBlobIO, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, path.Join(ls.publicURL, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// GetFullPath maps a public blob path to the file inside basePath. Only the
// base name is used, so the result never leaves the storage directory.
func (ls *LocalStorage) GetFullPath(blobPath string) string {
	if strings.TrimSpace(blobPath) == "" {
		return ""
	}
	filename := path.Base(filepath.ToSlash(blobPath))
	if filename == "" || filename == "." || filename == "/" || filename == ".." {
		return ""
	}
	return filepath.Join(ls.basePath, filename)
}
