package filestorage

import (
	"fmt"
	"mime"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
)

const pdfMIME = "application/pdf"

// DefaultMaxPDFSize is the upload limit when none is configured.
const DefaultMaxPDFSize int64 = 10 << 20

// PDFValidator accepts a single PDF upload up to MaxSize bytes. Both the
// declared Content-Type and the sniffed content must be application/pdf.
type PDFValidator struct {
	MaxSize int64
}

// NewPDFValidator creates a validator; a non-positive size uses the default.
func NewPDFValidator(maxSize int64) PDFValidator {
	if maxSize <= 0 {
		maxSize = DefaultMaxPDFSize
	}
	return PDFValidator{MaxSize: maxSize}
}

// Validate returns an ErrUploadRejected error describing the first problem found.
func (v PDFValidator) Validate(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return apperrors.ErrMissingUploadFile
	}

	if fileHeader.Size > v.MaxSize {
		return apperrors.NewCustomError(apperrors.ErrUploadRejected,
			fmt.Sprintf("file exceeds the %d MB limit", v.MaxSize>>20)).WithCode("FILE_TOO_LARGE")
	}

	declared := fileHeader.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(declared); err != nil || mediaType != pdfMIME {
		return apperrors.NewCustomError(apperrors.ErrUploadRejected, "only PDF files are allowed").
			WithCode("INVALID_FILE_TYPE")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("%w: failed to open uploaded file: %w", apperrors.ErrBlobIO, err)
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("%w: failed to inspect uploaded file: %w", apperrors.ErrBlobIO, err)
	}
	if !detected.Is(pdfMIME) {
		return apperrors.NewCustomError(apperrors.ErrUploadRejected, "file content is not a PDF").
			WithCode("INVALID_FILE_TYPE")
	}
	return nil
}
