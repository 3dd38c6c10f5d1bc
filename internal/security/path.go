package security

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// pdfMagic is the signature every PDF file starts with.
var pdfMagic = []byte("%PDF")

// ValidateFilePath checks that path names an existing, readable regular file.
func ValidateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.NewValidationError(path, "empty path")
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.NewValidationError(path, "file does not exist")
		}
		return domain.NewValidationError(path, "cannot stat file: "+err.Error())
	}
	if !info.Mode().IsRegular() {
		return domain.NewValidationError(path, "not a regular file")
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.NewValidationError(path, "file is not readable")
	}
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError(path, "file is not readable")
	}
	return nil
}

// ValidateFolderPath checks that path names an existing, listable directory.
func ValidateFolderPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.NewValidationError(path, "empty path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.NewValidationError(path, "folder does not exist")
	}
	if !info.IsDir() {
		return domain.NewValidationError(path, "not a directory")
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.NewValidationError(path, "folder is not readable")
	}
	defer f.Close()

	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError(path, "folder is not readable")
	}
	return nil
}

// HasPDFSignature reports whether data starts with the PDF magic bytes.
func HasPDFSignature(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// ValidatePDFSignature checks the magic bytes at the start of the file.
func ValidatePDFSignature(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return domain.NewValidationError(path, "file is not readable")
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return domain.NewValidationError(path, "file too short to be a PDF")
	}
	if !HasPDFSignature(head) {
		return domain.NewValidationError(path, "missing %PDF signature")
	}
	return nil
}

// IsPDFName reports whether the file name has a .pdf extension, in any case.
func IsPDFName(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ValidatePDFFile runs the path, extension and signature checks in order.
func ValidatePDFFile(path string) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}
	if !IsPDFName(path) {
		return domain.NewValidationError(path, "not a .pdf file")
	}
	return ValidatePDFSignature(path)
}

// ValidateFileSize rejects files larger than maxBytes. maxBytes <= 0 disables the check.
func ValidateFileSize(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.NewValidationError(path, "cannot stat file")
	}
	if info.Size() > maxBytes {
		return domain.NewValidationError(path, "file exceeds size limit")
	}
	return nil
}
