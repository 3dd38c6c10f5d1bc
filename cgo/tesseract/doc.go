// Package tesseract provides CGO bindings for the Tesseract OCR library
// through gosseract. It implements the driven.OCREngine interface.
//
// The binding is only compiled with both cgo and the tesseract build tag,
// so default builds do not need the native libraries:
//
//	go build -tags tesseract ./...
//
// Build requires:
//   - Tesseract and Leptonica development libraries
//   - Install via: brew install tesseract (macOS) or apt install libtesseract-dev (Linux)
package tesseract
