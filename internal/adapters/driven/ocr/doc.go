// Package ocr provides OCR engines that implement driven.OCREngine.
//
//   - Tesseract: runs the tesseract binary per image with a timeout,
//     inside a private temporary directory that is always removed
//   - Throttled: wraps any engine with a request rate limit
//   - Noop: returns no text, used when OCR is disabled
//
// The in-process libtesseract engine lives in cgo/tesseract because it
// needs cgo and the tesseract development headers.
//
// Engines never fail hard: timeouts, oversized images and engine errors
// produce an empty string and a log line.
package ocr
