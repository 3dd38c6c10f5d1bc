package domain

import "image"

// OCRInput is the image handed to an OCR engine.
// Exactly one of Data, Image or Path is expected to be set;
// when several are set Data wins, then Image, then Path.
type OCRInput struct {
	// Data holds encoded image bytes (png, jpeg, tiff, ...).
	Data []byte

	// Image is an already decoded image.
	Image image.Image

	// Path points at an image file owned by the caller. It is never deleted.
	Path string
}

// Empty reports whether no input was provided.
func (in OCRInput) Empty() bool {
	return len(in.Data) == 0 && in.Image == nil && in.Path == ""
}
