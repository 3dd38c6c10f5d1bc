// Package pdf decodes PDF files for ingestion.
//
// Page text comes from github.com/ledongthuc/pdf. Embedded images are
// extracted with pdfcpu, which is only loaded the first time a page's images
// are requested. Both libraries signal malformed input by panicking in
// places, so every call into them recovers and reports an error instead.
package pdf
