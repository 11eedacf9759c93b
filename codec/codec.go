// Package codec centralizes value encoding and snapshot compression.
//
// Codecs encode structured values (CLI output, diagnostics). Compression
// codecs shrink snapshot payloads; the selected Compression is recorded in
// every snapshot header so older snapshots stay readable after the default
// changes.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the default codec used by the library.
var Default Codec = Sonnet{}
