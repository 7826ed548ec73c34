package imaging

import (
	"fmt"
	"image"
	"log/slog"
)

// Validation check names, reported back to callers so they can tell
// which gate rejected the upload.
const (
	CheckSize       = "size"
	CheckFormat     = "format"
	CheckDimensions = "dimensions"
	CheckMIME       = "mime"
)

// svgFallbackEdge is the render edge for SVGs without explicit pixel
// dimensions.
const svgFallbackEdge = 512

// ValidationError reports input rejected by a named check. It is
// returned, never panicked; callers branch on the result.
type ValidationError struct {
	Check  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s check failed: %s", e.Check, e.Reason)
}

// DecodedUpload is a validated upload ready for persistence. Data
// holds the bytes to store: the original stream for natively
// re-encodable formats, a PNG rendition for decode-only inputs
// (WebP, SVG).
type DecodedUpload struct {
	Data   []byte
	Image  image.Image
	Format Format
	MIME   string
	Width  int
	Height int
}

// Validator is the stateless validation gate in front of storage. It
// holds no per-request state and is safe to share across concurrent
// requests.
type Validator struct {
	maxBytes  int64
	maxWidth  int
	maxHeight int
	allowed   map[Format]bool
}

// NewValidator builds the gate. An empty allowedFormats list permits
// every supported format.
func NewValidator(maxBytes int64, maxWidth, maxHeight int, allowedFormats []string) *Validator {
	allowed := make(map[Format]bool, len(allowedFormats))
	for _, format := range allowedFormats {
		allowed[Format(format)] = true
	}
	if len(allowed) == 0 {
		for format := range formatMIMEs {
			allowed[format] = true
		}
	}
	return &Validator{
		maxBytes:  maxBytes,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		allowed:   allowed,
	}
}

// ValidateUpload gates raw uploaded bytes: size cap, supported and
// allowed format signature, declared-vs-actual MIME agreement, and
// decoded dimensions within the configured maxima. Dimensions are
// checked from the stream header before any pixel data is decoded, so
// decompression bombs are rejected without allocating their pixels.
func (v *Validator) ValidateUpload(data []byte, declaredMIME string) (*DecodedUpload, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Check: CheckSize, Reason: "upload is empty"}
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return nil, &ValidationError{
			Check:  CheckSize,
			Reason: fmt.Sprintf("upload is %d bytes, limit is %d", len(data), v.maxBytes),
		}
	}

	format, ok := Sniff(data)
	if !ok {
		return nil, &ValidationError{Check: CheckFormat, Reason: "byte stream is not a supported image format"}
	}
	if !v.allowed[format] {
		return nil, &ValidationError{
			Check:  CheckFormat,
			Reason: fmt.Sprintf("format %s is not in the allowed format list", format),
		}
	}
	if err := v.checkDeclaredMIME(declaredMIME, format); err != nil {
		return nil, err
	}

	if format == FormatSVG {
		return v.validateSVG(data)
	}

	width, height, err := DecodeConfig(data)
	if err != nil {
		return nil, &ValidationError{Check: CheckFormat, Reason: err.Error()}
	}
	if err := v.checkDimensions(width, height); err != nil {
		return nil, err
	}

	img, err := Decode(data)
	if err != nil {
		// Header parsed but the pixel stream is broken
		return nil, &ValidationError{Check: CheckFormat, Reason: err.Error()}
	}

	// WebP decodes but cannot be re-encoded, so the stored rendition
	// is PNG.
	if format == FormatWebP {
		normalized, err := Encode(img, FormatPNG)
		if err != nil {
			return nil, &ValidationError{Check: CheckFormat, Reason: err.Error()}
		}
		slog.Debug("normalized webp upload to png",
			"original_size_bytes", len(data),
			"normalized_size_bytes", len(normalized))
		data = normalized
		format = FormatPNG
	}

	return &DecodedUpload{
		Data:   data,
		Image:  img,
		Format: format,
		MIME:   format.MIME(),
		Width:  width,
		Height: height,
	}, nil
}

func (v *Validator) validateSVG(data []byte) (*DecodedUpload, error) {
	width, height := svgRenderSize(data, svgFallbackEdge)
	if err := v.checkDimensions(width, height); err != nil {
		return nil, err
	}

	img, err := RenderSVG(data, width, height)
	if err != nil {
		return nil, &ValidationError{Check: CheckFormat, Reason: err.Error()}
	}
	normalized, err := Encode(img, FormatPNG)
	if err != nil {
		return nil, &ValidationError{Check: CheckFormat, Reason: err.Error()}
	}

	slog.Debug("rasterized svg upload to png",
		"width", width,
		"height", height,
		"normalized_size_bytes", len(normalized))

	return &DecodedUpload{
		Data:   normalized,
		Image:  img,
		Format: FormatPNG,
		MIME:   FormatPNG.MIME(),
		Width:  width,
		Height: height,
	}, nil
}

// checkDeclaredMIME verifies the client's declared content type agrees
// with the sniffed format. Missing and generic declarations are
// accepted; a concrete mismatch is not.
func (v *Validator) checkDeclaredMIME(declaredMIME string, format Format) error {
	if declaredMIME == "" || declaredMIME == "application/octet-stream" {
		return nil
	}
	if declaredMIME == format.MIME() {
		return nil
	}
	// image/jpg is a common non-standard alias
	if declaredMIME == "image/jpg" && format == FormatJPEG {
		return nil
	}
	return &ValidationError{
		Check:  CheckMIME,
		Reason: fmt.Sprintf("declared type %s does not match detected type %s", declaredMIME, format.MIME()),
	}
}

func (v *Validator) checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return &ValidationError{
			Check:  CheckDimensions,
			Reason: fmt.Sprintf("image dimensions %dx%d are not positive", width, height),
		}
	}
	if width > v.maxWidth || height > v.maxHeight {
		return &ValidationError{
			Check:  CheckDimensions,
			Reason: fmt.Sprintf("image dimensions %dx%d exceed the maximum %dx%d", width, height, v.maxWidth, v.maxHeight),
		}
	}
	return nil
}
