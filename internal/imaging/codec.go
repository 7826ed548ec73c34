package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	_ "golang.org/x/image/webp"
)

// Format identifies a supported image container format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatWebP Format = "webp"
	FormatSVG  Format = "svg"
)

// jpegQuality matches the quality the original uploads were saved with.
const jpegQuality = 95

var formatMIMEs = map[Format]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatGIF:  "image/gif",
	FormatBMP:  "image/bmp",
	FormatTIFF: "image/tiff",
	FormatWebP: "image/webp",
	FormatSVG:  "image/svg+xml",
}

// MIME returns the MIME type for the format, or application/octet-stream
// for an unknown one.
func (f Format) MIME() string {
	if mime, ok := formatMIMEs[f]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Sniff identifies the format of raw bytes from their signature. It
// never decodes pixel data.
func Sniff(data []byte) (Format, bool) {
	switch {
	case hasPNGSignature(data):
		return FormatPNG, true
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG, true
	case len(data) >= 6 && (bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))):
		return FormatGIF, true
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return FormatBMP, true
	case len(data) >= 4 && (bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}) || bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A})):
		return FormatTIFF, true
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP, true
	case isSVGData(data):
		return FormatSVG, true
	default:
		return "", false
	}
}

// hasPNGSignature checks whether the provided data begins with a valid PNG signature
func hasPNGSignature(data []byte) bool {
	// PNG signature: 0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	if len(data) < 8 {
		return false
	}
	expected := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return bytes.Equal(data[:8], expected)
}

// isSVGData performs a lightweight detection of SVG content from raw bytes.
// It checks for "<svg" tag or SVG namespace in the initial portion of the data.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	// Only inspect the first ~4KB for detection
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	head := strings.ToLower(string(data[:n]))
	return strings.Contains(head, "<svg") || strings.Contains(head, "http://www.w3.org/2000/svg")
}

// DecodeConfig reads only the header of a raster stream and reports
// its dimensions without decoding pixel data.
func DecodeConfig(data []byte) (width int, height int, err error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return config.Width, config.Height, nil
}

// Decode decodes raster bytes into pixel data.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Encode re-encodes pixel data in the given container format. WebP and
// SVG are decode-only; uploads in those formats are normalized to PNG
// before they reach storage, so Encode never sees them.
func Encode(img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("format %s is not encodable", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", format, err)
	}
	return buf.Bytes(), nil
}

// svgRenderSize extracts explicit width/height attributes from the SVG
// start tag. SVGs without explicit pixel dimensions render at the
// provided fallback edge length.
func svgRenderSize(data []byte, fallbackEdge int) (int, int) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	head := strings.ToLower(string(data[:n]))
	start := strings.Index(head, "<svg")
	if start < 0 {
		return fallbackEdge, fallbackEdge
	}
	end := strings.Index(head[start:], ">")
	if end < 0 {
		end = len(head)
	} else {
		end = start + end
	}
	tag := head[start:end]

	width, widthOK := parseNumericAttr(tag, "width")
	height, heightOK := parseNumericAttr(tag, "height")
	if widthOK && heightOK && width > 0 && height > 0 {
		return width, height
	}
	return fallbackEdge, fallbackEdge
}

// parseNumericAttr extracts the leading numeric value of an attribute (e.g., width="123px").
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, attr+"=")
	if pos < 0 {
		return 0, false
	}
	rest := tag[pos+len(attr)+1:]
	if len(rest) == 0 {
		return 0, false
	}
	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return 0, false
	}
	rest = rest[1:]
	end := strings.IndexByte(rest, quote)
	if end < 0 {
		return 0, false
	}
	value := rest[:end]

	digits := 0
	result := 0
	for digits < len(value) && value[digits] >= '0' && value[digits] <= '9' {
		result = result*10 + int(value[digits]-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	return result, true
}

// RenderSVG rasterizes SVG bytes onto a white canvas of the given size.
func RenderSVG(data []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", width, height)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	// Set drawing target rectangle
	icon.SetTarget(0, 0, float64(width), float64(height))

	// Prepare target canvas (white background)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	// Rasterize SVG into the target canvas
	scanner := rasterx.NewScannerGV(width, height, dst, dst.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)

	return dst, nil
}
