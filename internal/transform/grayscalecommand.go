package transform

import (
	"fmt"
	"image"
	"log/slog"
)

// GrayscaleCommand recombines channels into luminance using the
// BT.601 weights; channel depth is unchanged.
type GrayscaleCommand struct {
	name string
}

// NewGrayscaleCommand creates a new grayscale command (no parameters)
func NewGrayscaleCommand(params map[string]any) (Command, error) {
	return &GrayscaleCommand{name: "grayscale"}, nil
}

// Name returns the command name
func (c *GrayscaleCommand) Name() string {
	return c.name
}

// Apply converts the image to grayscale
func (c *GrayscaleCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}

	slog.Debug("GrayscaleCommand: converting to grayscale",
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	return mapPixels(img, func(r, g, b float64) (float64, float64, float64) {
		luma := 0.299*r + 0.587*g + 0.114*b
		return luma, luma, luma
	}), nil
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("grayscale", NewGrayscaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register grayscale command: %v", err))
	}
}
