package transform

import (
	"fmt"
	"image"
	"log/slog"
)

// SepiaCommand applies the classic sepia tone matrix with clamping;
// channel depth is unchanged.
type SepiaCommand struct {
	name string
}

// NewSepiaCommand creates a new sepia command (no parameters)
func NewSepiaCommand(params map[string]any) (Command, error) {
	return &SepiaCommand{name: "sepia"}, nil
}

// Name returns the command name
func (c *SepiaCommand) Name() string {
	return c.name
}

// Apply tones the image sepia
func (c *SepiaCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("sepia: %w", err)
	}

	slog.Debug("SepiaCommand: applying sepia tone",
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	return mapPixels(img, func(r, g, b float64) (float64, float64, float64) {
		return 0.393*r + 0.769*g + 0.189*b,
			0.349*r + 0.686*g + 0.168*b,
			0.272*r + 0.534*g + 0.131*b
	}), nil
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("sepia", NewSepiaCommand); err != nil {
		panic(fmt.Sprintf("failed to register sepia command: %v", err))
	}
}
