package transform

import (
	"fmt"
	"image"
	"log/slog"

	xdraw "golang.org/x/image/draw"
)

// maxTargetDimension bounds resize targets so a single request cannot
// allocate an arbitrarily large canvas.
const maxTargetDimension = 8192

// ResizeParams represents typed parameters for the resize command
type ResizeParams struct {
	Width  int
	Height int
}

// NewResizeParamsFromMap creates ResizeParams from a generic map
func NewResizeParamsFromMap(params map[string]any) (*ResizeParams, error) {
	// Validate required parameters exist
	if err := ValidateRequiredParams(params, []string{"width", "height"}); err != nil {
		return nil, err
	}

	width := GetIntParam(params, "width", 0)
	height := GetIntParam(params, "height", 0)

	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}
	if height <= 0 {
		return nil, fmt.Errorf("height must be positive, got %d", height)
	}
	if width > maxTargetDimension || height > maxTargetDimension {
		return nil, fmt.Errorf("target dimensions %dx%d exceed the maximum %d", width, height, maxTargetDimension)
	}

	return &ResizeParams{
		Width:  width,
		Height: height,
	}, nil
}

// ResizeCommand resamples the image to exactly the requested integer
// dimensions using bilinear interpolation. Aspect ratio is the
// caller's responsibility, not enforced here.
type ResizeCommand struct {
	name   string
	params *ResizeParams
}

// NewResizeCommand creates a new resize command from configuration parameters
func NewResizeCommand(params map[string]any) (Command, error) {
	typedParams, err := NewResizeParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ResizeCommand{
		name:   "resize",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ResizeCommand) Name() string {
	return c.name
}

// Apply resamples the image to the target dimensions
func (c *ResizeCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}

	bounds := img.Bounds()
	slog.Debug("ResizeCommand: resampling",
		"source_width", bounds.Dx(),
		"source_height", bounds.Dy(),
		"target_width", c.params.Width,
		"target_height", c.params.Height)

	dst := image.NewRGBA(image.Rect(0, 0, c.params.Width, c.params.Height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)

	return dst, nil
}

// GetParams returns the typed parameters
func (c *ResizeCommand) GetParams() *ResizeParams {
	return c.params
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("resize", NewResizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register resize command: %v", err))
	}
}
