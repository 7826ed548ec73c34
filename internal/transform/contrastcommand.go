package transform

import (
	"fmt"
	"image"
	"log/slog"
)

// contrastMidpoint is the channel value contrast scaling pivots
// around.
const contrastMidpoint = 128.0

// ContrastParams represents typed parameters for the contrast command
type ContrastParams struct {
	Factor float64
}

// NewContrastParamsFromMap creates ContrastParams from a generic map
func NewContrastParamsFromMap(params map[string]any) (*ContrastParams, error) {
	// Validate required parameters exist
	if err := ValidateRequiredParams(params, []string{"factor"}); err != nil {
		return nil, err
	}

	factor := GetFloatParam(params, "factor", 0)
	if factor <= 0 {
		return nil, fmt.Errorf("factor must be greater than 0, got %v", factor)
	}
	if factor > maxAdjustmentFactor {
		return nil, fmt.Errorf("factor must be at most %v, got %v", maxAdjustmentFactor, factor)
	}

	return &ContrastParams{Factor: factor}, nil
}

// ContrastCommand scales channel distance from the midpoint, clamping
// to the valid channel range so values never wrap around.
type ContrastCommand struct {
	name   string
	params *ContrastParams
}

// NewContrastCommand creates a new contrast command from configuration parameters
func NewContrastCommand(params map[string]any) (Command, error) {
	typedParams, err := NewContrastParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ContrastCommand{
		name:   "contrast",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ContrastCommand) Name() string {
	return c.name
}

// Apply scales channel distance from the midpoint by the configured factor
func (c *ContrastCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("contrast: %w", err)
	}

	slog.Debug("ContrastCommand: adjusting contrast",
		"factor", c.params.Factor,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	factor := c.params.Factor
	return mapPixels(img, func(r, g, b float64) (float64, float64, float64) {
		return (r-contrastMidpoint)*factor + contrastMidpoint,
			(g-contrastMidpoint)*factor + contrastMidpoint,
			(b-contrastMidpoint)*factor + contrastMidpoint
	}), nil
}

// GetParams returns the typed parameters
func (c *ContrastCommand) GetParams() *ContrastParams {
	return c.params
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("contrast", NewContrastCommand); err != nil {
		panic(fmt.Sprintf("failed to register contrast command: %v", err))
	}
}
