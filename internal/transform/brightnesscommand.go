package transform

import (
	"fmt"
	"image"
	"log/slog"
)

// maxAdjustmentFactor bounds brightness and contrast factors. A
// factor of 1.0 leaves the image unchanged.
const maxAdjustmentFactor = 10.0

// BrightnessParams represents typed parameters for the brightness command
type BrightnessParams struct {
	Factor float64
}

// NewBrightnessParamsFromMap creates BrightnessParams from a generic map
func NewBrightnessParamsFromMap(params map[string]any) (*BrightnessParams, error) {
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

	return &BrightnessParams{Factor: factor}, nil
}

// BrightnessCommand scales every channel linearly, clamping to the
// valid channel range so values never wrap around.
type BrightnessCommand struct {
	name   string
	params *BrightnessParams
}

// NewBrightnessCommand creates a new brightness command from configuration parameters
func NewBrightnessCommand(params map[string]any) (Command, error) {
	typedParams, err := NewBrightnessParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &BrightnessCommand{
		name:   "brightness",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *BrightnessCommand) Name() string {
	return c.name
}

// Apply scales channel values by the configured factor
func (c *BrightnessCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("brightness: %w", err)
	}

	slog.Debug("BrightnessCommand: adjusting brightness",
		"factor", c.params.Factor,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	factor := c.params.Factor
	return mapPixels(img, func(r, g, b float64) (float64, float64, float64) {
		return r * factor, g * factor, b * factor
	}), nil
}

// GetParams returns the typed parameters
func (c *BrightnessCommand) GetParams() *BrightnessParams {
	return c.params
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("brightness", NewBrightnessCommand); err != nil {
		panic(fmt.Sprintf("failed to register brightness command: %v", err))
	}
}
