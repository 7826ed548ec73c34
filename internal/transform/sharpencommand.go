package transform

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
)

// SharpenParams represents typed parameters for the sharpen command
type SharpenParams struct {
	Factor    float64
	Radius    float64
	Threshold int
}

// NewSharpenParamsFromMap creates SharpenParams from a generic map
func NewSharpenParamsFromMap(params map[string]any) (*SharpenParams, error) {
	factor := GetFloatParam(params, "factor", 2.0)
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("factor must be a finite number")
	}
	if factor <= 0 {
		return nil, fmt.Errorf("factor must be greater than 0, got %v", factor)
	}
	if factor > maxAdjustmentFactor {
		return nil, fmt.Errorf("factor must be at most %v, got %v", maxAdjustmentFactor, factor)
	}

	radius := GetFloatParam(params, "radius", 2.0)
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("radius must be a finite number")
	}
	if radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %v", radius)
	}
	if radius > maxBlurRadius {
		return nil, fmt.Errorf("radius must be at most %v, got %v", maxBlurRadius, radius)
	}

	threshold := GetIntParam(params, "threshold", 3)
	if threshold < 0 || threshold > 255 {
		return nil, fmt.Errorf("threshold must be between 0 and 255, got %d", threshold)
	}

	return &SharpenParams{
		Factor:    factor,
		Radius:    radius,
		Threshold: threshold,
	}, nil
}

// SharpenCommand sharpens with an unsharp mask: the gaussian-blurred
// image is subtracted from the source and the difference, scaled by
// the factor, is added back with clamping. Channel differences below
// the threshold are left untouched so flat areas do not pick up noise.
// Alpha is unchanged.
type SharpenCommand struct {
	name   string
	params *SharpenParams
}

// NewSharpenCommand creates a new sharpen command from configuration parameters
func NewSharpenCommand(params map[string]any) (Command, error) {
	typedParams, err := NewSharpenParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &SharpenCommand{
		name:   "sharpen",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *SharpenCommand) Name() string {
	return c.name
}

// Apply sharpens the image
func (c *SharpenCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("sharpen: %w", err)
	}

	slog.Debug("SharpenCommand: sharpening",
		"factor", c.params.Factor,
		"radius", c.params.Radius,
		"threshold", c.params.Threshold,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	src := toNRGBA(img)
	blurred := gaussianBlur(src, c.params.Radius)

	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			pixel := src.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			soft := blurred.NRGBAAt(x, y)
			dst.SetNRGBA(x, y, color.NRGBA{
				R: sharpenChannel(pixel.R, soft.R, c.params.Factor, c.params.Threshold),
				G: sharpenChannel(pixel.G, soft.G, c.params.Factor, c.params.Threshold),
				B: sharpenChannel(pixel.B, soft.B, c.params.Factor, c.params.Threshold),
				A: pixel.A,
			})
		}
	}
	return dst, nil
}

// GetParams returns the typed parameters
func (c *SharpenCommand) GetParams() *SharpenParams {
	return c.params
}

func sharpenChannel(value, blurred uint8, factor float64, threshold int) uint8 {
	diff := int(value) - int(blurred)
	if diff > -threshold && diff < threshold {
		return value
	}
	return clampChannel(float64(value) + float64(diff)*factor)
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("sharpen", NewSharpenCommand); err != nil {
		panic(fmt.Sprintf("failed to register sharpen command: %v", err))
	}
}
