package transform

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
)

// maxBlurRadius bounds the gaussian radius so a single request cannot
// turn into an arbitrarily wide convolution.
const maxBlurRadius = 50.0

// BlurParams represents typed parameters for the blur command
type BlurParams struct {
	Radius float64
}

// NewBlurParamsFromMap creates BlurParams from a generic map
func NewBlurParamsFromMap(params map[string]any) (*BlurParams, error) {
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

	return &BlurParams{Radius: radius}, nil
}

// BlurCommand applies a gaussian blur, with the radius as the standard
// deviation and the kernel truncated at three sigma. Each channel,
// alpha included, is convolved independently on straight-alpha values;
// samples past the border repeat the edge pixel.
type BlurCommand struct {
	name   string
	params *BlurParams
}

// NewBlurCommand creates a new blur command from configuration parameters
func NewBlurCommand(params map[string]any) (Command, error) {
	typedParams, err := NewBlurParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &BlurCommand{
		name:   "blur",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *BlurCommand) Name() string {
	return c.name
}

// Apply blurs the image
func (c *BlurCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("blur: %w", err)
	}

	slog.Debug("BlurCommand: blurring",
		"radius", c.params.Radius,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	return gaussianBlur(toNRGBA(img), c.params.Radius), nil
}

// GetParams returns the typed parameters
func (c *BlurCommand) GetParams() *BlurParams {
	return c.params
}

// gaussianKernel builds normalized weights for the given standard
// deviation, truncated at three sigma.
func gaussianKernel(sigma float64) []float64 {
	half := int(math.Ceil(sigma * 3))
	if half < 1 {
		half = 1
	}
	kernel := make([]float64, 2*half+1)
	sum := 0.0
	for i := range kernel {
		offset := float64(i - half)
		kernel[i] = math.Exp(-offset * offset / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianBlur runs the separable convolution, horizontal then
// vertical.
func gaussianBlur(src *image.NRGBA, sigma float64) *image.NRGBA {
	kernel := gaussianKernel(sigma)
	tmp := convolveAxis(src, kernel, true)
	return convolveAxis(tmp, kernel, false)
}

func convolveAxis(src *image.NRGBA, kernel []float64, horizontal bool) *image.NRGBA {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	half := len(kernel) / 2
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b, a float64
			for i, weight := range kernel {
				sampleX, sampleY := x, y
				if horizontal {
					sampleX = clampIndex(x+i-half, width)
				} else {
					sampleY = clampIndex(y+i-half, height)
				}
				pixel := src.NRGBAAt(bounds.Min.X+sampleX, bounds.Min.Y+sampleY)
				r += float64(pixel.R) * weight
				g += float64(pixel.G) * weight
				b += float64(pixel.B) * weight
				a += float64(pixel.A) * weight
			}
			dst.SetNRGBA(x, y, color.NRGBA{
				R: clampChannel(r),
				G: clampChannel(g),
				B: clampChannel(b),
				A: clampChannel(a),
			})
		}
	}
	return dst
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("blur", NewBlurCommand); err != nil {
		panic(fmt.Sprintf("failed to register blur command: %v", err))
	}
}
