package transform

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
)

// RotateParams represents typed parameters for the rotate command
type RotateParams struct {
	Degrees float64
	Expand  bool
}

// NewRotateParamsFromMap creates RotateParams from a generic map
func NewRotateParamsFromMap(params map[string]any) (*RotateParams, error) {
	// Validate required parameters exist
	if err := ValidateRequiredParams(params, []string{"degrees"}); err != nil {
		return nil, err
	}

	degrees := GetFloatParam(params, "degrees", 0)
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return nil, fmt.Errorf("degrees must be a finite number")
	}

	return &RotateParams{
		Degrees: degrees,
		Expand:  GetBoolParam(params, "expand", false),
	}, nil
}

// RotateCommand rotates the image counterclockwise about its center.
// With expand=false the canvas keeps the input dimensions and corners
// may be clipped; with expand=true the canvas is the minimal bounding
// box of the rotated content, symmetric around the center. Newly
// exposed canvas pixels are fully transparent (black once re-encoded
// to a format without an alpha channel). Sampling is bilinear, except
// exact multiples of 90 degrees which map nearest so right-angle
// rotations stay lossless.
type RotateCommand struct {
	name   string
	params *RotateParams
}

// NewRotateCommand creates a new rotate command from configuration parameters
func NewRotateCommand(params map[string]any) (Command, error) {
	typedParams, err := NewRotateParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &RotateCommand{
		name:   "rotate",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *RotateCommand) Name() string {
	return c.name
}

// Apply rotates the image
func (c *RotateCommand) Apply(img image.Image) (image.Image, error) {
	if err := checkBuffer(img); err != nil {
		return nil, fmt.Errorf("rotate: %w", err)
	}

	src := toRGBA(img)
	srcWidth := src.Bounds().Dx()
	srcHeight := src.Bounds().Dy()

	radians := c.params.Degrees * math.Pi / 180
	sin, cos := math.Sincos(radians)

	dstWidth, dstHeight := srcWidth, srcHeight
	if c.params.Expand {
		// Minimal bounding box containing the fully rotated content
		dstWidth = int(math.Round(math.Abs(float64(srcWidth)*cos) + math.Abs(float64(srcHeight)*sin)))
		dstHeight = int(math.Round(math.Abs(float64(srcWidth)*sin) + math.Abs(float64(srcHeight)*cos)))
		if dstWidth < 1 {
			dstWidth = 1
		}
		if dstHeight < 1 {
			dstHeight = 1
		}
	}

	rightAngle := isRightAngle(c.params.Degrees)

	slog.Debug("RotateCommand: rotating",
		"degrees", c.params.Degrees,
		"expand", c.params.Expand,
		"source_width", srcWidth,
		"source_height", srcHeight,
		"target_width", dstWidth,
		"target_height", dstHeight,
		"right_angle", rightAngle)

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))

	srcCenterX := float64(srcWidth) / 2
	srcCenterY := float64(srcHeight) / 2
	dstCenterX := float64(dstWidth) / 2
	dstCenterY := float64(dstHeight) / 2

	for y := 0; y < dstHeight; y++ {
		for x := 0; x < dstWidth; x++ {
			// Inverse mapping: rotate the output pixel center back
			// into source coordinates.
			dx := float64(x) + 0.5 - dstCenterX
			dy := float64(y) + 0.5 - dstCenterY
			srcX := dx*cos - dy*sin + srcCenterX - 0.5
			srcY := dx*sin + dy*cos + srcCenterY - 0.5

			if rightAngle {
				nearestX := int(math.Round(srcX))
				nearestY := int(math.Round(srcY))
				if nearestX >= 0 && nearestX < srcWidth && nearestY >= 0 && nearestY < srcHeight {
					dst.SetRGBA(x, y, src.RGBAAt(nearestX, nearestY))
				}
				continue
			}

			if srcX > -1 && srcX < float64(srcWidth) && srcY > -1 && srcY < float64(srcHeight) {
				dst.SetRGBA(x, y, sampleBilinear(src, srcX, srcY))
			}
		}
	}

	return dst, nil
}

// GetParams returns the typed parameters
func (c *RotateCommand) GetParams() *RotateParams {
	return c.params
}

func isRightAngle(degrees float64) bool {
	remainder := math.Mod(degrees, 90)
	const epsilon = 1e-9
	return math.Abs(remainder) < epsilon || math.Abs(math.Abs(remainder)-90) < epsilon
}

// sampleBilinear interpolates the four pixels around a fractional
// source coordinate. Samples outside the source contribute nothing,
// which feathers edge pixels into the transparent fill.
func sampleBilinear(src *image.RGBA, x, y float64) color.RGBA {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var r, g, b, a float64
	for dy := 0; dy <= 1; dy++ {
		for dx := 0; dx <= 1; dx++ {
			px := x0 + dx
			py := y0 + dy
			if px < 0 || px >= src.Bounds().Dx() || py < 0 || py >= src.Bounds().Dy() {
				continue
			}
			weightX := 1 - fx
			if dx == 1 {
				weightX = fx
			}
			weightY := 1 - fy
			if dy == 1 {
				weightY = fy
			}
			weight := weightX * weightY

			pixel := src.RGBAAt(px, py)
			r += float64(pixel.R) * weight
			g += float64(pixel.G) * weight
			b += float64(pixel.B) * weight
			a += float64(pixel.A) * weight
		}
	}

	return color.RGBA{
		R: clampChannel(r),
		G: clampChannel(g),
		B: clampChannel(b),
		A: clampChannel(a),
	}
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("rotate", NewRotateCommand); err != nil {
		panic(fmt.Sprintf("failed to register rotate command: %v", err))
	}
}
