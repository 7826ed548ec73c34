package transform

import (
	"image"
	"image/color"
	"testing"
)

func applyTo(t *testing.T, spec Spec, img image.Image) *image.NRGBA {
	t.Helper()
	command, err := Compile(spec)
	if err != nil {
		t.Fatalf("failed to compile %s: %v", spec.Name, err)
	}
	result, err := command.Apply(img)
	if err != nil {
		t.Fatalf("failed to apply %s: %v", spec.Name, err)
	}
	return toNRGBA(result)
}

func TestGrayscaleWeights(t *testing.T) {
	tests := []struct {
		name  string
		pixel color.RGBA
		luma  uint8
	}{
		{"pure red", color.RGBA{255, 0, 0, 255}, 76},
		{"pure green", color.RGBA{0, 255, 0, 255}, 150},
		{"pure blue", color.RGBA{0, 0, 255, 255}, 29},
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"black", color.RGBA{0, 0, 0, 255}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := applyTo(t, Spec{Name: "grayscale"}, solidImage(3, 3, tt.pixel))
			got := result.NRGBAAt(1, 1)
			if got.R != tt.luma || got.G != tt.luma || got.B != tt.luma {
				t.Errorf("expected luma %d on all channels, got %v", tt.luma, got)
			}
			if got.A != tt.pixel.A {
				t.Errorf("alpha must be unchanged, got %d", got.A)
			}
		})
	}
}

func TestSepiaMatrix(t *testing.T) {
	result := applyTo(t, Spec{Name: "sepia"}, solidImage(2, 2, color.RGBA{255, 0, 0, 255}))

	got := result.NRGBAAt(0, 0)
	// 0.393/0.349/0.272 of 255, rounded
	want := color.NRGBA{100, 89, 69, 255}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSepiaClampsToChannelRange(t *testing.T) {
	result := applyTo(t, Spec{Name: "sepia"}, solidImage(2, 2, color.RGBA{255, 255, 255, 255}))

	got := result.NRGBAAt(0, 0)
	// White pushes red and green past 255; they must clamp, not wrap
	if got.R != 255 || got.G != 255 {
		t.Errorf("expected clamped channels, got %v", got)
	}
}

func TestBrightnessScalesAndClamps(t *testing.T) {
	img := solidImage(2, 2, color.RGBA{100, 150, 200, 255})

	result := applyTo(t, Spec{Name: "brightness", Params: map[string]any{"factor": 2.0}}, img)
	got := result.NRGBAAt(0, 0)
	want := color.NRGBA{200, 255, 255, 255}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}

	dimmed := applyTo(t, Spec{Name: "brightness", Params: map[string]any{"factor": 0.5}}, img)
	got = dimmed.NRGBAAt(0, 0)
	want = color.NRGBA{50, 75, 100, 255}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestContrastPivotsAroundMidpoint(t *testing.T) {
	img := solidImage(2, 2, color.RGBA{100, 128, 200, 255})

	result := applyTo(t, Spec{Name: "contrast", Params: map[string]any{"factor": 2.0}}, img)
	got := result.NRGBAAt(0, 0)
	// (100-128)*2+128 = 72, 128 stays, (200-128)*2+128 clamps to 255
	want := color.NRGBA{72, 128, 255, 255}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestContrastFactorOneIsIdentity(t *testing.T) {
	result := applyTo(t, Spec{Name: "contrast", Params: map[string]any{"factor": 1.0}}, solidImage(2, 2, color.RGBA{12, 213, 99, 255}))
	if got := result.NRGBAAt(1, 1); got != (color.NRGBA{12, 213, 99, 255}) {
		t.Errorf("expected identity at factor 1.0, got %v", got)
	}
}

// Filters must scale straight-alpha channels: scaling a premultiplied
// buffer pushes channels past the alpha value, and converting such a
// pixel back to straight alpha overflows and shifts hue.
func TestBrightnessPreservesTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{160, 40, 40, 64})
		}
	}

	command, err := Compile(Spec{Name: "brightness", Params: map[string]any{"factor": 2.0}})
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	result, err := command.Apply(img)
	if err != nil {
		t.Fatalf("failed to apply: %v", err)
	}

	nrgba, ok := result.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected straight-alpha result, got %T", result)
	}
	got := nrgba.NRGBAAt(1, 1)
	want := color.NRGBA{255, 80, 80, 64}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBlurPreservesUniformColor(t *testing.T) {
	img := solidImage(8, 8, color.RGBA{90, 140, 30, 255})

	result := applyTo(t, Spec{Name: "blur", Params: map[string]any{"radius": 2.0}}, img)
	if got := result.NRGBAAt(4, 4); got != (color.NRGBA{90, 140, 30, 255}) {
		t.Errorf("uniform input must stay uniform, got %v", got)
	}
	// Edge samples repeat the border pixel, so corners stay uniform too
	if got := result.NRGBAAt(0, 0); got != (color.NRGBA{90, 140, 30, 255}) {
		t.Errorf("expected uniform corner, got %v", got)
	}
}

func edgeImage(left, right uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 20; x++ {
			value := left
			if x >= 10 {
				value = right
			}
			img.SetNRGBA(x, y, color.NRGBA{value, value, value, 255})
		}
	}
	return img
}

func TestBlurSoftensEdges(t *testing.T) {
	result := applyTo(t, Spec{Name: "blur", Params: map[string]any{"radius": 2.0}}, edgeImage(0, 255))

	boundary := result.NRGBAAt(9, 4)
	if boundary.R == 0 || boundary.R == 255 {
		t.Errorf("expected boundary pixel blended between the halves, got %v", boundary)
	}
	if far := result.NRGBAAt(0, 4); far.R != 0 {
		t.Errorf("expected far side untouched by a radius-2 blur, got %v", far)
	}
}

func TestSharpenIncreasesEdgeContrast(t *testing.T) {
	result := applyTo(t, Spec{Name: "sharpen", Params: map[string]any{}}, edgeImage(64, 192))

	if dark := result.NRGBAAt(9, 4); dark.R >= 64 {
		t.Errorf("expected dark side of the edge pushed below 64, got %v", dark)
	}
	if bright := result.NRGBAAt(10, 4); bright.R <= 192 {
		t.Errorf("expected bright side of the edge pushed above 192, got %v", bright)
	}
}

func TestSharpenThresholdSuppressesSmallDifferences(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			value := uint8(100 + 2*(x%2))
			img.SetNRGBA(x, y, color.NRGBA{value, value, value, 255})
		}
	}

	result := applyTo(t, Spec{Name: "sharpen", Params: map[string]any{
		"factor":    5.0,
		"radius":    1.0,
		"threshold": 10,
	}}, img)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if result.NRGBAAt(x, y) != img.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) changed although the local contrast is below the threshold", x, y)
			}
		}
	}
}

func TestResizeExactDimensions(t *testing.T) {
	img := solidImage(100, 50, color.RGBA{40, 80, 120, 255})

	result := applyTo(t, Spec{Name: "resize", Params: map[string]any{"width": 50, "height": 25}}, img)
	if result.Bounds().Dx() != 50 || result.Bounds().Dy() != 25 {
		t.Fatalf("expected exactly 50x25, got %v", result.Bounds())
	}

	// Uniform input stays uniform through bilinear resampling
	if got := result.NRGBAAt(25, 12); got != (color.NRGBA{40, 80, 120, 255}) {
		t.Errorf("expected uniform color preserved, got %v", got)
	}
}

func TestResizeUpscale(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{5, 6, 7, 255})

	result := applyTo(t, Spec{Name: "resize", Params: map[string]any{"width": 30, "height": 40}}, img)
	if result.Bounds().Dx() != 30 || result.Bounds().Dy() != 40 {
		t.Fatalf("expected exactly 30x40, got %v", result.Bounds())
	}
}
