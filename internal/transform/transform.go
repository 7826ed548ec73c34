package transform

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Command is a pure pixel transformation. It performs no I/O and
// knows nothing about storage or identifiers.
type Command interface {
	Name() string
	Apply(img image.Image) (image.Image, error)
}

// CommandFactory creates a command from configuration parameters. The
// factory validates parameter ranges, so a command that was created
// successfully is safe to apply.
type CommandFactory func(params map[string]any) (Command, error)

// Spec names a transform operation and its parameters.
type Spec struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Compile resolves a spec against the default registry, range-checking
// every parameter before any pixel data is touched.
func Compile(spec Spec) (Command, error) {
	return DefaultRegistry.Create(spec.Name, spec.Params)
}

// CommandRegistry manages the registration and creation of transform commands
type CommandRegistry struct {
	factories map[string]CommandFactory
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		factories: make(map[string]CommandFactory),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory CommandFactory) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("command factory cannot be nil")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("command %s is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a command by name with the given parameters
func (r *CommandRegistry) Create(name string, params map[string]any) (Command, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown command: %s", name)
	}

	command, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create command %s: %w", name, err)
	}

	return command, nil
}

// IsRegistered checks if a command with the given name is registered
func (r *CommandRegistry) IsRegistered(name string) bool {
	_, exists := r.factories[name]
	return exists
}

// GetRegisteredNames returns a list of all registered command names
func (r *CommandRegistry) GetRegisteredNames() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry is a global registry instance with the supported commands pre-registered
var DefaultRegistry = NewCommandRegistry()

// GetIntParam safely extracts an int parameter from the params map
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// GetFloatParam safely extracts a float parameter from the params map
func GetFloatParam(params map[string]any, key string, defaultValue float64) float64 {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return defaultValue
}

// GetBoolParam safely extracts a bool parameter from the params map
func GetBoolParam(params map[string]any, key string, defaultValue bool) bool {
	if val, ok := params[key]; ok {
		if boolVal, ok := val.(bool); ok {
			return boolVal
		}
	}
	return defaultValue
}

// ValidateRequiredParams checks that all required parameters are present
func ValidateRequiredParams(params map[string]any, required []string) error {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required parameter: %s", key)
		}
	}
	return nil
}

// checkBuffer rejects pixel buffers a command cannot operate on.
// Commands return this as an error instead of producing undefined
// output.
func checkBuffer(img image.Image) error {
	if img == nil {
		return fmt.Errorf("pixel buffer is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return fmt.Errorf("pixel buffer has empty bounds %v", bounds)
	}
	return nil
}

// toRGBA copies arbitrary pixel data into an RGBA buffer so commands
// can address channels directly.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// toNRGBA copies arbitrary pixel data into a straight-alpha buffer.
// Channel filters must scale unassociated values: scaling
// premultiplied channels past the alpha value produces an invalid
// color that shifts hue on re-encode.
func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	return nrgba
}

// clampChannel clamps a channel value to the valid 8-bit range,
// preventing overflow wraparound.
func clampChannel(value float64) uint8 {
	if value < 0 {
		return 0
	}
	if value > 255 {
		return 255
	}
	return uint8(value + 0.5)
}

// mapPixels applies a per-pixel channel recombination to an image,
// leaving alpha untouched. It operates on straight-alpha channels so
// transparency survives the recombination unchanged.
func mapPixels(img image.Image, fn func(r, g, b float64) (float64, float64, float64)) *image.NRGBA {
	src := toNRGBA(img)
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixel := src.NRGBAAt(x, y)
			r, g, b := fn(float64(pixel.R), float64(pixel.G), float64(pixel.B))
			dst.SetNRGBA(x, y, color.NRGBA{
				R: clampChannel(r),
				G: clampChannel(g),
				B: clampChannel(b),
				A: pixel.A,
			})
		}
	}
	return dst
}
