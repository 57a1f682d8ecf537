// Package config reads the viewer's settings from flags and the environment.
package config

import (
	"flag"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	// MaxFramesInFlight bounds the number of frame slots.
	MaxFramesInFlight = 4

	validationEnv = "VK_VALIDATION"
)

// Config holds everything the viewer needs at startup.
type Config struct {
	Title          string
	Width          int
	Height         int
	ModelPath      string
	TexturePath    string
	ShaderDir      string
	FramesInFlight int
	Validation     bool
	LogLevel       string
}

// Default returns the built-in settings, with validation controlled by the
// VK_VALIDATION environment variable.
func Default() Config {
	return Config{
		Title:          "Vulkan",
		Width:          800,
		Height:         600,
		ModelPath:      "data/meshes/chalet.obj",
		TexturePath:    "data/textures/chalet.jpg",
		ShaderDir:      "data/shaders",
		FramesInFlight: 2,
		Validation:     validationFromEnv(os.Getenv(validationEnv)),
		LogLevel:       "info",
	}
}

// validationFromEnv enables validation unless the value is an explicit no.
func validationFromEnv(val string) bool {
	switch val {
	case "0", "false", "False", "FALSE":
		return false
	default:
		return true
	}
}

// Parse reads flags from args (without the program name) on top of Default.
func Parse(args []string, output io.Writer) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet("vkmodel", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Title, "title", cfg.Title, "window title")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "initial window width in pixels")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "initial window height in pixels")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Wavefront OBJ model to render")
	fs.StringVar(&cfg.TexturePath, "texture", cfg.TexturePath, "texture image applied to the model")
	fs.StringVar(&cfg.ShaderDir, "shaders", cfg.ShaderDir, "directory holding vert.spv and frag.spv")
	fs.IntVar(&cfg.FramesInFlight, "frames", cfg.FramesInFlight, "frames the CPU may record ahead of the GPU")
	fs.BoolVar(&cfg.Validation, "validation", cfg.Validation, "enable Vulkan validation layers (default from "+validationEnv+")")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(err, "parse flags")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("window size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FramesInFlight < 1 || c.FramesInFlight > MaxFramesInFlight {
		return errors.Errorf("frames in flight must be in [1, %d], got %d", MaxFramesInFlight, c.FramesInFlight)
	}
	if c.ModelPath == "" {
		return errors.New("model path is empty")
	}
	if c.TexturePath == "" {
		return errors.New("texture path is empty")
	}
	return nil
}
