package config

import (
	"io"
	"testing"
)

func TestValidationFromEnv(t *testing.T) {
	tests := map[string]bool{
		"":      true,
		"1":     true,
		"yes":   true,
		"0":     false,
		"false": false,
		"FALSE": false,
	}
	for in, want := range tests {
		if got := validationFromEnv(in); got != want {
			t.Errorf("validationFromEnv(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultHonoursEnv(t *testing.T) {
	t.Setenv(validationEnv, "0")
	if Default().Validation {
		t.Error("Default().Validation = true with VK_VALIDATION=0, want false")
	}
}

func TestParse(t *testing.T) {
	t.Setenv(validationEnv, "")
	cfg, err := Parse([]string{"-width", "1280", "-height", "720", "-frames", "3", "-validation=false", "-model", "cube.obj"}, io.Discard)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.FramesInFlight != 3 {
		t.Errorf("FramesInFlight = %d, want 3", cfg.FramesInFlight)
	}
	if cfg.Validation {
		t.Error("Validation = true, want false")
	}
	if cfg.ModelPath != "cube.obj" {
		t.Errorf("ModelPath = %q, want cube.obj", cfg.ModelPath)
	}
	if cfg.TexturePath != Default().TexturePath {
		t.Errorf("TexturePath = %q, want default", cfg.TexturePath)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := [][]string{
		{"-width", "0"},
		{"-height", "-5"},
		{"-frames", "0"},
		{"-frames", "9"},
		{"-model", ""},
		{"-nope"},
	}
	for _, args := range tests {
		if _, err := Parse(args, io.Discard); err == nil {
			t.Errorf("Parse(%v) error = nil, want error", args)
		}
	}
}
