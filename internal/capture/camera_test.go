package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantFPS int
	}{
		{
			name:    "defaults",
			config:  DefaultConfig(),
			wantFPS: DefaultFPS,
		},
		{
			name:    "zero fields fall back",
			config:  Config{Device: 1},
			wantFPS: DefaultFPS,
		},
		{
			name:    "explicit rate",
			config:  Config{Device: 2, FPS: 15},
			wantFPS: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)

			if cam == nil {
				t.Fatal("NewCamera returned nil")
			}

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}

			if cam.IsOpen() {
				t.Error("camera should not be running initially")
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"negative device", Config{Device: -1, Width: 640, Height: 480, FPS: 30}, true},
		{"zero width", Config{Width: 0, Height: 480, FPS: 30}, true},
		{"zero fps", Config{Width: 640, Height: 480}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{"set to 10", 10, 10},
		{"set to 1", 1, 1},
		{"set to 0 should keep previous", 0, 1},
		{"set to negative should keep previous", -5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultConfig())

	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}

func TestMirror(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 2, 3, gocv.MatTypeCV8U)
	defer frame.Close()

	frame.SetUCharAt(0, 0, 7)

	Mirror(&frame)

	if got := frame.GetUCharAt(0, 2); got != 7 {
		t.Errorf("expected pixel moved to right edge, got %d", got)
	}
	if got := frame.GetUCharAt(0, 0); got != 0 {
		t.Errorf("expected left edge cleared, got %d", got)
	}

	// nil and empty frames are ignored
	Mirror(nil)
	empty := gocv.NewMat()
	defer empty.Close()
	Mirror(&empty)
}
