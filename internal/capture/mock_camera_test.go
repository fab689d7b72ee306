package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	frames := BlankFrames(2, 640, 480)
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	cam := NewMockCamera(frames, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		if f.Cols() != 640 || f.Rows() != 480 {
			t.Errorf("frame %d size = %dx%d", i, f.Cols(), f.Rows())
		}
		f.Close()
	}

	// Third read should fail (no loop)
	_, err := cam.ReadFrame()
	if !errors.Is(err, ErrAcquisition) {
		t.Errorf("expected ErrAcquisition after all frames consumed, got %v", err)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_Released(t *testing.T) {
	cam := NewMockCamera(nil, false)

	if cam.Released() {
		t.Error("unopened camera should not report released")
	}

	cam.Open()
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrAcquisition) {
		t.Errorf("expected ErrAcquisition without frames, got %v", err)
	}
	cam.Close()

	if !cam.Released() {
		t.Error("expected camera to be released after Close")
	}
}
