package opengl

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name                   string
		frameW, frameH, fw, fh int
		want                   image.Rectangle
	}{
		{"same aspect", 640, 360, 1280, 720, image.Rect(0, 0, 1280, 720)},
		{"pillarbox", 640, 360, 1000, 360, image.Rect(180, 0, 820, 360)},
		{"letterbox", 640, 360, 640, 640, image.Rect(0, 140, 640, 500)},
		{"square into wide", 100, 100, 300, 200, image.Rect(50, 0, 250, 200)},
		{"empty frame", 0, 0, 300, 200, image.Rect(0, 0, 300, 200)},
		{"minimized window", 640, 360, 0, 0, image.Rect(0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fit(tt.frameW, tt.frameH, tt.fw, tt.fh))
		})
	}
}
