package main

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

const jpegQuality = 95

// frameWriter saves rendered frames, optionally gamma encoded and resized.
type frameWriter struct {
	pattern string
	frames  int
	gamma   float64 // 1 keeps the linear output
	width   int     // 0 keeps the render size
	height  int
}

func encoderFor(path string) (imgio.Encoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return imgio.PNGEncoder(), nil
	case ".jpg", ".jpeg":
		return imgio.JPEGEncoder(jpegQuality), nil
	case ".bmp":
		return imgio.BMPEncoder(), nil
	}
	return nil, fmt.Errorf("unsupported output format %q", filepath.Ext(path))
}

// path names frame i. A single frame uses the pattern as given; otherwise a
// printf verb in the pattern takes the index, or one is added before the
// extension.
func (fw frameWriter) path(i int) string {
	if fw.frames <= 1 {
		return fw.pattern
	}
	if strings.Contains(fw.pattern, "%") {
		return fmt.Sprintf(fw.pattern, i)
	}
	ext := filepath.Ext(fw.pattern)
	return fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(fw.pattern, ext), i, ext)
}

func (fw frameWriter) process(img *image.RGBA) image.Image {
	var out image.Image = img
	if fw.gamma > 0 && fw.gamma != 1 {
		out = adjust.Gamma(out, fw.gamma)
	}
	if fw.width > 0 && fw.height > 0 && (fw.width != img.Bounds().Dx() || fw.height != img.Bounds().Dy()) {
		out = transform.Resize(out, fw.width, fw.height, transform.Linear)
	}
	return out
}

func (fw frameWriter) write(i int, img *image.RGBA) (string, error) {
	path := fw.path(i)
	enc, err := encoderFor(path)
	if err != nil {
		return "", err
	}
	if err := imgio.Save(path, fw.process(img), enc); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}
