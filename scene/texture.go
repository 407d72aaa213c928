package scene

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"vct-renderer/core"
	"vct-renderer/math"

	"github.com/chewxy/math32"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Texture holds CPU-side RGBA8 pixel data, row-major, top row first.
// Textures are shared read-only between materials and passes.
type Texture struct {
	Name   string
	Width  int
	Height int
	Pixels []byte
}

// LoadTexture decodes a PNG, JPEG, BMP, TIFF or WebP file into RGBA8.
// Grayscale images replicate their single channel into RGB.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", path, err)
	}
	tex := TextureFromImage(img)
	tex.Name = path
	return tex, nil
}

// TextureFromImage converts any image.Image to an RGBA8 texture.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Texture{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: rgba.Pix,
	}
}

// NewSolidTexture creates a 1x1 texture with the given RGBA color values (0–255).
func NewSolidTexture(name string, r, g, b, a uint8) *Texture {
	return &Texture{
		Name:   name,
		Width:  1,
		Height: 1,
		Pixels: []byte{r, g, b, a},
	}
}

func (t *Texture) texel(x, y int) core.Color {
	x = wrap(x, t.Width)
	y = wrap(y, t.Height)
	i := (y*t.Width + x) * 4
	return core.Color{
		R: float32(t.Pixels[i]) / 255,
		G: float32(t.Pixels[i+1]) / 255,
		B: float32(t.Pixels[i+2]) / 255,
		A: float32(t.Pixels[i+3]) / 255,
	}
}

// Sample filters the texture bilinearly with repeat wrapping. UV (0,0) is the
// bottom-left corner of the image.
func (t *Texture) Sample(uv math.Vec2) core.Color {
	if t == nil || t.Width == 0 || t.Height == 0 {
		return core.ColorWhite
	}
	fx := uv.X*float32(t.Width) - 0.5
	fy := (1-uv.Y)*float32(t.Height) - 0.5
	x0f, y0f := math32.Floor(fx), math32.Floor(fy)
	tx, ty := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	c00 := t.texel(x0, y0)
	c10 := t.texel(x0+1, y0)
	c01 := t.texel(x0, y0+1)
	c11 := t.texel(x0+1, y0+1)

	top := lerpColor(c00, c10, tx)
	bottom := lerpColor(c01, c11, tx)
	return lerpColor(top, bottom, ty)
}

func lerpColor(a, b core.Color, t float32) core.Color {
	return core.Color{
		R: math.Lerp(a.R, b.R, t),
		G: math.Lerp(a.G, b.G, t),
		B: math.Lerp(a.B, b.B, t),
		A: math.Lerp(a.A, b.A, t),
	}
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
