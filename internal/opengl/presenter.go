// Package opengl shows rendered frames in a GLFW window: the frame is
// uploaded to a texture and drawn as one fullscreen triangle.
package opengl

import (
	"fmt"
	"image"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

type Presenter struct {
	prog     uint32
	frameLoc int32
	vao      uint32
	tex      *frameTexture
}

// NewPresenter loads GL entry points for the current context and builds the
// blit program.
func NewPresenter() (*Presenter, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	prog, err := newProgram(fullscreenVertSrc, frameFragSrc)
	if err != nil {
		return nil, fmt.Errorf("frame shader: %w", err)
	}
	p := &Presenter{
		prog:     prog,
		frameLoc: gl.GetUniformLocation(prog, gl.Str("frame\x00")),
		tex:      newFrameTexture(),
	}
	gl.GenVertexArrays(1, &p.vao)
	return p, nil
}

// Version reports the driver's GL version string.
func (p *Presenter) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// Present draws img into a framebuffer of fbW x fbH, scaled to fit with
// black bars that keep the frame's aspect ratio.
func (p *Presenter) Present(img *image.RGBA, fbW, fbH int) error {
	if err := p.tex.upload(img); err != nil {
		return err
	}

	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	vp := Fit(img.Bounds().Dx(), img.Bounds().Dy(), fbW, fbH)
	gl.Viewport(int32(vp.Min.X), int32(vp.Min.Y), int32(vp.Dx()), int32(vp.Dy()))
	gl.Disable(gl.DEPTH_TEST)
	gl.UseProgram(p.prog)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, p.tex.id)
	gl.Uniform1i(p.frameLoc, 0)
	gl.BindVertexArray(p.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// Fit returns the largest rectangle with the frame's aspect ratio centred in
// the framebuffer, in GL viewport coordinates.
func Fit(frameW, frameH, fbW, fbH int) image.Rectangle {
	if frameW <= 0 || frameH <= 0 || fbW <= 0 || fbH <= 0 {
		return image.Rect(0, 0, max(fbW, 0), max(fbH, 0))
	}
	w, h := fbW, fbW*frameH/frameW
	if h > fbH {
		w, h = fbH*frameW/frameH, fbH
	}
	x, y := (fbW-w)/2, (fbH-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func (p *Presenter) Destroy() {
	p.tex.delete()
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
	if p.prog != 0 {
		gl.DeleteProgram(p.prog)
		p.prog = 0
	}
}
