package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"vct-renderer/conetrace"
	"vct-renderer/scene"
)

// input is the part of the window the controls read.
type input interface {
	IsKeyPressed(key glfw.Key) bool
	IsMouseButtonPressed(button glfw.MouseButton) bool
	GetCursorPos() (float64, float64)
}

// toggleKeys maps the number keys to output terms.
var toggleKeys = []struct {
	key glfw.Key
	ch  conetrace.Channel
}{
	{glfw.Key1, conetrace.ChannelDiffuse},
	{glfw.Key2, conetrace.ChannelIndirectDiffuse},
	{glfw.Key3, conetrace.ChannelIndirectSpecular},
	{glfw.Key4, conetrace.ChannelAmbientOcclusion},
}

// keyLatch turns a held key into a single event on the press edge.
type keyLatch map[glfw.Key]bool

func (l keyLatch) pressed(in input, key glfw.Key) bool {
	down := in.IsKeyPressed(key)
	fired := down && !l[key]
	l[key] = down
	return fired
}

// CameraController flies the camera: WASD to move, Q/E down and up, shift to
// go faster, and drag with the right mouse button to look around.
type CameraController struct {
	moveSpeed float32 // world units per second
	lookSpeed float32 // radians per pixel

	lastMouseX, lastMouseY float64
	firstMouse             bool

	latch keyLatch
}

func NewCameraController(moveSpeed float32) *CameraController {
	return &CameraController{
		moveSpeed:  moveSpeed,
		lookSpeed:  0.003,
		firstMouse: true,
		latch:      keyLatch{},
	}
}

func (cc *CameraController) Update(in input, camera *scene.Camera, deltaTime float32) {
	// long hitches would otherwise teleport the camera
	if deltaTime > 0.1 {
		deltaTime = 0.1
	}

	if in.IsMouseButtonPressed(glfw.MouseButtonRight) {
		x, y := in.GetCursorPos()
		if cc.firstMouse {
			cc.lastMouseX, cc.lastMouseY = x, y
			cc.firstMouse = false
		}
		camera.Turn(float32(x-cc.lastMouseX)*cc.lookSpeed, float32(cc.lastMouseY-y)*cc.lookSpeed)
		cc.lastMouseX, cc.lastMouseY = x, y
	} else {
		cc.firstMouse = true
	}

	step := cc.moveSpeed * deltaTime
	if in.IsKeyPressed(glfw.KeyLeftShift) {
		step *= 4
	}
	axis := func(pos, neg glfw.Key) float32 {
		var v float32
		if in.IsKeyPressed(pos) {
			v += step
		}
		if in.IsKeyPressed(neg) {
			v -= step
		}
		return v
	}
	camera.Move(axis(glfw.KeyW, glfw.KeyS), axis(glfw.KeyD, glfw.KeyA), axis(glfw.KeyE, glfw.KeyQ))
}

// Toggles returns the channels whose key went down since the last call.
func (cc *CameraController) Toggles(in input) []conetrace.Channel {
	var out []conetrace.Channel
	for _, tk := range toggleKeys {
		if cc.latch.pressed(in, tk.key) {
			out = append(out, tk.ch)
		}
	}
	return out
}
