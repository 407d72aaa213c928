package main

import (
	"fmt"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spf13/cobra"

	"vct-renderer/config"
	"vct-renderer/internal/opengl"
	"vct-renderer/renderer"
)

func newViewCommand(a *app) *cobra.Command {
	var (
		scale     int
		speed     float32
		orbit     float32
		watchFile bool
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Render interactively in a window",
		Long: `Render interactively in a window.

WASD moves, Q/E go down and up, shift speeds up, right mouse drag looks
around. Keys 1 to 4 toggle direct diffuse, indirect diffuse, indirect
specular and ambient occlusion. Escape quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if orbit > 0 && cfg.Voxelize.Mode != config.VoxelizeEveryFrame {
				cfg.Voxelize.Mode = config.VoxelizeOnChange
			}
			return a.view(cfg, viewOptions{scale: scale, speed: speed, orbit: orbit, watch: watchFile})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&scale, "scale", 2, "window pixels per rendered pixel")
	flags.Float32Var(&speed, "speed", 0, "camera speed in world units per second (default a tenth of the grid)")
	flags.Float32Var(&orbit, "orbit", 0, "seconds per day cycle of the light, 0 keeps it still")
	flags.BoolVar(&watchFile, "watch", true, "reload the scene file when it changes")
	return cmd
}

type viewOptions struct {
	scale int
	speed float32
	orbit float32
	watch bool
}

func (a *app) view(cfg config.Config, opts viewOptions) error {
	wc := opengl.DefaultWindowConfig()
	wc.Width = cfg.Width * max(opts.scale, 1)
	wc.Height = cfg.Height * max(opts.scale, 1)
	window, err := opengl.NewWindow(wc)
	if err != nil {
		return err
	}
	defer window.Destroy()

	presenter, err := opengl.NewPresenter()
	if err != nil {
		return err
	}
	defer presenter.Destroy()
	a.log.Infof("OpenGL %s", presenter.Version())

	p, err := renderer.New(cfg, a.log)
	if err != nil {
		return err
	}
	defer p.Close()

	s, err := a.loadScene()
	if err != nil {
		return err
	}
	if err := p.Setup(s); err != nil {
		return err
	}

	var changed <-chan struct{}
	if opts.watch && a.scenePath != "" {
		w, err := newSceneWatcher(a.scenePath, a.log)
		if err != nil {
			a.log.Warnf("not watching %s: %v", a.scenePath, err)
		} else {
			defer w.Close()
			changed = w.Changed()
		}
	}

	speed := opts.speed
	if speed <= 0 {
		speed = cfg.VoxelGridWorldSize / 10
	}
	controls := NewCameraController(speed)
	sun := NewSunCycle(opts.orbit)
	cam := renderer.CameraFromConfig(cfg)
	hud := &DebugOverlay{}

	last := opengl.Time()
	for !window.ShouldClose() {
		window.PollEvents()
		now := opengl.Time()
		dt := float32(now - last)
		last = now

		if window.IsKeyPressed(glfw.KeyEscape) {
			window.Close()
		}
		controls.Update(window, cam, dt)
		for _, ch := range controls.Toggles(window) {
			p.Toggle(ch)
		}
		if sun.Update(dt) {
			p.SetLight(sun.Light(p.Light()))
		}

		select {
		case <-changed:
			if next, err := a.loadScene(); err != nil {
				a.log.Warnf("reload: %v", err)
			} else if err := p.Setup(next); err != nil {
				return err
			} else {
				a.log.Infof("reloaded %s", a.scenePath)
			}
		default:
		}

		start := time.Now()
		img, err := p.Frame(cam)
		if err != nil {
			return err
		}
		hud.Describe(p.Stats(), p.Toggles(), time.Since(start))
		window.SetTitle(fmt.Sprintf("%s | %s", wc.Title, hud.GetText()))

		fbW, fbH := window.GetFramebufferSize()
		if err := presenter.Present(img, fbW, fbH); err != nil {
			return err
		}
		window.SwapBuffers()
	}
	return nil
}
