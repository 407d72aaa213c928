package main

import (
	"time"

	"github.com/spf13/cobra"

	"vct-renderer/renderer"
)

func newRenderCommand(a *app) *cobra.Command {
	fw := frameWriter{}
	var off []string
	var sunTime float32

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render frames to image files without a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := encoderFor(fw.path(0)); err != nil {
				return err
			}
			p, err := renderer.New(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer p.Close()

			tg := p.Toggles()
			for _, name := range off {
				ch, err := parseChannel(name)
				if err != nil {
					return err
				}
				tg = tg.With(ch, false)
			}
			p.SetToggles(tg)

			if cmd.Flags().Changed("sun") {
				sc := &SunCycle{Time: sunTime}
				p.SetLight(sc.Light(p.Light()))
			}

			s, err := a.loadScene()
			if err != nil {
				return err
			}
			if err := p.Setup(s); err != nil {
				return err
			}

			cam := renderer.CameraFromConfig(a.cfg)
			hud := &DebugOverlay{}
			for i := 0; i < fw.frames; i++ {
				start := time.Now()
				img, err := p.Frame(cam)
				if err != nil {
					return err
				}
				elapsed := time.Since(start)
				path, err := fw.write(i, img)
				if err != nil {
					return err
				}
				hud.Describe(p.Stats(), p.Toggles(), elapsed)
				a.log.Infof("%s: %s", path, hud.GetText())
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&fw.frames, "frames", "n", 1, "number of frames to render")
	flags.StringVarP(&fw.pattern, "out", "o", "frame.png", "output file (.png, .jpg or .bmp); a printf verb takes the frame index")
	flags.Float64Var(&fw.gamma, "gamma", 1, "gamma applied before saving")
	flags.IntVar(&fw.width, "out-width", 0, "resize saved frames to this width")
	flags.IntVar(&fw.height, "out-height", 0, "resize saved frames to this height")
	flags.StringSliceVar(&off, "off", nil, "terms to disable: diffuse, indirect-diffuse, indirect-specular, ao")
	flags.Float32Var(&sunTime, "sun", 0, "place the light at this time of day (0 noon, 0.5 midnight)")
	return cmd
}
