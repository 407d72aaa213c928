// Command vct renders scenes with voxel cone traced global illumination,
// either to image files or live in a window.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vct-renderer/config"
	"vct-renderer/conetrace"
	"vct-renderer/core"
	"vct-renderer/scene"
)

// app is the state shared by every subcommand, filled in before they run.
type app struct {
	configPath string
	scenePath  string
	debug      bool
	workers    int
	width      int
	height     int

	cfg config.Config
	log core.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "vct",
		Short:         "Voxel cone tracing renderer",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "TOML configuration file (defaults when empty)")
	flags.StringVarP(&a.scenePath, "scene", "s", "", "TOML scene description (Cornell box when empty)")
	flags.BoolVar(&a.debug, "debug", false, "log pass timings")
	flags.IntVar(&a.workers, "workers", 0, "worker goroutines, overrides the config")
	flags.IntVar(&a.width, "width", 0, "frame width, overrides the config")
	flags.IntVar(&a.height, "height", 0, "frame height, overrides the config")

	root.AddCommand(newRenderCommand(a), newViewCommand(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = a.debug
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("width") {
		cfg.Width = a.width
	}
	if flags.Changed("height") {
		cfg.Height = a.height
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = core.NewLogger("vct", cfg.Debug)
	return nil
}

// loadScene builds the scene file, or a Cornell box filling half the voxel
// grid when no file is given.
func (a *app) loadScene() (*scene.Scene, error) {
	if a.scenePath == "" {
		return scene.CornellBox(a.cfg.VoxelGridWorldSize/2).Build("", a.log)
	}
	desc, err := scene.LoadDescription(a.scenePath)
	if err != nil {
		return nil, err
	}
	s, err := desc.Build(filepath.Dir(a.scenePath), a.log)
	if err != nil {
		return nil, fmt.Errorf("build scene %q: %w", a.scenePath, err)
	}
	return s, nil
}

// parseChannel accepts a term name in any case with spaces, dashes or
// underscores, or "ao".
func parseChannel(name string) (conetrace.Channel, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(strings.TrimSpace(name)))
	if norm == "ao" {
		return conetrace.ChannelAmbientOcclusion, nil
	}
	for _, tk := range toggleKeys {
		if tk.ch.String() == norm {
			return tk.ch, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}
