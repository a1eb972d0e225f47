package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/gekko3d/meadow"
	"github.com/gekko3d/meadow/gpu/wgpudevice"
	"github.com/gekko3d/meadow/platform"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML file overriding the default scene settings")
	debug := flag.Bool("debug", false, "Enable debug logging and frame stats")
	flag.Parse()

	log := meadow.NewDefaultLogger("meadow", *debug)

	cfg := meadow.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = meadow.LoadConfig(*configPath); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}
	cfg.Debug = cfg.Debug || *debug
	log.SetDebug(cfg.Debug)

	if err := run(cfg, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg meadow.Config, log meadow.Logger) error {
	window, err := platform.NewWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title)
	if err != nil {
		return err
	}
	defer window.Destroy()

	device, err := wgpudevice.New(window.GLFW())
	if err != nil {
		return err
	}
	defer device.Release()

	app := meadow.NewAppBuilder().
		UseStates(meadow.StateInitializing, meadow.StateTornDown).
		UseModule(
			meadow.LoggingModule{Logger: log},
			meadow.AssetServerModule{Workers: cfg.Assets.Workers},
			meadow.WindowModule{Host: window},
			meadow.SceneModule{Config: cfg, Device: device},
		).
		Build()

	err = app.Run()
	if live := device.Live(); live > 0 {
		log.Warnf("%d gpu resources still alive at shutdown", live)
	}
	return err
}
