package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
	"github.com/xlab/closer"

	"github.com/hellhand/vkmodel/internal/config"
	"github.com/hellhand/vkmodel/internal/frame"
	"github.com/hellhand/vkmodel/internal/logging"
	"github.com/hellhand/vkmodel/internal/mesh"
	"github.com/hellhand/vkmodel/internal/texture"
	"github.com/hellhand/vkmodel/internal/vkr"
	"github.com/hellhand/vkmodel/internal/window"
)

func init() {
	// GLFW/Vulkan require the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if errors.Cause(err) == flag.ErrHelp {
		return
	}
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	log := logging.NewText(os.Stderr, level)
	logging.SetLogger(log)

	gate := newExitGate()
	closer.Bind(gate.request)

	err = run(cfg, log, gate)
	gate.release()
	if err != nil {
		closer.Fatalln(err)
	}
	closer.Close()
}

// run owns every GLFW and Vulkan object. All of them are released by its
// deferred calls, on the main thread, before it returns.
func run(cfg config.Config, log *slog.Logger, gate *exitGate) error {
	m, err := mesh.Load(cfg.ModelPath)
	if err != nil {
		return errors.Wrapf(err, "load model %s", cfg.ModelPath)
	}
	tex, err := texture.Load(cfg.TexturePath)
	if err != nil {
		log.Warn("texture unavailable, using checker fallback", "path", cfg.TexturePath, "err", err)
		tex = texture.Checker()
	}

	if err := window.Init(); err != nil {
		return err
	}
	defer window.Terminate()
	vulkan.SetGetInstanceProcAddr(window.InstanceProcAddr())
	if err := vulkan.Init(); err != nil {
		return errors.Wrap(err, "vulkan init")
	}

	win, err := window.New(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer win.Destroy()

	renderer, err := vkr.New(win, vkr.Options{
		AppName:    cfg.Title,
		Validation: cfg.Validation,
		ShaderDir:  cfg.ShaderDir,
		Mesh:       m,
		Texture:    tex,
	})
	if err != nil {
		return errors.Wrap(err, "init renderer")
	}
	defer renderer.Destroy()

	loop, err := frame.NewLoop(renderer, win, renderer, cfg.FramesInFlight)
	if err != nil {
		return errors.Wrap(err, "init frame loop")
	}
	defer func() {
		if err := loop.Close(); err != nil {
			log.Error("close frame loop", "err", err)
		}
		log.Info("frame loop closed", "frames", loop.Frames(), "recreations", loop.Recreations())
	}()
	win.OnResize(func(width, height int) {
		loop.RequestResize()
	})

	log.Info("entering main loop", "framesInFlight", loop.FramesInFlight(), "images", renderer.ImageCount())
	meter := frame.NewRateMeter(time.Now(), time.Second)
	for !win.ShouldClose() && !gate.stopping() {
		win.PollEvents()
		if err := loop.DrawFrame(); err != nil {
			log.Error("draw frame", "frame", loop.CurrentFrame(), "err", err)
			return err
		}
		if fps, ok := meter.Tick(time.Now()); ok {
			log.Debug("frame rate", "fps", fps, "frames", loop.Frames())
		}
	}
	return nil
}
