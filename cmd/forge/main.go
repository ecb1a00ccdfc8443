// Command forge opens a window and renders a small lit scene through the
// deferred pipeline.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"Forge3D/internal/actor"
	"Forge3D/internal/behaviour"
	"Forge3D/internal/engine"
	"Forge3D/internal/logger"
	"Forge3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "", "JSON render configuration, applied over the preset")
	preset     = flag.String("preset", "default", "configuration preset: default, high or performance")
	shaderDir  = flag.String("shaders", "", "directory overriding the built-in shaders, reloaded on change")
	assetDir   = flag.String("assets", ".", "directory models and textures are loaded from")
	modelPath  = flag.String("model", "", "OBJ model to place in the scene, relative to -assets")
	texture    = flag.String("texture", "", "albedo texture for the model, relative to -assets")
	behaviours = flag.String("behaviours", "flicker,orbit", "comma separated scene behaviours")
	dumpDir    = flag.String("dump", "", "write the GBuffer attachments here after the first frames")
	debug      = flag.Bool("debug", false, "log at debug level")
	width      = flag.Int("width", 1280, "window width")
	height     = flag.Int("height", 720, "window height")
)

func main() {
	flag.Parse()
	if *debug {
		logger.InitWithLevel(zapcore.DebugLevel)
	} else {
		logger.InitWithLevel(zapcore.InfoLevel)
	}
	closer.Bind(logger.Sync)
	defer closer.Close()

	cfg, err := loadConfig()
	if err != nil {
		logger.Log.Error("Invalid configuration", zap.Error(err))
		closer.Exit(1)
	}

	e := engine.New(cfg)
	e.Width, e.Height = int32(*width), int32(*height)
	e.ShaderDir = *shaderDir
	e.Assets = os.DirFS(*assetDir)

	if err := buildScene(e, cfg); err != nil {
		logger.Log.Error("Scene setup failed", zap.Error(err))
		closer.Exit(1)
	}
	if *dumpDir != "" {
		e.SetOnRenderCallback(dumpAfter(e, 10, *dumpDir))
	}

	if err := e.Run(100, 100); err != nil {
		logger.Log.Error("Engine stopped", zap.Error(err))
		closer.Exit(1)
	}
}

func loadConfig() (renderer.Config, error) {
	var cfg renderer.Config
	switch *preset {
	case "default":
		cfg = renderer.DefaultConfig()
	case "high":
		cfg = renderer.HighQualityConfig()
	case "performance":
		cfg = renderer.PerformanceConfig()
	default:
		return cfg, fmt.Errorf("unknown preset %q", *preset)
	}
	if *configPath == "" {
		return cfg, nil
	}
	f, err := os.Open(*configPath)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	return renderer.LoadConfigOver(cfg, f)
}

func buildScene(e *engine.Engine, cfg renderer.Config) error {
	ground := actor.NewStaticMesh("ground", actor.PlaneGeometry(2, 30))
	ground.Material.Roughness = 0.9
	e.AddMesh(ground)

	for i, color := range []mgl32.Vec4{{0.9, 0.2, 0.2, 1}, {0.2, 0.9, 0.2, 1}, {0.2, 0.3, 0.9, 1}} {
		cube := actor.NewStaticMesh(fmt.Sprintf("cube%d", i), actor.CubeGeometry(1.5))
		cube.SetPosition(float32(i-1)*3, 0.75, 0)
		cube.Material.Color = color
		cube.Material.Metallic = float32(i) * 0.5
		e.AddMesh(cube)
	}
	sphere := actor.NewStaticMesh("sphere", actor.SphereGeometry(1, 24))
	sphere.SetPosition(0, 1, 3)
	e.AddMesh(sphere)

	if *modelPath != "" {
		if err := addModel(e); err != nil {
			return err
		}
	}

	sun := renderer.NewLight(renderer.DirectionalLight)
	sun.SetDirection(mgl32.Vec3{-0.4, -1, -0.3})
	sun.SetPosition(mgl32.Vec3{8, 20, 6})
	sun.SetIntensity(0.8)
	if err := e.AddLight(sun); err != nil {
		return err
	}
	if cfg.ShadowMapCount > 0 {
		if err := e.EnableShadows(sun, 2048, mgl32.Ortho(-20, 20, -20, 20, 0.1, 60)); err != nil {
			return err
		}
	}

	palette := []mgl32.Vec3{{1, 0.6, 0.3}, {0.3, 0.6, 1}, {0.6, 1, 0.4}, {1, 0.3, 0.8}}
	for i := uint32(0); i < cfg.PointLightsCount; i++ {
		l := renderer.NewLight(renderer.PointLight)
		l.SetColor(palette[int(i)%len(palette)])
		l.SetIntensity(2)
		if err := e.AddLight(l); err != nil {
			return err
		}
	}
	if cfg.SpotLightsCount > 0 {
		spot := renderer.NewLight(renderer.SpotLight)
		spot.SetPosition(mgl32.Vec3{0, 8, 8})
		spot.SetDirection(mgl32.Vec3{0, -1, -1})
		spot.SetCutOff(15, 25)
		if err := e.AddLight(spot); err != nil {
			return err
		}
	}

	for _, name := range strings.Split(*behaviours, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		b := behaviour.Create(name)
		if b == nil {
			return fmt.Errorf("unknown behaviour %q, have %v", name, behaviour.Available())
		}
		e.AddBehaviour(b)
	}
	return nil
}

func addModel(e *engine.Engine) error {
	g, err := actor.LoadOBJFile(e.Assets, *modelPath, false)
	if err != nil {
		return err
	}
	m := actor.NewStaticMesh(g.Name, g)
	m.SetPosition(0, 0, -4)
	e.AddMesh(m)
	if *texture == "" {
		return nil
	}
	if _, err := fs.Stat(e.Assets, *texture); err != nil {
		return err
	}
	// Textures need the GL context, so they load on the first frame.
	e.AddBehaviour(&textureLoader{mesh: m, path: *texture})
	return nil
}

type textureLoader struct {
	mesh *actor.StaticMesh
	path string
}

func (t *textureLoader) Start(scene behaviour.Scene) {
	e, ok := scene.(*engine.Engine)
	if !ok {
		return
	}
	if err := t.mesh.LoadAlbedo(e.TextureManager(), t.path); err != nil {
		logger.Log.Error("Texture not loaded", zap.String("path", t.path), zap.Error(err))
	}
}

func (t *textureLoader) Update(behaviour.Scene, float64) {}
func (t *textureLoader) UpdateFixed(behaviour.Scene)     {}

func dumpAfter(e *engine.Engine, frames int, dir string) func(float64) {
	count := 0
	return func(float64) {
		count++
		if count != frames {
			return
		}
		if err := e.DumpGBuffer(dir); err != nil {
			logger.Log.Error("GBuffer dump failed", zap.Error(err))
		}
	}
}
