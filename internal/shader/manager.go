package shader

import (
	"io/fs"

	"Forge3D/internal/errs"
	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type codeKey struct {
	source    string
	version   string
	options   ConfigOption
	precision string
}

// Manager canonicalises shader code and caches linked programs. One
// Manager is created per device and handed to whoever builds shaders.
type Manager struct {
	dev    gpu.Device
	assets fs.FS

	codes    map[codeKey]*Code
	programs []*Program

	configured ConfigOption
	light      LightConfig
	post       PostProcessingConfig
	skeletal   SkeletalAnimationConfig
	morph      MorphTargetAnimationConfig
}

// NewManager creates a manager reading file sources from assets. A nil
// assets only accepts inline sources.
func NewManager(dev gpu.Device, assets fs.FS) *Manager {
	return &Manager{
		dev:    dev,
		assets: assets,
		codes:  make(map[codeKey]*Code),
	}
}

// CreateShaderCode returns the cached Code for the tuple or creates one.
func (m *Manager) CreateShaderCode(source, version string, options ConfigOption, precision string) (*Code, error) {
	key := codeKey{source: source, version: version, options: options, precision: precision}
	if c, ok := m.codes[key]; ok {
		return c, nil
	}
	c := &Code{}
	if err := c.Init(m.assets, source, version, options, precision); err != nil {
		return nil, err
	}
	m.codes[key] = c
	return c, nil
}

// BuildShader links vs and fs into a program, reusing a previous build of
// exactly the same Code pointers in the same order. A failed build is
// cached too; the returned Program is then non-nil but not Valid.
func (m *Manager) BuildShader(vs, fs []*Code) (*Program, error) {
	if len(vs) == 0 || len(fs) == 0 {
		return nil, errs.New(errs.General, "shader.Manager.BuildShader", "vertex and fragment code required")
	}
	return m.build(vs, fs, nil)
}

// BuildComputeShader links a compute-only program.
func (m *Manager) BuildComputeShader(cs []*Code) (*Program, error) {
	if len(cs) == 0 {
		return nil, errs.New(errs.General, "shader.Manager.BuildComputeShader", "compute code required")
	}
	return m.build(nil, nil, cs)
}

func (m *Manager) build(vs, fs, cs []*Code) (*Program, error) {
	for _, list := range [][]*Code{vs, fs, cs} {
		for _, c := range list {
			if c == nil {
				return nil, errs.New(errs.NullPointer, "shader.Manager.BuildShader", "nil shader code")
			}
		}
	}
	for _, p := range m.programs {
		if p.matches(vs, fs, cs) {
			return p, p.err
		}
	}

	p := &Program{
		vs: append([]*Code(nil), vs...),
		fs: append([]*Code(nil), fs...),
		cs: append([]*Code(nil), cs...),
	}
	for _, c := range p.codes() {
		m.applyConfig(c, m.configured)
	}
	m.link(p)
	m.programs = append(m.programs, p)
	return p, p.err
}

func (m *Manager) applyConfig(c *Code, mask ConfigOption) {
	mask &= m.configured
	if mask&ConfigLighting != 0 && c.RequiresConfig(ConfigLighting) {
		c.ConfigLight(m.light)
	}
	if mask&ConfigPostProcessing != 0 && c.RequiresConfig(ConfigPostProcessing) {
		c.ConfigPostProcessing(m.post)
	}
	if mask&ConfigSkeletalAnimation != 0 && c.RequiresConfig(ConfigSkeletalAnimation) {
		c.ConfigSkeletalAnimation(m.skeletal)
	}
	if mask&ConfigMorphTargetAnimation != 0 && c.RequiresConfig(ConfigMorphTargetAnimation) {
		c.ConfigMorphTargetAnimation(m.morph)
	}
}

// link compiles every stage and replaces p's handle. On failure the old
// handle is released and p becomes unusable.
func (m *Manager) link(p *Program) {
	if p.handle != 0 {
		m.dev.DeleteProgram(p.handle)
		p.handle = 0
	}
	p.fingerprint = fingerprint(p.codes())
	p.err = nil

	var shaders []uint32
	compile := func(stage gpu.Enum, codes []*Code) error {
		for _, c := range codes {
			h, err := m.dev.CreateShader(stage, c.Text())
			if err != nil {
				return errs.Wrap(errs.General, c.name(), err)
			}
			shaders = append(shaders, h)
		}
		return nil
	}
	err := compile(gpu.VertexShader, p.vs)
	if err == nil {
		err = compile(gpu.FragmentShader, p.fs)
	}
	if err == nil {
		err = compile(gpu.ComputeShader, p.cs)
	}
	if err != nil {
		for _, h := range shaders {
			m.dev.DeleteShader(h)
		}
		m.fail(p, err)
		return
	}

	handle, err := m.dev.CreateProgram(shaders...)
	if err != nil {
		m.fail(p, err)
		return
	}
	p.handle = handle
	p.bindInterface(m.dev)
	if p.uniforms == nil {
		p.uniforms = NewUniformCache(m.dev, handle)
	} else {
		p.uniforms.Reset(handle)
	}
	logger.Log.Debug("Shader program linked",
		zap.Uint32("program", handle),
		zap.Int("stages", len(shaders)))
}

func (m *Manager) fail(p *Program, err error) {
	p.err = errs.Wrap(errs.General, "shader.Manager.BuildShader", err)
	if p.uniforms != nil {
		p.uniforms.Reset(0)
	}
	logger.Log.Error("Failed to build shader program", zap.Error(err))
}

// ConfigShader stores the light configuration and rebuilds every cached
// program that consumes it.
func (m *Manager) ConfigShader(cfg LightConfig) error {
	m.light = cfg
	return m.reconfigure(ConfigLighting)
}

func (m *Manager) ConfigPostProcessing(cfg PostProcessingConfig) error {
	m.post = cfg
	return m.reconfigure(ConfigPostProcessing)
}

func (m *Manager) ConfigSkeletalAnimation(cfg SkeletalAnimationConfig) error {
	m.skeletal = cfg
	return m.reconfigure(ConfigSkeletalAnimation)
}

func (m *Manager) ConfigMorphTargetAnimation(cfg MorphTargetAnimationConfig) error {
	m.morph = cfg
	return m.reconfigure(ConfigMorphTargetAnimation)
}

// reconfigure re-applies category to the affected codes and relinks only
// the programs whose permutation changed.
func (m *Manager) reconfigure(category ConfigOption) error {
	m.configured |= category
	var err error
	for _, p := range m.programs {
		if !p.requires(category) {
			continue
		}
		for _, c := range p.codes() {
			m.applyConfig(c, category)
		}
		err = multierr.Append(err, m.relink(p))
	}
	return err
}

func (m *Manager) relink(p *Program) error {
	if p.Valid() && fingerprint(p.codes()) == p.fingerprint {
		return nil
	}
	m.link(p)
	return p.err
}

// ReloadSource re-reads every code loaded from path and relinks the
// programs using it.
func (m *Manager) ReloadSource(path string) error {
	var err error
	var changed []*Code
	for _, c := range m.codes {
		if !c.fromFile() || c.Source() != path {
			continue
		}
		if rerr := c.reload(m.assets); rerr != nil {
			err = multierr.Append(err, rerr)
			continue
		}
		changed = append(changed, c)
	}
	for _, p := range m.programs {
		for _, c := range changed {
			if p.uses(c) {
				err = multierr.Append(err, m.relink(p))
				break
			}
		}
	}
	if len(changed) > 0 {
		logger.Log.Info("Shader source reloaded", zap.String("path", path), zap.Int("codes", len(changed)))
	}
	return err
}

// Programs returns the cached programs in build order.
func (m *Manager) Programs() []*Program {
	return append([]*Program(nil), m.programs...)
}

// Reset deletes every program and forgets all cached code. Programs handed
// out earlier become unusable.
func (m *Manager) Reset() {
	for _, p := range m.programs {
		if p.handle != 0 {
			m.dev.DeleteProgram(p.handle)
			p.handle = 0
		}
		p.err = errs.New(errs.NotInitialized, "shader.Manager", "program released")
	}
	m.programs = nil
	m.codes = make(map[codeKey]*Code)
}

func (m *Manager) Close() {
	n := len(m.programs)
	m.Reset()
	logger.Log.Debug("Shader manager closed", zap.Int("programs", n))
}
