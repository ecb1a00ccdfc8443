package shader

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"Forge3D/internal/errs"
)

// ConfigOption marks which global configuration categories a piece of
// shader code consumes.
type ConfigOption uint32

const (
	ConfigLighting ConfigOption = 1 << iota
	ConfigPostProcessing
	ConfigSkeletalAnimation
	ConfigMorphTargetAnimation
	ConfigVertexColors
	ConfigNormalMapping
)

// Code is one GLSL source fragment whose header region (version, precision,
// defines, constants) is patched in place. Two Codes are the same
// permutation only if they are the same pointer.
type Code struct {
	source    string
	text      string
	version   string
	precision string
	options   ConfigOption
	insertAt  int
	revision  int

	defines map[string]bool
	consts  map[string]string
}

// Init loads source (inline when it starts with '#', otherwise a path in
// assets), rewrites the version line and inserts the precision line.
func (c *Code) Init(assets fs.FS, source, version string, options ConfigOption, precision string) error {
	raw, err := loadSource(assets, source)
	if err != nil {
		return err
	}
	c.source = source
	c.version = version
	c.precision = precision
	c.options = options
	c.defines = make(map[string]bool)
	c.consts = make(map[string]string)
	c.writeHeader(raw)
	return nil
}

func loadSource(assets fs.FS, source string) (string, error) {
	if source == "" {
		return "", errs.New(errs.General, "shader.Code.Init", "empty shader source")
	}
	if strings.HasPrefix(source, "#") {
		return source, nil
	}
	if assets == nil {
		return "", errs.Newf(errs.General, "shader.Code.Init", "no asset source to load %q", source)
	}
	data, err := fs.ReadFile(assets, source)
	if err != nil {
		return "", errs.Wrap(errs.General, "shader.Code.Init", err)
	}
	if len(data) == 0 {
		return "", errs.Newf(errs.General, "shader.Code.Init", "shader file %q is empty", source)
	}
	return string(data), nil
}

var versionRe = regexp.MustCompile(`(?m)^[ \t]*#version[^\n]*`)

// writeHeader rebuilds the text from raw and records the insertion point
// after the version and precision lines.
func (c *Code) writeHeader(raw string) {
	text := raw
	end := 0
	if loc := versionRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + "#version " + c.version + text[loc[1]:]
		end = loc[0] + len("#version "+c.version)
	} else {
		text = "#version " + c.version + "\n" + text
		end = len("#version " + c.version)
	}
	// Step past the newline ending the version line.
	if end < len(text) && text[end] == '\n' {
		end++
	} else {
		text = text[:end] + "\n" + text[end:]
		end++
	}
	if c.precision != "" {
		line := "precision " + c.precision + " float;\n"
		text = text[:end] + line + text[end:]
		end += len(line)
	}
	c.text = text
	c.insertAt = end
}

func defineRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*#define[ \t]+` + regexp.QuoteMeta(name) + `(?:[ \t]|$)`)
}

// AddDefine inserts "#define name" at the insertion point unless the text
// already defines it.
func (c *Code) AddDefine(name string) {
	c.defines[name] = true
	if defineRe(name).MatchString(c.text) {
		return
	}
	line := "#define " + name + "\n"
	c.text = c.text[:c.insertAt] + line + c.text[c.insertAt:]
}

// RemoveDefine blanks the line defining name. The text never shrinks.
func (c *Code) RemoveDefine(name string) {
	delete(c.defines, name)
	loc := defineRe(name).FindStringIndex(c.text)
	if loc == nil {
		return
	}
	end := strings.IndexByte(c.text[loc[0]:], '\n')
	if end < 0 {
		end = len(c.text)
	} else {
		end += loc[0]
	}
	c.text = c.text[:loc[0]] + strings.Repeat(" ", end-loc[0]) + c.text[end:]
}

// ChangeConst replaces the initializer of the first declaration starting
// with prefix by literal. It reports whether the declaration was found.
func (c *Code) ChangeConst(prefix, literal string) bool {
	i := strings.Index(c.text, prefix)
	if i < 0 {
		return false
	}
	eq := strings.IndexByte(c.text[i:], '=')
	if eq < 0 {
		return false
	}
	eq += i
	end := strings.IndexByte(c.text[eq:], '\n')
	if end < 0 {
		end = len(c.text)
	} else {
		end += eq
	}
	blank := strings.Repeat(" ", end-eq-1)
	c.text = c.text[:eq+1] + " " + literal + ";" + blank + c.text[end:]
	c.consts[prefix] = literal
	return true
}

// RequiresConfig reports whether the code consumes any category in mask.
func (c *Code) RequiresConfig(mask ConfigOption) bool {
	return c.options&mask != 0
}

// ConfigLight bakes light counts and shadow parameters.
func (c *Code) ConfigLight(cfg LightConfig) {
	c.toggle("DIRECTIONAL_LIGHTS", cfg.DirLightCount > 0)
	c.toggle("POINT_LIGHTS", cfg.PointLightCount > 0)
	c.toggle("SPOT_LIGHTS", cfg.SpotLightCount > 0)
	c.toggle("SHADOWS", cfg.ShadowMapCount > 0)

	c.ChangeConst("const uint DirLightCount", uintLiteral(cfg.DirLightCount))
	c.ChangeConst("const uint PointLightCount", uintLiteral(cfg.PointLightCount))
	c.ChangeConst("const uint SpotLightCount", uintLiteral(cfg.SpotLightCount))
	c.ChangeConst("const uint ShadowMapCount", uintLiteral(cfg.ShadowMapCount))
	c.ChangeConst("const int PCFFilterSize", strconv.Itoa(int(cfg.PCFSize)))
	c.ChangeConst("const float ShadowBias", floatLiteral(cfg.ShadowBias))

	if cfg.ShadowMapCount > 1 {
		c.requireVersion(400, 320)
	}
}

func (c *Code) ConfigPostProcessing(cfg PostProcessingConfig) {
	c.ChangeConst("const float Exposure", floatLiteral(cfg.Exposure))
	c.ChangeConst("const float Gamma", floatLiteral(cfg.Gamma))
	c.ChangeConst("const float Saturation", floatLiteral(cfg.Saturation))
	c.ChangeConst("const float Brightness", floatLiteral(cfg.Brightness))
	c.ChangeConst("const float Contrast", floatLiteral(cfg.Contrast))
}

func (c *Code) ConfigSkeletalAnimation(cfg SkeletalAnimationConfig) {
	c.toggle("SKELETAL_ANIMATION", cfg.BoneCount > 0)
	c.ChangeConst("const int BoneCount", strconv.Itoa(int(cfg.BoneCount)))
}

func (c *Code) ConfigMorphTargetAnimation(cfg MorphTargetAnimationConfig) {
	c.toggle("MORPHTARGET_ANIMATION", cfg.TargetCount > 0)
	c.ChangeConst("const int MorphTargetCount", strconv.Itoa(int(cfg.TargetCount)))
}

func (c *Code) toggle(define string, on bool) {
	if on {
		c.AddDefine(define)
	} else {
		c.RemoveDefine(define)
	}
}

// requireVersion raises the version tag to at least desktop (or es on
// ES tags). It never lowers it.
func (c *Code) requireVersion(desktop, es int) {
	fields := strings.Fields(c.version)
	if len(fields) == 0 {
		return
	}
	num, err := strconv.Atoi(fields[0])
	if err != nil {
		return
	}
	isES := len(fields) > 1 && fields[1] == "es"
	var tag string
	switch {
	case isES && num < es:
		tag = fmt.Sprintf("%d es", es)
	case !isES && num < desktop:
		tag = strconv.Itoa(desktop)
		if len(fields) > 1 {
			tag += " " + fields[1]
		}
	default:
		return
	}
	c.setVersion(tag)
}

func (c *Code) setVersion(tag string) {
	loc := versionRe.FindStringIndex(c.text)
	if loc == nil {
		return
	}
	line := "#version " + tag
	c.text = c.text[:loc[0]] + line + c.text[loc[1]:]
	c.insertAt += len(line) - (loc[1] - loc[0])
	c.version = tag
}

// reload re-reads the source and replays the recorded defines and
// constants onto the fresh text.
func (c *Code) reload(assets fs.FS) error {
	raw, err := loadSource(assets, c.source)
	if err != nil {
		return err
	}
	c.writeHeader(raw)
	defines := c.defines
	consts := c.consts
	c.defines = make(map[string]bool)
	c.consts = make(map[string]string)
	for _, name := range sortedKeys(defines) {
		c.AddDefine(name)
	}
	for _, prefix := range sortedKeys(consts) {
		c.ChangeConst(prefix, consts[prefix])
	}
	c.revision++
	return nil
}

// Permutation describes the variant the current text resolves to.
type Permutation struct {
	Source    string
	Revision  int
	Version   string
	Precision string
	Defines   []string
	Consts    []string // "prefix = literal", sorted
}

func (p Permutation) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s@%d|%s|%s|", p.Source, p.Revision, p.Version, p.Precision)
	b.WriteString(strings.Join(p.Defines, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(p.Consts, ","))
	return b.String()
}

func (c *Code) Permutation() Permutation {
	p := Permutation{
		Source:    c.source,
		Revision:  c.revision,
		Version:   c.version,
		Precision: c.precision,
		Defines:   sortedKeys(c.defines),
	}
	for _, prefix := range sortedKeys(c.consts) {
		p.Consts = append(p.Consts, prefix+" = "+c.consts[prefix])
	}
	return p
}

func (c *Code) Text() string          { return c.text }
func (c *Code) Source() string        { return c.source }
func (c *Code) Version() string       { return c.version }
func (c *Code) Precision() string     { return c.precision }
func (c *Code) Options() ConfigOption { return c.options }
func (c *Code) InsertionPoint() int   { return c.insertAt }
func (c *Code) fromFile() bool        { return !strings.HasPrefix(c.source, "#") }

// name identifies the code in errors and logs.
func (c *Code) name() string {
	if c.fromFile() {
		return c.source
	}
	return "inline"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uintLiteral(v uint32) string {
	return strconv.FormatUint(uint64(v), 10) + "u"
}

// floatLiteral always carries a decimal point; GLSL ES has no implicit
// int to float conversion.
func floatLiteral(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
