package renderer

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"sync"

	"Forge3D/internal/errs"
	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
)

// WhiteTextureName is the cache key of the 1x1 white texture materials
// fall back to when they have no albedo map.
const WhiteTextureName = "builtin:white"

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	ActiveTextures int
}

// TextureManager loads RGBA8 textures once per path and reference counts them.
type TextureManager struct {
	dev    gpu.Device
	assets fs.FS

	textureCache    map[string]uint32 // path -> texture
	textureRefCount map[uint32]int
	texturePaths    map[uint32]string
	mu              sync.Mutex
	stats           TextureStats
}

func NewTextureManager(dev gpu.Device, assets fs.FS) *TextureManager {
	return &TextureManager{
		dev:             dev,
		assets:          assets,
		textureCache:    make(map[string]uint32),
		textureRefCount: make(map[uint32]int),
		texturePaths:    make(map[uint32]string),
	}
}

// LoadTexture decodes a PNG, JPEG or BMP file from the asset tree, or
// returns the cached texture with its reference count incremented.
func (tm *TextureManager) LoadTexture(path string) (uint32, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if id, ok := tm.hit(path); ok {
		return id, nil
	}
	tm.stats.CacheMisses++

	if tm.assets == nil {
		return 0, errs.New(errs.NotInitialized, "TextureManager.LoadTexture", "no asset filesystem")
	}
	f, err := tm.assets.Open(path)
	if err != nil {
		return 0, errs.Wrap(errs.General, "TextureManager.LoadTexture", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return 0, errs.Wrap(errs.General, "TextureManager.LoadTexture", err)
	}
	id := tm.upload(img, path)

	logger.Log.Info("Texture loaded and cached",
		zap.String("path", path),
		zap.String("format", format),
		zap.Uint32("textureID", id),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return id, nil
}

// CreateTextureFromImage uploads img under name, or returns the cached one.
func (tm *TextureManager) CreateTextureFromImage(img image.Image, name string) uint32 {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if id, ok := tm.hit(name); ok {
		return id
	}
	tm.stats.CacheMisses++
	return tm.upload(img, name)
}

// White returns the shared 1x1 white texture.
func (tm *TextureManager) White() uint32 {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255})
	return tm.CreateTextureFromImage(img, WhiteTextureName)
}

func (tm *TextureManager) hit(key string) (uint32, bool) {
	id, ok := tm.textureCache[key]
	if !ok {
		return 0, false
	}
	tm.textureRefCount[id]++
	tm.stats.CacheHits++
	logger.Log.Debug("Texture cache hit",
		zap.String("path", key),
		zap.Uint32("textureID", id),
		zap.Int("refCount", tm.textureRefCount[id]))
	return id, true
}

func (tm *TextureManager) upload(img image.Image, key string) uint32 {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	id := tm.dev.CreateTexture2D(int32(b.Dx()), int32(b.Dy()), gpu.RGBA8, gpu.RGBA, gpu.UnsignedByte, rgba.Pix)

	tm.textureCache[key] = id
	tm.textureRefCount[id] = 1
	tm.texturePaths[id] = key
	tm.stats.TotalTextures++
	return id
}

func (tm *TextureManager) AddReference(id uint32) {
	if id == 0 {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.textureRefCount[id]++
}

// ReleaseTexture decrements the reference count and deletes the texture
// when it reaches zero.
func (tm *TextureManager) ReleaseTexture(id uint32) {
	if id == 0 {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()

	refCount, ok := tm.textureRefCount[id]
	if !ok {
		logger.Log.Warn("Attempted to release unknown texture", zap.Uint32("textureID", id))
		return
	}
	refCount--
	tm.textureRefCount[id] = refCount
	if refCount > 0 {
		return
	}

	tm.dev.DeleteTexture(id)
	path := tm.texturePaths[id]
	delete(tm.textureCache, path)
	delete(tm.textureRefCount, id)
	delete(tm.texturePaths, id)
	logger.Log.Debug("Texture freed", zap.Uint32("textureID", id), zap.String("path", path))
}

func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.textureRefCount)
	return stats
}

// Clear deletes every texture regardless of its reference count.
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for id := range tm.textureRefCount {
		tm.dev.DeleteTexture(id)
	}
	tm.textureCache = make(map[string]uint32)
	tm.textureRefCount = make(map[uint32]int)
	tm.texturePaths = make(map[uint32]string)
}
