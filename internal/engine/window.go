package engine

import (
	"runtime"

	"Forge3D/internal/gpu/glcore"
	"Forge3D/internal/logger"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

type mouseState struct {
	lastX, lastY float64
	firstMouse   bool
}

// Run opens a window at (x, y) and renders until it is closed. It must be
// called from the main goroutine.
func (e *Engine) Run(x, y int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		logger.Log.Error("Could not initialize glfw", zap.Error(err))
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.StencilBits, 8)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(int(e.Width), int(e.Height), e.Title, nil, nil)
	if err != nil {
		logger.Log.Error("Could not create glfw window", zap.Error(err))
		return err
	}
	e.window = window
	defer func() { e.window = nil }()
	window.MakeContextCurrent()
	window.SetPos(x, y)

	dev, err := glcore.New()
	if err != nil {
		logger.Log.Error("Could not initialize OpenGL", zap.Error(err))
		return err
	}
	if err := e.Start(dev, window); err != nil {
		return err
	}
	defer e.Close()

	fbWidth, fbHeight := window.GetFramebufferSize()
	if err := e.Resize(int32(fbWidth), int32(fbHeight)); err != nil {
		logger.Log.Warn("Initial resize failed", zap.Error(err))
	}

	e.mouse = mouseState{lastX: float64(e.Width / 2), lastY: float64(e.Height / 2), firstMouse: true}
	window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	window.SetCursorPosCallback(e.mouseCallback)
	window.SetMouseButtonCallback(e.mouseButtonCallback)
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if err := e.Resize(int32(width), int32(height)); err != nil {
			logger.Log.Error("Resize failed", zap.Error(err))
		}
	})

	e.renderLoop()
	return nil
}

func (e *Engine) renderLoop() {
	lastTime := glfw.GetTime()
	for !e.window.ShouldClose() {
		currentTime := glfw.GetTime()
		deltaTime := currentTime - lastTime
		lastTime = currentTime

		// Only process camera input if enabled (can be disabled when a UI wants keyboard)
		if e.EnableCameraInput {
			e.Camera.ProcessKeyboard(e.window, float32(deltaTime))
		}
		if err := e.Frame(deltaTime); err != nil {
			logger.Log.Warn("Frame incomplete", zap.Error(err))
		}

		e.window.SwapBuffers()
		glfw.PollEvents()
	}
}

// Looks around while the right mouse button is held.
func (e *Engine) mouseCallback(w *glfw.Window, xpos, ypos float64) {
	if !e.EnableCameraInput || w.GetAttrib(glfw.Focused) != glfw.True || w.GetMouseButton(glfw.MouseButtonRight) != glfw.Press {
		e.mouse.firstMouse = true
		return
	}
	if e.mouse.firstMouse {
		e.mouse.lastX, e.mouse.lastY = xpos, ypos
		e.mouse.firstMouse = false
		return
	}

	xoffset := xpos - e.mouse.lastX
	yoffset := e.mouse.lastY - ypos // window y grows downwards
	e.mouse.lastX, e.mouse.lastY = xpos, ypos
	e.Camera.ProcessMouseMovement(float32(xoffset), float32(yoffset), true)
}

// Left click picks the mesh under the cursor.
func (e *Engine) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft || action != glfw.Press {
		return
	}
	x, y := w.GetCursorPos()
	// Cursor coordinates are in window units, picking uses framebuffer pixels.
	winWidth, winHeight := w.GetSize()
	if winWidth > 0 && winHeight > 0 {
		x *= float64(e.Width) / float64(winWidth)
		y *= float64(e.Height) / float64(winHeight)
	}
	e.Pick(float32(x), float32(y))
}
