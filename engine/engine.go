package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-vsm/common"
	"github.com/Carmen-Shannon/oxy-vsm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vsm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vsm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vsm/engine/vsm"
	"github.com/Carmen-Shannon/oxy-vsm/engine/window"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// suspendedPollInterval is how long the render loop waits between checks while the window has
// no drawable area.
const suspendedPollInterval = 50 * time.Millisecond

// engine implements the Engine interface.
// The window goroutine polls events; the tick goroutine steps navigation; the render
// goroutine owns every device call.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window    window.Window
	renderer  renderer.Renderer
	lifecycle vsm.Lifecycle
	navigator *camera.Navigator
	keymap    map[window.Key]camera.NavigationAction

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration

	// pending is the diff the render goroutine applies before its next frame.
	pending    vsm.StateDiff
	hasPending bool
	err        error
}

// Engine hosts a render pipeline in a window: it drives the lifecycle hooks, forwards resizes as
// state diffs and maps input to observer navigation.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the navigation tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// RequestState queues a state diff. It is merged with other pending diffs and applied by
	// Prepare before the next frame.
	//
	// Parameters:
	//   - diff: the requested changes
	RequestState(diff vsm.StateDiff)

	// Run initializes the pipeline, runs the loops until the window closes or a frame fails, then
	// uninitializes the pipeline. It must be called from the goroutine that created the window.
	//
	// Parameters:
	//   - ctx: canceling it closes the window
	//
	// Returns:
	//   - error: the initialization error, the first frame error, and any teardown error
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()
}

// NewEngine creates an Engine that renders lifecycle through r into w.
// When lifecycle also exposes its observer camera, window input drives the observer's controller.
//
// Parameters:
//   - w: the window presenting the frames
//   - r: the renderer created on w
//   - lifecycle: the pipeline to drive
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(w window.Window, r renderer.Renderer, lifecycle vsm.Lifecycle, options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		window:          w,
		renderer:        r,
		lifecycle:       lifecycle,
		keymap:          DefaultKeymap(),
		profiler:        profiler.NewProfiler(time.Second),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}

	w.SetResizeCallback(func(frame, canvas common.Size) {
		e.RequestState(vsm.Resize(frame, canvas))
	})
	e.RequestState(vsm.Resize(w.FrameSize(), w.CanvasSize()))
	return e
}

// DefaultKeymap binds WASD to panning, the arrow keys to orbiting and R to reset.
//
// Returns:
//   - map[window.Key]camera.NavigationAction: a fresh keymap
func DefaultKeymap() map[window.Key]camera.NavigationAction {
	return map[window.Key]camera.NavigationAction{
		window.KeyW:     camera.NavigateForward,
		window.KeyS:     camera.NavigateBackward,
		window.KeyA:     camera.NavigateLeft,
		window.KeyD:     camera.NavigateRight,
		window.KeyLeft:  camera.NavigateOrbitLeft,
		window.KeyRight: camera.NavigateOrbitRight,
		window.KeyUp:    camera.NavigateOrbitUp,
		window.KeyDown:  camera.NavigateOrbitDown,
		window.KeyR:     camera.NavigateReset,
	}
}

// debugViewKeys switch the composite output of pipelines that expose debug views.
var debugViewKeys = map[window.Key]vsm.DebugView{
	window.KeyF1: vsm.DebugViewNone,
	window.KeyF2: vsm.DebugViewShadowFactor,
	window.KeyF3: vsm.DebugViewLightDepth,
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) RequestState(diff vsm.StateDiff) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if diff.FrameSize != nil {
		e.pending.FrameSize = diff.FrameSize
	}
	if diff.CanvasSize != nil {
		e.pending.CanvasSize = diff.CanvasSize
	}
	if diff.ClearColor != nil {
		e.pending.ClearColor = diff.ClearColor
	}
	e.hasPending = true
}

// takePending returns the merged pending diff and clears it. While the requested frame size is
// empty, as it is for a minimized window, the diff stays queued and ready is false.
func (e *engine) takePending() (diff vsm.StateDiff, ok, ready bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hasPending && e.pending.FrameSize != nil && !e.pending.FrameSize.Valid() {
		return vsm.StateDiff{}, false, false
	}
	diff, ok = e.pending, e.hasPending
	e.pending, e.hasPending = vsm.StateDiff{}, false
	return diff, ok, true
}

func (e *engine) Run(ctx context.Context) (err error) {
	if err := e.lifecycle.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}
	defer func() { err = multierr.Append(err, e.lifecycle.Uninitialize()) }()

	e.bindInput()
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
		case <-ctx.Done():
			e.window.RequestClose()
		default:
		}
	})

	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// bindInput connects window events to observer navigation and debug view switching when the
// lifecycle supports them.
func (e *engine) bindInput() {
	if o, ok := e.lifecycle.(interface{ Observer() camera.Camera }); ok {
		if c := o.Observer(); c != nil && c.Controller() != nil {
			e.navigator = camera.NewNavigator(c.Controller())
		}
	}
	views, _ := e.lifecycle.(interface{ SetDebugView(vsm.DebugView) })

	e.window.SetKeyDownCallback(func(key window.Key) {
		if view, ok := debugViewKeys[key]; ok && views != nil {
			views.SetDebugView(view)
			common.Logger().Info("debug view", zap.Stringer("view", view))
			return
		}
		if a, ok := e.keymap[key]; ok && e.navigator != nil {
			e.navigator.Press(a)
		}
	})
	e.window.SetKeyUpCallback(func(key window.Key) {
		if a, ok := e.keymap[key]; ok && e.navigator != nil {
			e.navigator.Release(a)
		}
	})
	if e.navigator == nil {
		return
	}
	e.window.SetScrollCallback(e.navigator.Scroll)
	e.window.SetMiddleMouseDownCallback(e.navigator.BeginDrag)
	e.window.SetMiddleMouseUpCallback(func(int32, int32) { e.navigator.EndDrag() })
	e.window.SetMouseMoveCallback(e.navigator.DragTo)
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop: held navigation keys, then the tick callback.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.navigator != nil {
				e.navigator.Step(dt)
			}
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender runs the frame loop. Any lifecycle or present error stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(0, fmt.Errorf("render goroutine panicked: %v", r))
		}
	}()

	lastRender := time.Now()
	var frame uint64
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		rendered, err := e.frame(frame)
		if err != nil {
			e.fail(frame, err)
			return
		}
		if !rendered {
			time.Sleep(suspendedPollInterval)
			continue
		}
		frame++

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if e.profilingEnabled {
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frame runs one pass of the lifecycle hooks. It renders nothing and reports false while the
// window has no drawable area.
func (e *engine) frame(n uint64) (bool, error) {
	diff, ok, ready := e.takePending()
	if !ready {
		return false, nil
	}
	if ok {
		if err := e.lifecycle.Prepare(diff); err != nil {
			return false, fmt.Errorf("prepare: %w", err)
		}
	}
	e.lifecycle.Update()
	if err := e.lifecycle.RenderFrame(n); err != nil {
		return false, fmt.Errorf("render frame %d: %w", n, err)
	}
	if err := e.renderer.Present(); err != nil {
		return false, fmt.Errorf("present frame %d: %w", n, err)
	}
	e.lifecycle.Swap()
	return true, nil
}

// fail records the first frame error, logs it and stops the engine.
func (e *engine) fail(frame uint64, err error) {
	common.Logger().Error("engine stopped", zap.Uint64("frame", frame), zap.Error(err))
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	e.signalQuit()
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the tick rate. If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.engineTickRate = newRate
	e.mu.Unlock()
	if !running {
		return
	}
	// Replace any pending update so the latest rate wins.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
