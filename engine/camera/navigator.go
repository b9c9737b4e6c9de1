package camera

import "sync"

// NavigationAction is a navigation intent produced by an input binding.
type NavigationAction int

const (
	NavigateNone NavigationAction = iota
	NavigateForward
	NavigateBackward
	NavigateLeft
	NavigateRight
	NavigateOrbitLeft
	NavigateOrbitRight
	NavigateOrbitUp
	NavigateOrbitDown
	NavigateReset
)

// panUnitsPerSecond is how far a held pan action moves the target each second.
const panUnitsPerSecond float32 = 4

// Navigator turns input events into CameraController calls. Held actions are applied by Step
// so their speed does not depend on key repeat rate. It is safe to feed events from the window
// goroutine while another goroutine calls Step.
type Navigator struct {
	mu *sync.Mutex

	ctrl     CameraController
	held     map[NavigationAction]bool
	dragging bool
	lastX    int32
	lastY    int32
}

// NewNavigator creates a Navigator driving ctrl.
//
// Parameters:
//   - ctrl: the controller to drive
//
// Returns:
//   - *Navigator: the navigator
func NewNavigator(ctrl CameraController) *Navigator {
	return &Navigator{
		mu:   &sync.Mutex{},
		ctrl: ctrl,
		held: make(map[NavigationAction]bool),
	}
}

// Press starts a held action. NavigateReset is applied immediately.
func (n *Navigator) Press(a NavigationAction) {
	if a == NavigateReset {
		n.ctrl.Reset()
		return
	}
	if a == NavigateNone {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.held[a] = true
}

// Release ends a held action.
func (n *Navigator) Release(a NavigationAction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.held, a)
}

// Scroll zooms towards the target for positive deltas.
func (n *Navigator) Scroll(delta float32) {
	n.ctrl.Zoom(delta)
}

// BeginDrag starts an orbit drag at the cursor position.
func (n *Navigator) BeginDrag(x, y int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dragging = true
	n.lastX, n.lastY = x, y
}

// DragTo orbits by the cursor movement since the last event. It does nothing outside a drag.
func (n *Navigator) DragTo(x, y int32) {
	n.mu.Lock()
	if !n.dragging {
		n.mu.Unlock()
		return
	}
	dx, dy := x-n.lastX, y-n.lastY
	n.lastX, n.lastY = x, y
	n.mu.Unlock()
	if dx != 0 || dy != 0 {
		n.ctrl.Drag(dx, dy)
	}
}

// EndDrag stops the orbit drag.
func (n *Navigator) EndDrag() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dragging = false
}

// Step applies every held action for a tick of dt seconds.
//
// Parameters:
//   - dt: the elapsed time in seconds
func (n *Navigator) Step(dt float32) {
	n.mu.Lock()
	held := make([]NavigationAction, 0, len(n.held))
	for a := range n.held {
		held = append(held, a)
	}
	n.mu.Unlock()

	pan := panUnitsPerSecond * dt
	for _, a := range held {
		switch a {
		case NavigateForward:
			n.ctrl.PanForward(pan)
		case NavigateBackward:
			n.ctrl.PanForward(-pan)
		case NavigateRight:
			n.ctrl.PanRight(pan)
		case NavigateLeft:
			n.ctrl.PanRight(-pan)
		case NavigateOrbitLeft:
			n.ctrl.OrbitLeft()
		case NavigateOrbitRight:
			n.ctrl.OrbitRight()
		case NavigateOrbitUp:
			n.ctrl.OrbitUp()
		case NavigateOrbitDown:
			n.ctrl.OrbitDown()
		}
	}
}
