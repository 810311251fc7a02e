package uievents

import (
	"strings"
	"sync"
)

// Sink receives the UI events that pass the filters. *gateway.Gateway
// implements it.
type Sink interface {
	HasCheckpoint() bool
	OnMouseEvent(kind string, x, y int)
	OnKeyEvent(kind, key string)
	OnNavigationEvent(kind, url string)
}

// MouseMessage is the host's mouse event type.
type MouseMessage int

const (
	MouseDown MouseMessage = iota + 1
	MouseUp
	MouseMove
	MouseEnter
	MouseLeave
	MouseWheel
)

// KeyMessage is the host's keyboard event type.
type KeyMessage int

const (
	KeyPress KeyMessage = iota + 1
	KeyDown
	KeyUp
	KeyRepeat
)

// Event kinds sent to the sink.
const (
	KindMouseDown = "mousedown"
	KindMouseMove = "mousemove"
	KindKeyPress  = "keypress"
	KindKeyDown   = "keydown"
	KindKeyUp     = "keyup"
	KindLocation  = "location"
)

const initialPage = "about:blank"

// Adapter filters host UI events into a Sink. It is safe for concurrent use.
type Adapter struct {
	sink Sink

	mu      sync.Mutex
	lastURL string
}

// New returns an Adapter forwarding to sink.
func New(sink Sink) *Adapter {
	return &Adapter{sink: sink}
}

// Mouse forwards a mouse event at client coordinates x, y.
// It reports whether the event was forwarded.
func (a *Adapter) Mouse(msg MouseMessage, x, y int) bool {
	if !a.sink.HasCheckpoint() {
		return false
	}
	var kind string
	switch msg {
	case MouseDown:
		kind = KindMouseDown
	case MouseMove:
		kind = KindMouseMove
	default:
		return false
	}
	a.sink.OnMouseEvent(kind, x, y)
	return true
}

// Key forwards a keyboard event for the DOM key name key.
func (a *Adapter) Key(msg KeyMessage, key string) bool {
	if !a.sink.HasCheckpoint() {
		return false
	}
	var kind string
	switch msg {
	case KeyPress:
		kind = KindKeyPress
	case KeyDown:
		kind = KindKeyDown
	case KeyUp:
		kind = KindKeyUp
	default:
		return false
	}
	a.sink.OnKeyEvent(kind, key)
	return true
}

// Location forwards a change of the document location to url.
// sameDocument is set for history changes that keep the document.
func (a *Adapter) Location(url string, sameDocument bool) bool {
	if !a.sink.HasCheckpoint() {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Session history restored before the first about:blank is not navigation.
	if a.lastURL == "" {
		if url != initialPage {
			return false
		}
		a.lastURL = url
	}
	if isAboutURL(url) {
		return false
	}
	if sameDocument && url == a.lastURL {
		return false
	}

	a.sink.OnNavigationEvent(KindLocation, url)
	a.lastURL = url
	return true
}

// LastURL returns the last forwarded URL, about:blank once the initial page
// loaded, or "".
func (a *Adapter) LastURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastURL
}

func isAboutURL(url string) bool {
	return len(url) >= len("about:") && strings.EqualFold(url[:len("about:")], "about:")
}
