package videotexture

// Listener receives controller events. Any nil field is ignored, so the zero
// Listener means "no listener attached".
//
// OnFrameAvailable runs on the streaming thread; OnPrerollComplete runs on
// the bus goroutine; OnDimensionsChanged runs on whichever thread negotiated
// caps. Callbacks must not block and must not call Teardown, SetSource or
// Close (those wait for the threads the callbacks run on).
type Listener struct {
	OnFrameAvailable    func()
	OnPrerollComplete   func()
	OnDimensionsChanged func(width, height int)
}

func (l *Listener) frameAvailable() {
	if l != nil && l.OnFrameAvailable != nil {
		l.OnFrameAvailable()
	}
}

func (l *Listener) prerollComplete() {
	if l != nil && l.OnPrerollComplete != nil {
		l.OnPrerollComplete()
	}
}

func (l *Listener) dimensionsChanged(w, h int) {
	if l != nil && l.OnDimensionsChanged != nil {
		l.OnDimensionsChanged(w, h)
	}
}
