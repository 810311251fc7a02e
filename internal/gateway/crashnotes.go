package gateway

// PushCrashNote pushes a diagnostic note that a crash report will carry until
// it is popped. Only the main thread keeps crash notes; on any other thread
// the call is ignored.
func (t *Thread) PushCrashNote(note string) {
	if !t.IsMain() {
		return
	}
	g := t.g
	g.notes = append(g.notes, note)
	g.publishCrashNote(note)
}

// PopCrashNote pops the innermost crash note. Popping an empty stack is fatal.
func (t *Thread) PopCrashNote() {
	if !t.IsMain() {
		return
	}
	g := t.g
	if len(g.notes) == 0 {
		g.fatal(&FatalError{Code: CodeEmptyCrashNotes, Message: "PopCrashNote with no crash notes", Thread: t.id})
		return
	}
	g.notes = g.notes[:len(g.notes)-1]

	top := ""
	if n := len(g.notes); n > 0 {
		top = g.notes[n-1]
	}
	g.publishCrashNote(top)
}

// WithCrashNote runs fn with note pushed.
func (t *Thread) WithCrashNote(note string, fn func()) {
	t.PushCrashNote(note)
	defer t.PopCrashNote()
	fn()
}

func (g *Gateway) publishCrashNote(note string) {
	g.crashNote.Store(&note)
	g.metrics.crashNoteDepth.Set(float64(len(g.notes)))
	g.drv.SetCrashNote(note)
}

// CrashNote returns the innermost crash note, or "". Safe from any goroutine.
func (g *Gateway) CrashNote() string {
	if p := g.crashNote.Load(); p != nil {
		return *p
	}
	return ""
}
