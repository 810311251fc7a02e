package gateway

// Checkpoints and the end of a recording.
//
// The checkpoint flag moves from false to true once, at the first
// CreateCheckpoint while recording or replaying, and never back. These calls
// run on the main thread; the driver keeps checkpoints monotonic.

// HasCheckpoint reports whether a checkpoint exists.
func (g *Gateway) HasCheckpoint() bool {
	return g.hasCheckpoint.Load()
}

// CreateCheckpoint requests a checkpoint from the driver.
//
// It must also be called by processes that do not record: there it reports,
// once, that recording is unsupported on this platform.
func (g *Gateway) CreateCheckpoint() {
	if !g.recordingOrReplaying {
		if g.unsupported != "" && g.sentUnsupported.CompareAndSwap(false, true) {
			g.control.RecordingUnsupported(g.unsupported)
		}
		return
	}

	g.maybeSendUnusable()

	g.rr.NewCheckpoint()
	g.metrics.checkpoints.Inc()
	g.hasCheckpoint.Store(true)

	// A recording with a checkpoint is never silently discarded. When
	// recording all content, the host remembers it once it loads content.
	if !g.recordAllContent {
		g.rr.RememberRecording()
	}
}

// MaybeCreateCheckpoint requests a checkpoint only once CreateCheckpoint has
// created the first one. Call it at the top of the main loop.
func (g *Gateway) MaybeCreateCheckpoint() {
	if g.hasCheckpoint.Load() {
		g.rr.NewCheckpoint()
		g.metrics.checkpoints.Inc()
	}
}

// RememberRecording asks the driver to keep the recording.
func (g *Gateway) RememberRecording() {
	g.rr.RememberRecording()
}

// InvalidateRecording marks the recording unusable. The control channel is
// told at the next checkpoint.
func (g *Gateway) InvalidateRecording(why string) {
	if !g.recordingOrReplaying {
		return
	}
	g.unusable.CompareAndSwap(nil, &why)
	g.logger.Warn("recording invalidated", "reason", why)
	g.rr.InvalidateRecording(why)
}

func (g *Gateway) maybeSendUnusable() {
	reason := g.unusable.Load()
	if reason != nil && g.sentUnusable.CompareAndSwap(false, true) {
		g.control.RecordingUnusable(*reason)
	}
}

// FinishRecording finishes the recording and terminates the process.
//
// It waits until the driver knows whether the recording was created, tells
// the control channel, and waits for the driver to persist the recording.
// Then it runs the terminal effect. It does not return.
//
// A process that is not recording or replaying has nothing to finish; the
// call is logged and ignored.
func (g *Gateway) FinishRecording() {
	if !g.recordingOrReplaying {
		g.logger.Warn("FinishRecording called while not recording")
		return
	}

	created := g.rr.WaitForRecordingCreated()
	g.control.RecordingFinished(g.rr.RecordingID(), created)

	g.rr.FinishRecording()

	g.drv.Print("Recording finished, exiting.")
	g.logger.Info("recording finished", "recording", g.rr.RecordingID(), "created", created)

	g.tearingDown.Store(true)
	g.terminate("recording finished")
}
