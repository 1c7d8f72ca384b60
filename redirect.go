package engine

import (
	"bytes"
	"io"
)

// StreamRedirect captures what scripts write to the runtime's standard
// output and error streams. Only one redirect may be active at a time.
type StreamRedirect struct {
	enabled bool

	stdoutBackup io.Writer
	stderrBackup io.Writer

	stdoutBuffer *bytes.Buffer
	stderrBuffer *bytes.Buffer
}

func NewStreamRedirect(enabled bool) *StreamRedirect {
	return &StreamRedirect{
		enabled:      enabled,
		stdoutBuffer: &bytes.Buffer{},
		stderrBuffer: &bytes.Buffer{},
	}
}

func (r *StreamRedirect) IsEnabled() bool { return r.enabled }

func (r *StreamRedirect) SetEnabled(enabled bool) { r.enabled = enabled }

// Activate installs fresh buffers as the runtime streams. The original
// streams are backed up only once, so activating twice keeps them.
func (r *StreamRedirect) Activate() error {
	if !r.enabled {
		return nil
	}
	eng, err := Instance().Engine()
	if err != nil {
		return err
	}

	if r.stdoutBackup == nil {
		r.stdoutBackup = eng.Stdout()
	}
	if r.stderrBackup == nil {
		r.stderrBackup = eng.Stderr()
	}

	r.stdoutBuffer = &bytes.Buffer{}
	eng.SetStdout(r.stdoutBuffer)
	r.stderrBuffer = &bytes.Buffer{}
	eng.SetStderr(r.stderrBuffer)
	return nil
}

// Deactivate restores the backed-up streams. The buffers stay readable
// until the next Activate.
func (r *StreamRedirect) Deactivate() error {
	if r.stdoutBackup == nil && r.stderrBackup == nil {
		return nil
	}
	eng, err := Instance().Engine()
	if err != nil {
		r.stdoutBackup, r.stderrBackup = nil, nil
		return err
	}

	if r.stdoutBackup != nil {
		eng.SetStdout(r.stdoutBackup)
		r.stdoutBackup = nil
	}
	if r.stderrBackup != nil {
		eng.SetStderr(r.stderrBackup)
		r.stderrBackup = nil
	}
	return nil
}

func (r *StreamRedirect) StdoutString() string {
	return r.stdoutBuffer.String()
}

func (r *StreamRedirect) StderrString() string {
	return r.stderrBuffer.String()
}
