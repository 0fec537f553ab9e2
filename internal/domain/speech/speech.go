// Package speech holds the stt and tts capabilities. Both are stubs: they
// hold the capability's slot in the router and answer health probes, while
// invocation explains what is missing. Real engines plug in behind the same
// provider contract.
package speech

import (
	"context"

	"github.com/pearllabs/lolo/internal/domain/task"
)

// STT is the speech-to-text stub provider.
type STT struct{}

// NewSTT creates the stt stub.
func NewSTT() *STT { return &STT{} }

// Name implements task.Provider.
func (*STT) Name() string { return "stt" }

// Health always succeeds; the stub has no upstream to probe.
func (s *STT) Health(_ context.Context) task.Health {
	return task.NewHealth(s.Name(), true, map[string]any{"impl": "stub"})
}

// Invoke acknowledges the request without transcribing anything.
func (s *STT) Invoke(_ context.Context, t task.Task) task.ProviderResult {
	res := task.Success("Speech-to-text is not yet available. Attach audio once an engine is installed.")
	res.Warnings = []string{"stub_implementation"}
	if len(t.Attachments) > 0 {
		res.Data = map[string]any{"attachments": len(t.Attachments)}
	}
	return res
}

// TTS is the text-to-speech stub provider.
type TTS struct{}

// NewTTS creates the tts stub.
func NewTTS() *TTS { return &TTS{} }

// Name implements task.Provider.
func (*TTS) Name() string { return "tts" }

// Health always succeeds; the stub has no upstream to probe.
func (s *TTS) Health(_ context.Context) task.Health {
	return task.NewHealth(s.Name(), true, map[string]any{"impl": "stub"})
}

// Invoke acknowledges the request without synthesising anything.
func (s *TTS) Invoke(_ context.Context, _ task.Task) task.ProviderResult {
	res := task.Success("Text-to-speech is not yet available. No audio was produced.")
	res.Warnings = []string{"stub_implementation"}
	return res
}
