package tts

import (
	"sync"
	"time"
)

// The engine is the process-wide shared TTS client. The model behind it is
// expensive to load, so one client (and therefore one warm model) is reused
// for the life of the process. Processing is serial (one job claimed per
// pass), so the engine is never used for concurrent synthesis.
var (
	engineMu sync.Mutex
	engine   *Client
)

// Engine returns the shared TTS client, creating it on first use.
func Engine(baseURL string, timeout time.Duration) *Client {
	engineMu.Lock()
	defer engineMu.Unlock()

	if engine == nil {
		engine = NewClient(baseURL, timeout)
	}
	return engine
}

// ResetEngine drops the cached client. Test isolation only; there is no
// teardown in normal operation.
func ResetEngine() {
	engineMu.Lock()
	defer engineMu.Unlock()
	engine = nil
}
