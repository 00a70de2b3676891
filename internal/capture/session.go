// Package capture owns the audio accumulator for one recording cycle. The
// actual recorder lives in the browser; chunks arrive over the wire and are
// buffered here until Stop yields a single Clip. A Session never holds more
// than one in-flight clip: the accumulator is cleared on every Stop, success
// or failure, and on Abort.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrDeviceUnavailable means no capture source is bound or it failed to open.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrEmptyRecording means Stop found zero accumulated bytes.
	ErrEmptyRecording = errors.New("no audio data recorded")
	// ErrAlreadyRecording means Start was called while a cycle is active.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording means Push or Stop was called outside a recording cycle.
	ErrNotRecording = errors.New("no recording in progress")
)

// DefaultSettleDelay bounds how long Stop waits for a final in-flight chunk
// before sealing the clip. Recorders emit on a timer, so the last chunk often
// trails the stop intent by a few tens of milliseconds.
const DefaultSettleDelay = 100 * time.Millisecond

// Clip is one sealed recording. Bytes are exclusively owned by the caller.
type Clip struct {
	Bytes    []byte
	MIMEType string
}

// Source is the capture device handle. Open is called on Start and must
// report ErrDeviceUnavailable-worthy failures; Close releases the device on
// teardown.
type Source interface {
	Open() error
	Close() error
}

// Session accumulates audio chunks for a single recording cycle.
type Session struct {
	src      Source
	mimeType string
	settle   time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	recording bool
	settling  bool
	chunks    [][]byte
}

// Options configures a capture session.
type Options struct {
	Source      Source
	MIMEType    string
	SettleDelay time.Duration
	Log         zerolog.Logger
}

// NewSession creates a capture session. A nil Source makes Start fail with
// ErrDeviceUnavailable, which is how a client without microphone permission
// presents itself.
func NewSession(opts Options) *Session {
	mime := opts.MIMEType
	if mime == "" {
		mime = "audio/webm"
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Session{
		src:      opts.Source,
		mimeType: mime,
		settle:   settle,
		log:      opts.Log,
	}
}

// Start begins a recording cycle. Calling Start while a cycle is active is a
// caller error; the active cycle is left untouched so clips never merge.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording || s.settling {
		return ErrAlreadyRecording
	}
	if s.src == nil {
		return ErrDeviceUnavailable
	}
	if err := s.src.Open(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.chunks = nil
	s.recording = true
	s.log.Debug().Msg("recording started")
	return nil
}

// Push appends one chunk to the accumulator. Chunks are copied so the caller
// may reuse its buffer. Valid while recording or during the settle window.
func (s *Session) Push(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording && !s.settling {
		return ErrNotRecording
	}
	if len(chunk) == 0 {
		return nil
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	s.chunks = append(s.chunks, buf)
	return nil
}

// Stop ends the cycle and yields the sealed clip. It waits the settle delay
// so a final chunk already on the wire still lands, then clears the
// accumulator regardless of outcome.
func (s *Session) Stop() (Clip, error) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return Clip{}, ErrNotRecording
	}
	s.recording = false
	s.settling = true
	s.mu.Unlock()

	time.Sleep(s.settle)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settling = false

	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	data := make([]byte, 0, total)
	for _, c := range s.chunks {
		data = append(data, c...)
	}
	s.chunks = nil

	if total == 0 {
		return Clip{}, ErrEmptyRecording
	}

	s.log.Debug().Int("bytes", total).Msg("recording stopped")
	return Clip{Bytes: data, MIMEType: s.mimeType}, nil
}

// Recording reports whether a cycle is currently active.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Abort tears the cycle down from any state and releases the device. Used on
// session reset so navigating away never leaves the microphone held.
func (s *Session) Abort() {
	s.mu.Lock()
	wasActive := s.recording || s.settling
	s.recording = false
	s.settling = false
	s.chunks = nil
	s.mu.Unlock()

	if s.src != nil {
		if err := s.src.Close(); err != nil {
			s.log.Warn().Err(err).Msg("capture source close failed")
		}
	}
	if wasActive {
		s.log.Debug().Msg("recording aborted")
	}
}
