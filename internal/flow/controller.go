package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mauka-works/intake-engine/internal/capture"
	"github.com/mauka-works/intake-engine/internal/metrics"
	"github.com/mauka-works/intake-engine/internal/normalize"
	"github.com/mauka-works/intake-engine/internal/speech"
	"github.com/mauka-works/intake-engine/internal/translate"
)

// Phase is the single authoritative state of the live session.
type Phase string

const (
	PhaseRoleSelection        Phase = "role_selection"
	PhaseLanguageSelection    Phase = "language_selection"
	PhaseAwaitingInput        Phase = "awaiting_input"
	PhaseRecording            Phase = "recording"
	PhaseProcessing           Phase = "processing"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseComplete             Phase = "complete"
)

var (
	// ErrNoSession means no session has been started yet.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidPhase means the intent is not legal in the current phase.
	// Includes the double-confirm case: a confirm racing an in-flight commit
	// is rejected as a no-op.
	ErrInvalidPhase = errors.New("action not allowed in current phase")
	// ErrUnknownLanguage means the requested UI language is not offered.
	ErrUnknownLanguage = errors.New("unknown language")
)

// Recognizer transcribes a sealed clip in the session language.
type Recognizer interface {
	Recognize(ctx context.Context, clip capture.Clip, languageCode string) (string, error)
}

// Translator converts text between base language codes.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Sink receives the completed answer snapshot, best-effort.
type Sink interface {
	Append(ctx context.Context, role Role, answers []Answer) error
}

// Archive persists completed submissions, best-effort.
type Archive interface {
	SaveSubmission(ctx context.Context, sessionID string, role Role, language string, answers []Answer) error
}

// Publisher announces completed sessions to downstream workers, best-effort.
type Publisher interface {
	PublishCompletion(sessionID string, role Role, answers []Answer) error
}

// Policy configures behavior that varied across the product's page
// iterations, so one controller serves all of them.
type Policy struct {
	// ConfirmationRequired gates each answer behind an explicit accept.
	// When false, a processed answer commits immediately.
	ConfirmationRequired bool
	// BatchTranslateQuestions translates all labels up front at language
	// selection instead of per question.
	BatchTranslateQuestions bool
	// TranslateProperNouns also routes name/location answers through the
	// answer-to-English translation step. Off by default: proper nouns are
	// stored as transcribed.
	TranslateProperNouns bool
}

// DefaultPolicy matches the latest product iteration.
func DefaultPolicy() Policy {
	return Policy{ConfirmationRequired: true, BatchTranslateQuestions: true}
}

// PendingAnswer is the unconfirmed candidate for the current field. It
// exists only between processing and confirm/reject and is never merged into
// the store without an explicit accept.
type PendingAnswer struct {
	FieldKey      string
	RawTranscript string // literal utterance (or typed text) in the UI language
	CanonicalText string // normalized English value that would be stored
	UIText        string // what the confirmation screen shows
	Mode          string // "voice" or "typed"
}

// Session is the single live intake session.
type Session struct {
	ID               string
	Role             Role
	UILanguage       string
	Questions        []Question
	TranslatedLabels []string
	Index            int
	Phase            Phase
	Answers          *AnswerStore
	Pending          *PendingAnswer
	StartedAt        time.Time
}

// Options wires the controller's collaborators. Sink, Archive and Publisher
// are optional; a nil collaborator is skipped at completion.
type Options struct {
	Catalog        *Catalog
	Recognizer     Recognizer
	Translator     Translator
	Sink           Sink
	Archive        Archive
	Publisher      Publisher
	CaptureFactory func() *capture.Session
	Policy         Policy
	Log            zerolog.Logger
}

// Controller owns the live session and serializes every intent against it.
// Network steps run outside the lock; a generation counter invalidates their
// results if the session was reset underneath them.
type Controller struct {
	catalog    *Catalog
	recognizer Recognizer
	translator Translator
	sink       Sink
	archive    Archive
	publisher  Publisher
	newCapture func() *capture.Session
	policy     Policy
	log        zerolog.Logger

	mu   sync.Mutex
	sess *Session
	cap  *capture.Session
	gen  uint64
}

// NewController creates a controller with no live session.
func NewController(opts Options) *Controller {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	factory := opts.CaptureFactory
	if factory == nil {
		factory = func() *capture.Session { return capture.NewSession(capture.Options{}) }
	}
	return &Controller{
		catalog:    catalog,
		recognizer: opts.Recognizer,
		translator: opts.Translator,
		sink:       opts.Sink,
		archive:    opts.Archive,
		publisher:  opts.Publisher,
		newCapture: factory,
		policy:     opts.Policy,
		log:        opts.Log,
	}
}

// StartSession begins a fresh session for the role, replacing any previous
// one. Any in-flight recording or processing of the old session is torn down.
func (c *Controller) StartSession(role Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()

	c.sess = &Session{
		ID:        uuid.NewString(),
		Role:      role,
		Questions: c.catalog.Questions(role),
		Phase:     PhaseLanguageSelection,
		Answers:   NewAnswerStore(),
		StartedAt: time.Now().UTC(),
	}
	c.cap = c.newCapture()

	c.log.Info().Str("session_id", c.sess.ID).Str("role", string(role)).Msg("session started")
	return nil
}

// SelectLanguage binds the UI language and translates the question labels.
// Per-label translation failures fall back to the English label and are
// surfaced as a non-fatal warning count, never as a hard error.
func (c *Controller) SelectLanguage(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.sess.Phase != PhaseLanguageSelection && c.sess.Phase != PhaseAwaitingInput {
		c.mu.Unlock()
		return fmt.Errorf("%w: select language during %s", ErrInvalidPhase, c.sess.Phase)
	}
	if !ValidLanguage(code) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}

	questions := make([]Question, len(c.sess.Questions))
	copy(questions, c.sess.Questions)
	gen := c.gen
	sessID := c.sess.ID
	c.mu.Unlock()

	labels := make([]string, len(questions))
	failed := 0
	if c.policy.BatchTranslateQuestions && c.translator != nil {
		for i, q := range questions {
			translated, err := c.translator.Translate(ctx, q.Label, "en", BaseLang(code))
			if err != nil {
				c.log.Warn().Err(err).Str("field", q.Key).Msg("question label translation failed, using english")
				labels[i] = q.Label
				failed++
				continue
			}
			labels[i] = translated
		}
	} else {
		for i, q := range questions {
			labels[i] = q.Label
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.gen != gen {
		return ErrNoSession
	}

	c.sess.UILanguage = code
	c.sess.TranslatedLabels = labels
	c.sess.Phase = PhaseAwaitingInput
	c.log.Info().
		Str("session_id", sessID).
		Str("language", code).
		Int("labels_fallback", failed).
		Msg("language selected")
	return nil
}

// StartRecording opens a capture cycle for the current field.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return ErrNoSession
	}
	if c.sess.Phase != PhaseAwaitingInput {
		return fmt.Errorf("%w: start recording during %s", ErrInvalidPhase, c.sess.Phase)
	}
	if err := c.cap.Start(); err != nil {
		// State stays AwaitingInput so the user can retry or type instead.
		return err
	}
	c.sess.Phase = PhaseRecording
	return nil
}

// PushChunk forwards one audio chunk into the active capture cycle.
func (c *Controller) PushChunk(chunk []byte) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.sess.Phase != PhaseRecording && c.sess.Phase != PhaseProcessing {
		c.mu.Unlock()
		return fmt.Errorf("%w: push chunk during %s", ErrInvalidPhase, c.sess.Phase)
	}
	capSess := c.cap
	c.mu.Unlock()

	// The capture session does its own cycle bookkeeping, including the
	// settle window after stop.
	return capSess.Push(chunk)
}

// StopRecording seals the clip and runs the answer pipeline:
// recognize → translate to English (best-effort) → normalize. On success the
// result is held as the pending answer; on recognition failure the field
// returns to awaiting input untouched.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.sess.Phase != PhaseRecording {
		c.mu.Unlock()
		return fmt.Errorf("%w: stop recording during %s", ErrInvalidPhase, c.sess.Phase)
	}
	c.sess.Phase = PhaseProcessing
	gen := c.gen
	capSess := c.cap
	question := c.sess.Questions[c.sess.Index]
	language := c.sess.UILanguage
	c.mu.Unlock()

	clip, err := capSess.Stop()
	if err != nil {
		c.failProcessing(gen, err)
		return err
	}

	transcript, err := c.recognizer.Recognize(ctx, clip, language)
	if err != nil {
		if errors.Is(err, speech.ErrNoSpeech) {
			metrics.RecognitionsTotal.WithLabelValues("no_speech").Inc()
		} else {
			metrics.RecognitionsTotal.WithLabelValues("unavailable").Inc()
		}
		c.failProcessing(gen, err)
		return err
	}
	metrics.RecognitionsTotal.WithLabelValues("ok").Inc()

	canonical := c.toCanonical(ctx, transcript, language, question.Key)

	pending := &PendingAnswer{
		FieldKey:      question.Key,
		RawTranscript: transcript,
		CanonicalText: canonical,
		UIText:        transcript,
		Mode:          "voice",
	}
	return c.finishProcessing(gen, pending)
}

// SubmitTyped runs the typed-input path: the text is normalized directly and
// held for confirmation, no transcription or translation involved.
func (c *Controller) SubmitTyped(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return ErrNoSession
	}
	if c.sess.Phase != PhaseAwaitingInput {
		return fmt.Errorf("%w: typed answer during %s", ErrInvalidPhase, c.sess.Phase)
	}

	question := c.sess.Questions[c.sess.Index]
	pending := &PendingAnswer{
		FieldKey:      question.Key,
		RawTranscript: text,
		CanonicalText: normalize.Apply(text, normalize.CategoryFor(question.Key)),
		UIText:        text,
		Mode:          "typed",
	}

	if !c.policy.ConfirmationRequired {
		c.sess.Pending = pending
		c.commitLocked()
		return nil
	}
	c.sess.Pending = pending
	c.sess.Phase = PhaseAwaitingConfirmation
	return nil
}

// Confirm commits the pending answer. This is the only point that mutates
// the answer store. A second confirm while the first is settling finds the
// phase already advanced and is rejected, so each pending answer produces
// exactly one store write.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()

	if c.sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.sess.Phase != PhaseAwaitingConfirmation || c.sess.Pending == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: confirm during %s", ErrInvalidPhase, c.sess.Phase)
	}

	completed := c.commitLocked()
	var snapshot []Answer
	var sess *Session
	if completed {
		sess = c.sess
		snapshot = c.sess.Answers.Answers()
	}
	c.mu.Unlock()

	if completed {
		c.dispatchCompletion(ctx, sess, snapshot)
	}
	return nil
}

// commitLocked writes the pending answer and advances the index. Returns
// true when the session just reached the complete phase. Caller holds c.mu.
func (c *Controller) commitLocked() bool {
	p := c.sess.Pending
	c.sess.Answers.Set(p.FieldKey, p.CanonicalText)
	c.sess.Pending = nil
	metrics.AnswersCommittedTotal.WithLabelValues(p.Mode).Inc()

	c.sess.Index++
	if c.sess.Index >= len(c.sess.Questions) {
		c.sess.Phase = PhaseComplete
		metrics.SessionsCompletedTotal.WithLabelValues(string(c.sess.Role)).Inc()
		c.log.Info().
			Str("session_id", c.sess.ID).
			Int("answers", c.sess.Answers.Len()).
			Msg("session complete")
		return true
	}
	c.sess.Phase = PhaseAwaitingInput
	return false
}

// Reject discards the pending answer and returns to the same field.
func (c *Controller) Reject() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return ErrNoSession
	}
	if c.sess.Phase != PhaseAwaitingConfirmation {
		return fmt.Errorf("%w: reject during %s", ErrInvalidPhase, c.sess.Phase)
	}
	c.sess.Pending = nil
	c.sess.Phase = PhaseAwaitingInput
	metrics.AnswersRejectedTotal.Inc()
	return nil
}

// Reset tears the session down from any phase, releasing the capture device
// and invalidating in-flight processing.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *Controller) teardownLocked() {
	c.gen++
	if c.cap != nil {
		c.cap.Abort()
		c.cap = nil
	}
	if c.sess != nil {
		c.log.Info().Str("session_id", c.sess.ID).Str("phase", string(c.sess.Phase)).Msg("session torn down")
		c.sess = nil
	}
}

// failProcessing returns the machine to awaiting input after a pipeline
// failure, unless the session was reset while the pipeline ran.
func (c *Controller) failProcessing(gen uint64, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.gen != gen {
		return
	}
	c.sess.Phase = PhaseAwaitingInput
	c.log.Warn().Err(cause).Str("session_id", c.sess.ID).Msg("answer pipeline failed")
}

// finishProcessing installs the pending answer produced off-lock, unless the
// session was reset while the pipeline ran.
func (c *Controller) finishProcessing(gen uint64, pending *PendingAnswer) error {
	c.mu.Lock()

	if c.sess == nil || c.gen != gen {
		c.mu.Unlock()
		return ErrNoSession
	}

	if !c.policy.ConfirmationRequired {
		c.sess.Pending = pending
		completed := c.commitLocked()
		var snapshot []Answer
		var sess *Session
		if completed {
			sess = c.sess
			snapshot = c.sess.Answers.Answers()
		}
		c.mu.Unlock()
		if completed {
			c.dispatchCompletion(context.Background(), sess, snapshot)
		}
		return nil
	}

	c.sess.Pending = pending
	c.sess.Phase = PhaseAwaitingConfirmation
	c.mu.Unlock()
	return nil
}

// toCanonical translates an utterance to English (best-effort) and applies
// the field's normalization rule. Translation failure degrades to the raw
// transcript rather than blocking the answer.
func (c *Controller) toCanonical(ctx context.Context, transcript, language, fieldKey string) string {
	cat := normalize.CategoryFor(fieldKey)

	text := transcript
	skipTranslation := cat == normalize.ProperNoun && !c.policy.TranslateProperNouns
	if c.translator != nil && !skipTranslation {
		translated, err := c.translator.Translate(ctx, transcript, BaseLang(language), "en")
		if err != nil {
			if !errors.Is(err, translate.ErrTranslationFailed) {
				c.log.Warn().Err(err).Msg("translator returned unexpected error")
			}
			metrics.TranslationFallbacksTotal.Inc()
			c.log.Warn().Err(err).Str("field", fieldKey).Msg("answer translation failed, keeping raw transcript")
		} else {
			text = translated
		}
	}

	return normalize.Apply(text, cat)
}

// dispatchCompletion pushes the finished snapshot to the configured
// collaborators. Every dispatch is best-effort: failures are logged and
// counted, never surfaced to the user flow.
func (c *Controller) dispatchCompletion(ctx context.Context, sess *Session, answers []Answer) {
	log := c.log.With().Str("session_id", sess.ID).Logger()

	if c.sink != nil {
		if err := c.sink.Append(ctx, sess.Role, answers); err != nil {
			metrics.SinkFailuresTotal.WithLabelValues("sheet").Inc()
			log.Error().Err(err).Msg("spreadsheet append failed")
		}
	}
	if c.archive != nil {
		if err := c.archive.SaveSubmission(ctx, sess.ID, sess.Role, sess.UILanguage, answers); err != nil {
			metrics.SinkFailuresTotal.WithLabelValues("archive").Inc()
			log.Error().Err(err).Msg("submission archive failed")
		}
	}
	if c.publisher != nil {
		if err := c.publisher.PublishCompletion(sess.ID, sess.Role, answers); err != nil {
			metrics.SinkFailuresTotal.WithLabelValues("events").Inc()
			log.Warn().Err(err).Msg("completion event publish failed")
		}
	}
}
