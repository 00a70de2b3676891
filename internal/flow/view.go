package flow

// QuestionView is the current question as presented to the user.
type QuestionView struct {
	Key             string `json:"key"`
	Label           string `json:"label"`
	TranslatedLabel string `json:"translated_label,omitempty"`
}

// PendingView shows the literal utterance awaiting confirmation. The raw
// transcript is displayed, not the canonical form, so a non-technical user
// verifies what was heard rather than an internal representation.
type PendingView struct {
	FieldKey string `json:"field_key"`
	Heard    string `json:"heard"`
	Mode     string `json:"mode"`
}

// View is the read-only session state handed to the presentation layer.
type View struct {
	SessionID     string       `json:"session_id,omitempty"`
	Role          Role         `json:"role,omitempty"`
	Phase         Phase        `json:"phase"`
	UILanguage    string       `json:"ui_language,omitempty"`
	QuestionCount int          `json:"question_count,omitempty"`
	Index         int          `json:"index"`
	Question      *QuestionView `json:"question,omitempty"`
	Pending       *PendingView  `json:"pending,omitempty"`
	Answers       []Answer      `json:"answers,omitempty"`
	Languages     []Language    `json:"languages,omitempty"`
}

// View returns a snapshot of the current state. With no live session the
// phase is role selection.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return View{Phase: PhaseRoleSelection}
	}

	v := View{
		SessionID:     c.sess.ID,
		Role:          c.sess.Role,
		Phase:         c.sess.Phase,
		UILanguage:    c.sess.UILanguage,
		QuestionCount: len(c.sess.Questions),
		Index:         c.sess.Index,
		Answers:       c.sess.Answers.Answers(),
	}

	if c.sess.Phase == PhaseLanguageSelection {
		v.Languages = Languages
	}

	if c.sess.Index < len(c.sess.Questions) {
		q := c.sess.Questions[c.sess.Index]
		qv := &QuestionView{Key: q.Key, Label: q.Label}
		if i := c.sess.Index; i < len(c.sess.TranslatedLabels) {
			qv.TranslatedLabel = c.sess.TranslatedLabels[i]
		}
		v.Question = qv
	}

	if p := c.sess.Pending; p != nil {
		v.Pending = &PendingView{FieldKey: p.FieldKey, Heard: p.UIText, Mode: p.Mode}
	}

	return v
}

// CurrentPrompt returns the text and locale to read the current question
// aloud, preferring the translated label.
func (c *Controller) CurrentPrompt() (text, languageCode string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil || c.sess.Index >= len(c.sess.Questions) {
		return "", "", false
	}
	text = c.sess.Questions[c.sess.Index].Label
	if i := c.sess.Index; i < len(c.sess.TranslatedLabels) && c.sess.TranslatedLabels[i] != "" {
		text = c.sess.TranslatedLabels[i]
	}
	languageCode = c.sess.UILanguage
	if languageCode == "" {
		languageCode = "en-IN"
	}
	return text, languageCode, true
}

// Completed returns the finished session's identity and snapshot, used by
// the downstream endpoints (resume content, candidate matches).
func (c *Controller) Completed() (sessionID string, role Role, answers []Answer, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil || c.sess.Phase != PhaseComplete {
		return "", "", nil, false
	}
	return c.sess.ID, c.sess.Role, c.sess.Answers.Answers(), true
}
