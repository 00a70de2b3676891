package flow

// Answer is one confirmed field in question order.
type Answer struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AnswerStore is the accumulating map of confirmed canonical values, in
// question order. It is owned by the controller and mutated only at the
// confirm step; it is not safe for use outside the controller's lock.
type AnswerStore struct {
	keys   []string
	values map[string]string
}

// NewAnswerStore returns an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{values: make(map[string]string)}
}

// Set records a confirmed value. A repeated key overwrites in place and
// keeps its original position.
func (s *AnswerStore) Set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the confirmed value for a key.
func (s *AnswerStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of confirmed fields.
func (s *AnswerStore) Len() int {
	return len(s.keys)
}

// Answers returns an ordered copy of all confirmed fields.
func (s *AnswerStore) Answers() []Answer {
	out := make([]Answer, len(s.keys))
	for i, k := range s.keys {
		out[i] = Answer{Key: k, Value: s.values[k]}
	}
	return out
}

// Map returns a copy of the key→value mapping.
func (s *AnswerStore) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
