package flow

import "testing"

func TestAnswerStoreOrderAndOverwrite(t *testing.T) {
	s := NewAnswerStore()
	s.Set("name", "Asha Devi")
	s.Set("education", "Tenth grade")
	s.Set("age", "32")

	// Overwrite keeps the original position.
	s.Set("name", "Asha D")

	got := s.Answers()
	want := []Answer{
		{Key: "name", Value: "Asha D"},
		{Key: "education", Value: "Tenth grade"},
		{Key: "age", Value: "32"},
	}
	if len(got) != len(want) {
		t.Fatalf("Answers() = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("answer[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestAnswerStoreGet(t *testing.T) {
	s := NewAnswerStore()
	s.Set("location", "Pune")

	if v, ok := s.Get("location"); !ok || v != "Pune" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get found a missing key")
	}

	// Empty string is a real committed value, not absence.
	s.Set("pastJobs", "")
	if v, ok := s.Get("pastJobs"); !ok || v != "" {
		t.Errorf("Get(pastJobs) = %q, %v, want empty committed value", v, ok)
	}
}

func TestAnswerStoreMapIsCopy(t *testing.T) {
	s := NewAnswerStore()
	s.Set("name", "Asha")
	m := s.Map()
	m["name"] = "changed"
	if v, _ := s.Get("name"); v != "Asha" {
		t.Error("Map returned the internal map")
	}
}
