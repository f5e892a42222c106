package evdns

import "testing"

func TestNewSearchSequenceAbsolute(t *testing.T) {
	s := newSearchSequence("www.example.com.", 1, []string{"corp.example.com"})
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if s.At(0) != "www.example.com." {
		t.Errorf("At(0) = %q, want absolute name unchanged", s.At(0))
	}
}

func TestNewSearchSequenceAboveNdots(t *testing.T) {
	// "www.example.com" has 2 dots, >= ndots(1), so the bare name comes first.
	s := newSearchSequence("www.example.com", 1, []string{"corp.example.com"})
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.At(0) != "www.example.com" {
		t.Errorf("At(0) = %q, want bare name first", s.At(0))
	}
	if s.At(1) != "www.example.com.corp.example.com" {
		t.Errorf("At(1) = %q, want bare name + search suffix", s.At(1))
	}
}

func TestNewSearchSequenceBelowNdots(t *testing.T) {
	// "host" has 0 dots, below ndots(1), so the search list is tried first and the bare name
	// is not tried at all unless the search list is empty.
	s := newSearchSequence("host", 1, []string{"corp.example.com", "example.com"})
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.At(0) != "host.corp.example.com" {
		t.Errorf("At(0) = %q, want first search suffix", s.At(0))
	}
	if s.At(1) != "host.example.com" {
		t.Errorf("At(1) = %q, want second search suffix", s.At(1))
	}
}

func TestNewSearchSequenceEmptySearchList(t *testing.T) {
	s := newSearchSequence("host", 1, nil)
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if s.At(0) != "host" {
		t.Errorf("At(0) = %q, want bare name when there's nothing else to try", s.At(0))
	}
}

func TestNewSearchSequenceTrimsTrailingDotFromSuffix(t *testing.T) {
	s := newSearchSequence("host", 5, []string{"example.com."})
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if s.At(0) != "host.example.com" {
		t.Errorf("At(0) = %q, want trailing dot stripped from suffix before joining", s.At(0))
	}
}
