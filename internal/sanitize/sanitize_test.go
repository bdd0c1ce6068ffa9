package sanitize

import (
	"errors"
	"strings"
	"testing"
)

const sample = "Contact John Smith at 555-1234 today."

func TestAddSpanInitialStatus(t *testing.T) {
	st := NewStore(sample)

	oracle, err := st.AddSpan(Candidate{ID: "PER-0", Category: "PER", Start: 8, End: 18})
	if err != nil {
		t.Fatalf("add oracle: %v", err)
	}
	if oracle.Status != StatusPending || oracle.ID != "PER-0" || oracle.Label != "John Smith" {
		t.Fatalf("unexpected oracle span %#v", oracle)
	}

	user, err := st.AddSpan(Candidate{Start: 22, End: 30, Source: SourceUser})
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	if user.Status != StatusConfirmed || user.Category != CategoryCustom {
		t.Fatalf("unexpected user span %#v", user)
	}
	if !strings.HasPrefix(user.ID, "CUSTOM-") {
		t.Fatalf("user span id %q should start with CUSTOM-", user.ID)
	}
}

func TestAddSpanInvalidRange(t *testing.T) {
	st := NewStore("héllo")
	cases := []struct {
		name       string
		start, end int
	}{
		{"negative start", -1, 2},
		{"end past text", 0, 99},
		{"reversed", 4, 2},
		{"splits rune", 0, 2},
	}
	for _, tc := range cases {
		if _, err := st.AddSpan(Candidate{Start: tc.start, End: tc.end}); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("%s: want ErrInvalidRange, got %v", tc.name, err)
		}
	}
	if st.Len() != 0 {
		t.Fatalf("rejected spans must not be stored, have %d", st.Len())
	}
}

func TestAddSpanZeroLengthIsValid(t *testing.T) {
	st := NewStore(sample)
	sp, err := st.AddSpan(Candidate{Start: 5, End: 5})
	if err != nil {
		t.Fatalf("zero-length span: %v", err)
	}
	if err := st.SetStatus(sp.ID, StatusConfirmed); err != nil {
		t.Fatalf("zero-length span should be editable: %v", err)
	}
}

func TestAddSpanDuplicateIDGetsFreshID(t *testing.T) {
	st := NewStore(sample)
	a, _ := st.AddSpan(Candidate{ID: "X-0", Start: 0, End: 7})
	b, err := st.AddSpan(Candidate{ID: "X-0", Start: 8, End: 12})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("ids must be unique, both %q", a.ID)
	}
	if _, ok := st.Get(b.ID); !ok {
		t.Fatalf("span %q not addressable", b.ID)
	}
}

func TestSetStatus(t *testing.T) {
	st := NewStore(sample)
	sp, _ := st.AddSpan(Candidate{ID: "PER-0", Start: 8, End: 18})

	for _, want := range []Status{StatusConfirmed, StatusRejected, StatusPending, StatusConfirmed} {
		if err := st.SetStatus(sp.ID, want); err != nil {
			t.Fatalf("set %s: %v", want, err)
		}
		got, _ := st.Get(sp.ID)
		if got.Status != want {
			t.Fatalf("status = %s, want %s", got.Status, want)
		}
	}

	if err := st.SetStatus("missing", StatusConfirmed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := st.SetStatus(sp.ID, Status("archived")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
}

func TestSetAllStatus(t *testing.T) {
	st := NewStore(sample)
	st.AddSpan(Candidate{Start: 0, End: 7})
	st.AddSpan(Candidate{Start: 8, End: 18})
	st.AddSpan(Candidate{Start: 22, End: 30, Source: SourceUser})

	n, err := st.SetAllStatus(StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm all: %v", err)
	}
	if n != 2 {
		t.Fatalf("changed = %d, want 2", n)
	}
	if c := st.Counts(); c.Confirmed != 3 || c.Total != 3 {
		t.Fatalf("counts %#v", c)
	}

	st.SetAllStatus(StatusRejected)
	if c := st.Counts(); c.Rejected != 3 || c.Confirmed != 0 {
		t.Fatalf("counts after reject all %#v", c)
	}
}

func TestReplaceDocumentResetsSpans(t *testing.T) {
	st := NewStore(sample)
	st.AddSpan(Candidate{ID: "a", Start: 0, End: 7})
	gen, fp := st.Generation(), st.Fingerprint()

	st.ReplaceDocument("another text")
	if st.Len() != 0 {
		t.Fatalf("spans survived replace: %d", st.Len())
	}
	if _, ok := st.Get("a"); ok {
		t.Fatalf("old span still addressable")
	}
	if st.Generation() == gen {
		t.Fatalf("generation unchanged")
	}
	if st.Fingerprint() == fp || len(st.Fingerprint()) != 64 {
		t.Fatalf("fingerprint %q", st.Fingerprint())
	}
	if st.Text() != "another text" {
		t.Fatalf("text %q", st.Text())
	}
}

func TestOrderedIsStableByStart(t *testing.T) {
	st := NewStore(sample)
	st.AddSpan(Candidate{ID: "late", Start: 22, End: 30})
	st.AddSpan(Candidate{ID: "tie-1", Start: 8, End: 12})
	st.AddSpan(Candidate{ID: "tie-2", Start: 8, End: 18})
	st.AddSpan(Candidate{ID: "first", Start: 0, End: 7})

	var ids []string
	for _, sp := range st.Ordered() {
		ids = append(ids, sp.ID)
	}
	if got := strings.Join(ids, ","); got != "first,tie-1,tie-2,late" {
		t.Fatalf("order = %s", got)
	}
}

func TestAddFromSelection(t *testing.T) {
	st := NewStore("call 555-1234 or 555-1234")
	sp, err := st.AddFromSelection("  555-1234\n")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sp.Start != 5 || sp.End != 13 || sp.Status != StatusConfirmed || sp.Label != "555-1234" {
		t.Fatalf("unexpected span %#v", sp)
	}

	for _, sel := range []string{"", "   ", "not there"} {
		if _, err := st.AddFromSelection(sel); !errors.Is(err, ErrNoOccurrence) {
			t.Fatalf("selection %q: want ErrNoOccurrence, got %v", sel, err)
		}
	}
	if st.Len() != 1 {
		t.Fatalf("failed selections must not add spans, have %d", st.Len())
	}
}

func TestRedactNothingConfirmed(t *testing.T) {
	st := NewStore(sample)
	st.AddSpan(Candidate{Start: 8, End: 18})
	if _, err := st.Redact(DefaultMask); !errors.Is(err, ErrNothingToRedact) {
		t.Fatalf("want ErrNothingToRedact, got %v", err)
	}
}

func TestRedactScenario(t *testing.T) {
	st := NewStore(sample)
	sp, _ := st.AddSpan(Candidate{Start: 8, End: 18})
	st.SetStatus(sp.ID, StatusConfirmed)
	got, err := st.Redact(DefaultMask)
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	if want := "Contact XXXXXXXXXX at 555-1234 today."; got != want {
		t.Fatalf("redacted = %q, want %q", got, want)
	}
}

func TestParseStatus(t *testing.T) {
	if st, err := ParseStatus(" Confirmed "); err != nil || st != StatusConfirmed {
		t.Fatalf("ParseStatus = %q, %v", st, err)
	}
	if _, err := ParseStatus("done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
}
