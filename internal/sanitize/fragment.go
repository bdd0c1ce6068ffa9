package sanitize

// Fragment is a contiguous slice of the document text, optionally owned by
// the span it was cut for. Fragments live for one render pass.
type Fragment struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Span  *Span  `json:"span,omitempty"`
}

// Partition cuts text into gap-free fragments for highlighting.
//
// Spans are walked by Start (ties in input order) with a cursor. A span that
// starts before the cursor overlaps an earlier one and is not highlighted on
// its own; the earlier span keeps the region. Zero-length spans yield no
// fragment. Spans that do not fit the text are ignored. With no spans the
// whole text is one plain fragment. Concatenating the fragment texts always
// reproduces text.
func Partition(text string, spans []Span) []Fragment {
	if len(spans) == 0 {
		return []Fragment{{Text: text, Start: 0, End: len(text)}}
	}

	out := []Fragment{}
	cursor := 0
	for _, sp := range orderSpans(spans) {
		if sp.Start < cursor || sp.Start > sp.End || sp.End > len(text) {
			continue
		}
		if sp.Start > cursor {
			out = append(out, Fragment{Text: text[cursor:sp.Start], Start: cursor, End: sp.Start})
		}
		if sp.End > sp.Start {
			owner := sp
			out = append(out, Fragment{Text: text[sp.Start:sp.End], Start: sp.Start, End: sp.End, Span: &owner})
		}
		cursor = max(cursor, sp.End)
	}
	if cursor < len(text) {
		out = append(out, Fragment{Text: text[cursor:], Start: cursor, End: len(text)})
	}
	return out
}
