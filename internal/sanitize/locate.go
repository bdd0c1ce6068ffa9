package sanitize

import (
	"fmt"
	"strings"
)

// Occurrences returns the [start,end) byte ranges of every non-overlapping
// occurrence of sub in text, scanning left to right.
// An empty sub has no occurrences.
func Occurrences(text, sub string) [][2]int {
	if sub == "" {
		return nil
	}
	var out [][2]int
	start := 0
	for {
		idx := strings.Index(text[start:], sub)
		if idx < 0 {
			break
		}
		abs := start + idx
		end := abs + len(sub)
		out = append(out, [2]int{abs, end})
		start = end
	}
	return out
}

// Candidates turns oracle entities into span candidates. Oracle offsets are
// ignored: each occurrence of Entity.Text becomes one candidate with id
// "{entity.id}-{occurrence}".
func Candidates(text string, entities []Entity) []Candidate {
	var out []Candidate
	for _, e := range entities {
		id := e.ID
		if id == "" {
			id = e.Label
		}
		if id == "" {
			id = "ENTITY"
		}
		for n, occ := range Occurrences(text, e.Text) {
			out = append(out, Candidate{
				ID:       fmt.Sprintf("%s-%d", id, n),
				Label:    e.Text,
				Category: e.Label,
				Start:    occ[0],
				End:      occ[1],
				Source:   SourceOracle,
			})
		}
	}
	return out
}
