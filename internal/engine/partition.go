package engine

import (
	"github.com/prepline/testprep-backend/internal/model"
	"github.com/rs/zerolog"
)

// SubjectPartitioner splits the flat question list into per-subject
// views and keeps the active-subject selection consistent with
// navigation. Status and answers are keyed by full-list index, so every
// filtered view position maps back to its full index.
type SubjectPartitioner struct {
	subjects  []string
	bySubject map[string][]int // ordered full-list indices
	active    string
	log       zerolog.Logger
}

// NewSubjectPartitioner builds the per-subject index. catalog supplies
// the recognized subject identifiers in display order; question
// subjects not in the catalog land in the uncategorized bucket. An
// empty catalog accepts subjects as-is, ordered by first appearance.
func NewSubjectPartitioner(questions []model.Question, catalog []string, log zerolog.Logger) *SubjectPartitioner {
	p := &SubjectPartitioner{
		bySubject: make(map[string][]int),
		log:       log.With().Str("component", "subject_partitioner").Logger(),
	}

	known := make(map[string]bool, len(catalog))
	for _, s := range catalog {
		known[s] = true
	}

	seen := make(map[string]bool)
	for i := range questions {
		subject := questions[i].Subject
		if len(catalog) > 0 && !known[subject] {
			subject = model.SubjectUncategorized
		}
		if !seen[subject] {
			seen[subject] = true
		}
		p.bySubject[subject] = append(p.bySubject[subject], i)
	}

	// Display order: catalog order first, uncategorized last.
	for _, s := range catalog {
		if seen[s] {
			p.subjects = append(p.subjects, s)
		}
	}
	if len(catalog) == 0 {
		// No catalog: first-appearance order.
		appeared := make(map[string]bool)
		for i := range questions {
			s := questions[i].Subject
			if !appeared[s] {
				appeared[s] = true
				p.subjects = append(p.subjects, s)
			}
		}
	} else if seen[model.SubjectUncategorized] {
		p.subjects = append(p.subjects, model.SubjectUncategorized)
	}

	p.ensureNonEmpty()
	return p
}

// Subjects returns the subject keys in display order.
func (p *SubjectPartitioner) Subjects() []string {
	out := make([]string, len(p.subjects))
	copy(out, p.subjects)
	return out
}

// Active returns the currently selected subject, or "" in the empty state.
func (p *SubjectPartitioner) Active() string {
	return p.active
}

// SetActive selects a subject. Selecting an unknown or empty subject
// auto-selects the first subject that still has questions.
func (p *SubjectPartitioner) SetActive(subject string) {
	if len(p.bySubject[subject]) > 0 {
		p.active = subject
		return
	}
	p.log.Debug().Str("subject", subject).Msg("Subject empty or unknown, auto-selecting")
	p.active = ""
	p.ensureNonEmpty()
}

// View returns the full-list indices of the active subject's questions,
// preserving original relative order.
func (p *SubjectPartitioner) View() []int {
	return p.ViewFor(p.active)
}

// ViewFor returns the full-list indices of the given subject's questions.
func (p *SubjectPartitioner) ViewFor(subject string) []int {
	src := p.bySubject[subject]
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// FullIndex translates a position within the active subject's filtered
// view back to the full-list index. ok is false when pos is out of range.
func (p *SubjectPartitioner) FullIndex(pos int) (int, bool) {
	view := p.bySubject[p.active]
	if pos < 0 || pos >= len(view) {
		return 0, false
	}
	return view[pos], true
}

// SubjectOf returns the resolved subject of a full-list index, or ""
// if the index belongs to no view.
func (p *SubjectPartitioner) SubjectOf(fullIndex int) string {
	for subject, view := range p.bySubject {
		for _, idx := range view {
			if idx == fullIndex {
				return subject
			}
		}
	}
	return ""
}

// Empty reports whether no subject has any questions.
func (p *SubjectPartitioner) Empty() bool {
	return p.active == ""
}

// ensureNonEmpty auto-selects the first subject that has at least one
// question. When none has, the partitioner signals the empty state by
// leaving active blank.
func (p *SubjectPartitioner) ensureNonEmpty() {
	if len(p.bySubject[p.active]) > 0 {
		return
	}
	for _, s := range p.subjects {
		if len(p.bySubject[s]) > 0 {
			p.active = s
			return
		}
	}
	p.active = ""
}

// RemoveQuestion drops a full-list index from its subject view (e.g.
// after an authoring change removed the question) and re-selects a
// non-empty subject if the active one drained.
func (p *SubjectPartitioner) RemoveQuestion(fullIndex int) {
	for subject, view := range p.bySubject {
		for i, idx := range view {
			if idx == fullIndex {
				p.bySubject[subject] = append(view[:i], view[i+1:]...)
				p.ensureNonEmpty()
				return
			}
		}
	}
}
