package service

import (
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// OutlineDraft is the local, not-yet-submitted project being assembled by
// the user. Its section list is the only thing outline suggestion replaces.
type OutlineDraft struct {
	mu        sync.Mutex
	title     string
	kind      domain.DocumentKind
	mainTopic string
	sections  []string
}

func NewOutlineDraft() *OutlineDraft {
	return &OutlineDraft{kind: domain.KindDocument}
}

// SetTitle sets the project title.
func (d *OutlineDraft) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

// SetKind sets the output kind.
func (d *OutlineDraft) SetKind(kind domain.DocumentKind) error {
	if !kind.Valid() {
		return domain.NewValidationError("document_type", "must be docx or pptx")
	}
	d.mu.Lock()
	d.kind = kind
	d.mu.Unlock()
	return nil
}

// SetMainTopic sets the topic used for outline suggestion and generation.
func (d *OutlineDraft) SetMainTopic(topic string) {
	d.mu.Lock()
	d.mainTopic = topic
	d.mu.Unlock()
}

// AddSection appends a section title and returns its index.
func (d *OutlineDraft) AddSection(title string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sections = append(d.sections, title)
	return len(d.sections) - 1
}

// RemoveSection drops the section at index i.
func (d *OutlineDraft) RemoveSection(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.sections) {
		return domain.NewValidationError("sections", "index out of range")
	}
	d.sections = append(d.sections[:i], d.sections[i+1:]...)
	return nil
}

// RenameSection retitles the section at index i.
func (d *OutlineDraft) RenameSection(i int, title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.sections) {
		return domain.NewValidationError("sections", "index out of range")
	}
	d.sections[i] = title
	return nil
}

// ReplaceTitles swaps the whole section list; index becomes order.
func (d *OutlineDraft) ReplaceTitles(titles []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sections = append([]string(nil), titles...)
}

// Sections returns the current section titles.
func (d *OutlineDraft) Sections() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sections...)
}

// MainTopic returns the trimmed main topic.
func (d *OutlineDraft) MainTopic() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.TrimSpace(d.mainTopic)
}

// Kind returns the selected output kind.
func (d *OutlineDraft) Kind() domain.DocumentKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kind
}

// Spec builds the creation request. It is validated by the repository.
func (d *OutlineDraft) Spec() domain.CreateProjectSpec {
	d.mu.Lock()
	defer d.mu.Unlock()
	spec := domain.CreateProjectSpec{
		Title:     d.title,
		Kind:      d.kind,
		MainTopic: d.mainTopic,
		Sections:  make([]domain.SectionSpec, 0, len(d.sections)),
	}
	for i, t := range d.sections {
		spec.Sections = append(spec.Sections, domain.SectionSpec{Title: t, Order: i})
	}
	return spec
}

// Reset clears the draft after a successful submission.
func (d *OutlineDraft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = ""
	d.mainTopic = ""
	d.kind = domain.KindDocument
	d.sections = nil
}
