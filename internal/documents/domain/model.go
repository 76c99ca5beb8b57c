package domain

import (
	"sort"
	"strings"
	"time"
)

// Project is a user's document or slide deck with its ordered sections.
// JSON tags follow the service wire format.
type Project struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Title     string       `json:"title"`
	Kind      DocumentKind `json:"document_type"`
	MainTopic string       `json:"main_topic"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Sections  []Section    `json:"sections"`
}

// Section is one titled content unit of a project. Empty content means the
// section has not been generated yet.
type Section struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasContent reports whether at least one section has non-empty content.
func (p *Project) HasContent() bool {
	if p == nil {
		return false
	}
	for _, s := range p.Sections {
		if len(s.Content) > 0 {
			return true
		}
	}
	return false
}

// Section returns the section with the given id.
func (p *Project) Section(id int64) (Section, bool) {
	if p == nil {
		return Section{}, false
	}
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// SortSections orders sections by Order, keeping input order for ties.
func (p *Project) SortSections() {
	sort.SliceStable(p.Sections, func(i, j int) bool {
		return p.Sections[i].Order < p.Sections[j].Order
	})
}

// Clone returns a deep copy so callers never alias repository state.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Sections != nil {
		cp.Sections = make([]Section, len(p.Sections))
		copy(cp.Sections, p.Sections)
	}
	return &cp
}

// SectionSpec is one entry of the ordered section list sent on creation.
type SectionSpec struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

// CreateProjectSpec is the creation request.
type CreateProjectSpec struct {
	Title     string        `json:"title"`
	Kind      DocumentKind  `json:"document_type"`
	MainTopic string        `json:"main_topic"`
	Sections  []SectionSpec `json:"sections"`
}

// Validate checks the client-side constraints and renumbers section orders
// to 0..N-1 in input sequence.
func (s *CreateProjectSpec) Validate() error {
	s.Title = strings.TrimSpace(s.Title)
	s.MainTopic = strings.TrimSpace(s.MainTopic)
	if s.Title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if s.MainTopic == "" {
		return NewValidationError("main_topic", "must not be empty")
	}
	if !s.Kind.Valid() {
		return NewValidationError("document_type", "must be docx or pptx")
	}
	if len(s.Sections) == 0 {
		return NewValidationError("sections", "at least one section is required")
	}
	for i := range s.Sections {
		s.Sections[i].Title = strings.TrimSpace(s.Sections[i].Title)
		if s.Sections[i].Title == "" {
			return NewValidationError("sections", "section titles must not be empty")
		}
		s.Sections[i].Order = i
	}
	return nil
}

// ProjectPatch is a partial project update. Kind is deliberately absent: it
// cannot change after creation.
type ProjectPatch struct {
	Title     *string `json:"title,omitempty"`
	MainTopic *string `json:"main_topic,omitempty"`
}

func (p ProjectPatch) Validate() error {
	if p.Title == nil && p.MainTopic == nil {
		return NewValidationError("", "empty project patch")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if p.MainTopic != nil && strings.TrimSpace(*p.MainTopic) == "" {
		return NewValidationError("main_topic", "must not be empty")
	}
	return nil
}

// SectionPatch is a partial section update.
type SectionPatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Order   *int    `json:"order,omitempty"`
}

func (p SectionPatch) Validate() error {
	if p.Title == nil && p.Content == nil && p.Order == nil {
		return NewValidationError("", "empty section patch")
	}
	if p.Order != nil && *p.Order < 0 {
		return NewValidationError("order", "must not be negative")
	}
	return nil
}

// OutlineRequest asks the service for suggested section titles.
type OutlineRequest struct {
	MainTopic   string       `json:"main_topic"`
	Kind        DocumentKind `json:"document_type"`
	NumSections int          `json:"num_sections"`
}

// Refinement is one recorded instruction-driven rewrite of a section.
type Refinement struct {
	ID              int64     `json:"id"`
	SectionID       int64     `json:"section_id"`
	Prompt          string    `json:"prompt"`
	PreviousContent string    `json:"previous_content"`
	NewContent      string    `json:"new_content"`
	Liked           *bool     `json:"liked"`
	Comment         string    `json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
}

// RefinementFeedback rates a refinement.
type RefinementFeedback struct {
	Liked   *bool   `json:"liked,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// Artifact is an exported document, materialized only on full success.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

func Ptr[T any](v T) *T { return &v }
