package domain

import (
	"fmt"
	"strings"
)

// DocumentKind is the output format of a project. It is a closed set: only
// KindDocument and KindSlideDeck are valid.
type DocumentKind string

const (
	KindDocument  DocumentKind = "docx"
	KindSlideDeck DocumentKind = "pptx"
)

// KindInfo carries the per-kind data used for export and terminology.
type KindInfo struct {
	Label       string
	Extension   string
	ContentType string
	Section     string // singular term for one section ("section" or "slide")
	Sections    string // plural term
}

var kinds = map[DocumentKind]KindInfo{
	KindDocument: {
		Label:       "Word document",
		Extension:   "docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Section:     "section",
		Sections:    "sections",
	},
	KindSlideDeck: {
		Label:       "PowerPoint presentation",
		Extension:   "pptx",
		ContentType: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		Section:     "slide",
		Sections:    "slides",
	},
}

// ParseDocumentKind accepts the wire value and a few human aliases.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "docx", "document", "structured-document", "doc", "word":
		return KindDocument, nil
	case "pptx", "slides", "slide-deck", "deck", "powerpoint":
		return KindSlideDeck, nil
	}
	return "", &ValidationError{Field: "document_type", Reason: fmt.Sprintf("unknown document kind %q", s)}
}

// Valid reports whether k is one of the two known kinds.
func (k DocumentKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Info returns the kind's data. Unknown kinds get a zero KindInfo.
func (k DocumentKind) Info() KindInfo {
	return kinds[k]
}

func (k DocumentKind) Extension() string {
	return kinds[k].Extension
}

func (k DocumentKind) String() string {
	return string(k)
}
