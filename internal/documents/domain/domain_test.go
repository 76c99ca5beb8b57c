package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentKind(t *testing.T) {
	tests := []struct {
		in      string
		want    DocumentKind
		wantErr bool
	}{
		{"docx", KindDocument, false},
		{" Document ", KindDocument, false},
		{"word", KindDocument, false},
		{"pptx", KindSlideDeck, false},
		{"SLIDES", KindSlideDeck, false},
		{"deck", KindSlideDeck, false},
		{"xlsx", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDocumentKind(tt.in)
			if tt.wantErr {
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentKindInfo(t *testing.T) {
	assert.Equal(t, "docx", KindDocument.Extension())
	assert.Equal(t, "slide", KindSlideDeck.Info().Section)
	assert.Equal(t, "sections", KindDocument.Info().Sections)
	assert.Contains(t, KindSlideDeck.Info().ContentType, "presentationml")
	assert.False(t, DocumentKind("xlsx").Valid())
	assert.Empty(t, DocumentKind("xlsx").Extension())
}

func TestProjectHasContent(t *testing.T) {
	var nilProject *Project
	assert.False(t, nilProject.HasContent())

	p := &Project{Sections: []Section{{ID: 1}, {ID: 2}}}
	assert.False(t, p.HasContent())

	p.Sections[1].Content = "x"
	assert.True(t, p.HasContent())
}

func TestProjectSortAndClone(t *testing.T) {
	p := &Project{Sections: []Section{
		{ID: 3, Order: 2},
		{ID: 1, Order: 0},
		{ID: 4, Order: 1},
		{ID: 2, Order: 1},
	}}
	p.SortSections()
	ids := make([]int64, 0, len(p.Sections))
	for _, s := range p.Sections {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{1, 4, 2, 3}, ids)

	cp := p.Clone()
	cp.Sections[0].Title = "changed"
	assert.Empty(t, p.Sections[0].Title)

	sec, ok := p.Section(2)
	require.True(t, ok)
	assert.Equal(t, 1, sec.Order)
	_, ok = p.Section(99)
	assert.False(t, ok)
}

func TestCreateProjectSpecValidate(t *testing.T) {
	spec := CreateProjectSpec{
		Title:     "  Q4 Report ",
		Kind:      KindDocument,
		MainTopic: "Quarterly results",
		Sections:  []SectionSpec{{Title: " Summary", Order: 7}, {Title: "Revenue", Order: 3}},
	}
	require.NoError(t, spec.Validate())
	assert.Equal(t, "Q4 Report", spec.Title)
	assert.Equal(t, []SectionSpec{{Title: "Summary", Order: 0}, {Title: "Revenue", Order: 1}}, spec.Sections)

	bad := []struct {
		name  string
		spec  CreateProjectSpec
		field string
	}{
		{"blank title", CreateProjectSpec{Title: " ", Kind: KindDocument, MainTopic: "t", Sections: []SectionSpec{{Title: "a"}}}, "title"},
		{"blank topic", CreateProjectSpec{Title: "x", Kind: KindDocument, Sections: []SectionSpec{{Title: "a"}}}, "main_topic"},
		{"unknown kind", CreateProjectSpec{Title: "x", Kind: "xlsx", MainTopic: "t", Sections: []SectionSpec{{Title: "a"}}}, "document_type"},
		{"no sections", CreateProjectSpec{Title: "x", Kind: KindSlideDeck, MainTopic: "t"}, "sections"},
		{"blank section", CreateProjectSpec{Title: "x", Kind: KindSlideDeck, MainTopic: "t", Sections: []SectionSpec{{Title: "a"}, {Title: ""}}}, "sections"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestPatchValidate(t *testing.T) {
	assert.Error(t, ProjectPatch{}.Validate())
	assert.Error(t, ProjectPatch{Title: Ptr("  ")}.Validate())
	assert.NoError(t, ProjectPatch{MainTopic: Ptr("New topic")}.Validate())

	assert.Error(t, SectionPatch{}.Validate())
	assert.Error(t, SectionPatch{Order: Ptr(-1)}.Validate())
	assert.NoError(t, SectionPatch{Content: Ptr("")}.Validate())
	assert.NoError(t, SectionPatch{Order: Ptr(0)}.Validate())
}

func TestErrors(t *testing.T) {
	terr := &TransportError{Op: "get_project", StatusCode: 500, Message: "boom"}
	assert.Equal(t, "get_project: service returned status 500: boom", terr.Error())
	assert.True(t, IsTransport(fmt.Errorf("wrapped: %w", terr)))

	cause := errors.New("connection refused")
	terr = &TransportError{Op: "list_projects", Err: cause}
	assert.ErrorIs(t, terr, cause)
	assert.Equal(t, "list_projects: connection refused", terr.Error())

	rerr := &RefreshError{ProjectID: 12, Err: fmt.Errorf("get_project: %w", ErrNotFound)}
	assert.ErrorIs(t, rerr, ErrNotFound)
	assert.Contains(t, rerr.Error(), "refresh project 12")

	assert.Equal(t, "validation failed: empty section patch", NewValidationError("", "empty section patch").Error())
	assert.False(t, IsValidation(ErrBusy))
}
