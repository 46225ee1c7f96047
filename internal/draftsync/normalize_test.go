package draftsync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/resume"
)

func TestNormalize_TopLevelWinsOverNested(t *testing.T) {
	doc := map[string]any{
		"title": "Backend CV",
		"name":  "Ada Lovelace",
		"email": "",
		"personalInfo": map[string]any{
			"name":     "Ignored",
			"email":    "ada@example.com",
			"linkedin": "in/ada",
		},
		"skills":     []any{"Go", " ", "SQL"},
		"interests":  "chess, rowing\nmusic",
		"templateId": "4",
		"experience": []any{
			map[string]any{"title": "Engineer", "company": "Analytical", "duration": "1843", "description": "Notes"},
		},
		"certifications": []any{
			map[string]any{"name": "CKA", "organization": "CNCF", "year": "2024", "credentialId": "abc"},
		},
	}

	p := Normalize(doc)
	assert.Equal(t, "Backend CV", p.Title)
	assert.Equal(t, "Ada Lovelace", p.PersonalInfo.Name)
	assert.Equal(t, "ada@example.com", p.PersonalInfo.Email)
	assert.Equal(t, "in/ada", p.PersonalInfo.LinkedIn)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
	assert.Equal(t, []string{"chess", "rowing", "music"}, p.Interests)
	assert.Equal(t, 4, p.TemplateID)
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "Analytical", p.Experience[0].Company)
	require.Len(t, p.Certifications, 1)
	assert.Equal(t, "abc", p.Certifications[0].CredentialID)
	assert.Nil(t, p.Education)
}

func TestNormalize_SnakeCaseNestedAndBadShapes(t *testing.T) {
	doc := map[string]any{
		"personal_info": map[string]any{"phone": "123", "role": "Engineer"},
		"education":     "not a list",
		"languages":     []any{"English"},
		"template_id":   -3,
	}

	p := Normalize(doc)
	assert.Equal(t, "123", p.PersonalInfo.Phone)
	assert.Equal(t, "Engineer", p.PersonalInfo.Role)
	assert.Nil(t, p.Education)
	assert.Nil(t, p.Languages)
	assert.Zero(t, p.TemplateID)
}

func TestNormalize_AcceptsTypedValues(t *testing.T) {
	store := NewStore(nil)
	store.Set("experience", []resume.Experience{{Title: "Eng", Company: "Analytical"}})
	store.Set("education", []map[string]any{{"degree": "BSc", "institution": "MIT"}})
	store.Set("personalInfo", map[string]string{"name": "Ada", "email": "ada@example.com"})
	store.Set("skills", []string{"Go", "SQL"})
	store.Set("template_id", 3)

	p := Normalize(store.Snapshot())
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "Eng", p.Experience[0].Title)
	assert.Equal(t, "Analytical", p.Experience[0].Company)
	require.Len(t, p.Education, 1)
	assert.Equal(t, "MIT", p.Education[0].Institution)
	assert.Equal(t, "Ada", p.PersonalInfo.Name)
	assert.Equal(t, "ada@example.com", p.PersonalInfo.Email)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
	assert.Equal(t, 3, p.TemplateID)
}

func TestNormalize_MatchesWireShape(t *testing.T) {
	raw, err := json.Marshal(Normalize(map[string]any{"name": "Ada"}))
	require.NoError(t, err)

	patch, err := resume.ParsePatch(raw)
	require.NoError(t, err)
	assert.True(t, patch.PersonalInfo.Set)
	assert.Equal(t, "Ada", patch.PersonalInfo.Value.Name)
	assert.False(t, patch.TemplateID.Set)
	assert.True(t, patch.Skills.Set)
	assert.True(t, patch.Skills.Null)
}

func TestResolveTemplateID(t *testing.T) {
	cases := []struct {
		name     string
		explicit any
		location string
		want     int
	}{
		{"explicit int", 5, "/editor/template/2", 5},
		{"explicit float", float64(7), "", 7},
		{"explicit numeric string", " 3 ", "", 3},
		{"explicit json number", json.Number("9"), "", 9},
		{"zero falls back to location", 0, "/editor/template/2", 2},
		{"template query", nil, "/builder?template=6&step=3", 6},
		{"template dash", "abc", "/templates/template-11/edit", 11},
		{"last digit run", nil, "/resume/42/edit/v8", 8},
		{"fractional is unusable", 2.5, "/editor", resume.DefaultTemplateID},
		{"no signal", nil, "/editor", resume.DefaultTemplateID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveTemplateID(tc.explicit, tc.location))
		})
	}
}
