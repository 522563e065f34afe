package structure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionOf(t *testing.T) {
	s := Default()

	tests := []struct {
		n    int
		want string
	}{
		{1, "introduction"},
		{4, "introduction"},
		{5, "technology"},
		{8, "technology"},
		{9, "mixed"},
		{15, "mixed"},
		{16, "mixed"},
		{100, "mixed"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, s.SectionOf(tc.n).Name, "question %d", tc.n)
	}

	t.Run("every index resolves to exactly one range", func(t *testing.T) {
		for n := 1; n <= s.Ceiling(); n++ {
			matches := 0
			for _, sec := range s.sections {
				if sec.contains(n) {
					matches++
				}
			}
			assert.Equal(t, 1, matches, "question %d", n)
		}
	})
}

func TestShouldSkipScoring(t *testing.T) {
	s := Default()

	assert.True(t, s.ShouldSkipScoring(1))
	for n := 2; n <= 20; n++ {
		assert.False(t, s.ShouldSkipScoring(n), "question %d", n)
	}
}

func TestQuestionContext(t *testing.T) {
	s := Default()

	t.Run("first question is the fixed introduction", func(t *testing.T) {
		ctx := s.QuestionContext(1, "JD", "CV")
		assert.Equal(t, "introduction", ctx.Type)
		assert.True(t, ctx.Fixed)
		assert.Equal(t, IntroductionPrompt, ctx.Prompt)
		assert.Empty(t, ctx.JobDescription)
	})

	t.Run("introduction follow-ups carry job and resume", func(t *testing.T) {
		ctx := s.QuestionContext(3, "JD", "CV")
		assert.Equal(t, "introduction_followup", ctx.Type)
		assert.Equal(t, "JD", ctx.JobDescription)
		assert.Equal(t, "CV", ctx.ResumeText)
		assert.Empty(t, ctx.Focus)
	})

	t.Run("technology focus hints", func(t *testing.T) {
		ctx := s.QuestionContext(6, "JD", "")
		assert.Equal(t, "technology", ctx.Type)
		assert.Contains(t, ctx.Focus, "SQL")
		assert.Contains(t, ctx.Focus, "programming fundamentals")
	})

	t.Run("mixed focus hints", func(t *testing.T) {
		ctx := s.QuestionContext(12, "JD", "CV")
		assert.Equal(t, "mixed", ctx.Type)
		assert.Equal(t, []string{"job alignment", "experience relevance", "practical application"}, ctx.Focus)
	})

	t.Run("idempotent", func(t *testing.T) {
		first := s.QuestionContext(7, "JD", "CV")
		first.Focus[0] = "mutated"
		second := s.QuestionContext(7, "JD", "CV")
		third := s.QuestionContext(7, "JD", "CV")
		assert.Equal(t, second, third)
		assert.Equal(t, "OOP", second.Focus[0])
	})
}

func TestSectionInfo(t *testing.T) {
	s := Default()

	info := s.SectionInfo(6)
	assert.Equal(t, "technology", info.Name)
	assert.Equal(t, "2/4", info.Progress)

	info = s.SectionInfo(1)
	assert.Equal(t, "1/4", info.Progress)

	info = s.SectionInfo(15)
	assert.Equal(t, "7/7", info.Progress)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		sections []Section
		errPart  string
	}{
		{"empty", nil, "at least one section"},
		{"gap", []Section{{Name: "a", Start: 1, End: 3}, {Name: "b", Start: 5, End: 6}}, "expected 4"},
		{"overlap", []Section{{Name: "a", Start: 1, End: 3}, {Name: "b", Start: 3, End: 6}}, "expected 4"},
		{"not from one", []Section{{Name: "a", Start: 2, End: 3}}, "expected 1"},
		{"inverted", []Section{{Name: "a", Start: 1, End: 0}}, "before it starts"},
		{"duplicate", []Section{{Name: "a", Start: 1, End: 2}, {Name: "a", Start: 3, End: 4}}, "defined twice"},
		{"unnamed", []Section{{Start: 1, End: 2}}, "must have a name"},
		{"skip outside", []Section{{Name: "a", Start: 1, End: 2, SkipScoring: []int{3}}}, "outside its range"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(File{Sections: tc.sections})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		s, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 15, s.Ceiling())
	})

	t.Run("reads yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "structure.yaml")
		content := `
introduction_prompt: "Tell us about yourself."
sections:
  - name: warmup
    start: 1
    end: 2
    skip_scoring: [1, 2]
  - name: deep_dive
    start: 3
    end: 6
    focus: [concurrency, testing]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 6, s.Ceiling())
		assert.Equal(t, "Tell us about yourself.", s.IntroductionPrompt())
		assert.True(t, s.ShouldSkipScoring(2))
		assert.False(t, s.ShouldSkipScoring(3))
		assert.Equal(t, "deep_dive", s.SectionOf(9).Name)
		assert.Equal(t, "warmup_followup", s.QuestionContext(2, "", "").Type)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
