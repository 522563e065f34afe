// Package structure maps question numbers onto interview sections and
// decides which questions are scored.
package structure

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IntroductionPrompt opens every interview. It is never AI-generated.
const IntroductionPrompt = "Please introduce yourself, tell us about your skills, and describe some of the projects you've worked on."

type Section struct {
	Name        string   `yaml:"name"`
	Start       int      `yaml:"start"`
	End         int      `yaml:"end"`
	Description string   `yaml:"description"`
	Context     string   `yaml:"context"`
	Focus       []string `yaml:"focus"`
	SkipScoring []int    `yaml:"skip_scoring"`
}

func (s Section) contains(n int) bool {
	return n >= s.Start && n <= s.End
}

// File is the on-disk shape of a structure definition.
type File struct {
	IntroductionPrompt string    `yaml:"introduction_prompt"`
	Sections           []Section `yaml:"sections"`
}

// Structure is immutable once built; all lookups are pure.
type Structure struct {
	introPrompt string
	sections    []Section
}

// Context steers generation of the question at a given index.
type Context struct {
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt,omitempty"`
	Fixed          bool     `json:"fixed"`
	Context        string   `json:"context,omitempty"`
	Focus          []string `json:"focus,omitempty"`
	JobDescription string   `json:"job_description,omitempty"`
	ResumeText     string   `json:"resume_text,omitempty"`
}

type Info struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
	QuestionNumber int    `json:"question_number"`
	Progress       string `json:"progress"`
}

func Default() *Structure {
	s, err := New(File{
		IntroductionPrompt: IntroductionPrompt,
		Sections: []Section{
			{
				Name:        "introduction",
				Start:       1,
				End:         4,
				Description: "Introduction and follow-up questions",
				Context:     "Follow-up questions based on the candidate's introduction",
				SkipScoring: []int{1},
			},
			{
				Name:        "technology",
				Start:       5,
				End:         8,
				Description: "Programming and technical questions (OOP, data structures, SQL, etc.)",
				Context:     "Programming and technical questions covering OOP, arrays, strings, collections, data structures, SQL, algorithms, etc.",
				Focus:       []string{"OOP", "data structures", "algorithms", "SQL", "arrays", "strings", "collections", "programming fundamentals"},
			},
			{
				Name:        "mixed",
				Start:       9,
				End:         15,
				Description: "Job + resume integrated questions with follow-ups",
				Context:     "Questions integrating both job requirements and candidate's resume/experience",
				Focus:       []string{"job alignment", "experience relevance", "practical application"},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads a YAML structure definition. An empty path yields Default.
func Load(path string) (*Structure, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interview structure %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse interview structure: %w", err)
	}

	return New(f)
}

// New validates f and builds a Structure. Sections must tile 1..ceiling in
// order with no gaps or overlaps.
func New(f File) (*Structure, error) {
	if len(f.Sections) == 0 {
		return nil, fmt.Errorf("interview structure needs at least one section")
	}

	seen := make(map[string]bool, len(f.Sections))
	next := 1
	for i, sec := range f.Sections {
		if sec.Name == "" {
			return nil, fmt.Errorf("section %d must have a name", i+1)
		}
		if seen[sec.Name] {
			return nil, fmt.Errorf("section %q is defined twice", sec.Name)
		}
		seen[sec.Name] = true

		if sec.Start != next {
			return nil, fmt.Errorf("section %q starts at %d, expected %d", sec.Name, sec.Start, next)
		}
		if sec.End < sec.Start {
			return nil, fmt.Errorf("section %q ends at %d before it starts at %d", sec.Name, sec.End, sec.Start)
		}
		for _, n := range sec.SkipScoring {
			if !sec.contains(n) {
				return nil, fmt.Errorf("section %q skips scoring for %d outside its range", sec.Name, n)
			}
		}
		next = sec.End + 1
	}

	prompt := f.IntroductionPrompt
	if prompt == "" {
		prompt = IntroductionPrompt
	}

	sections := make([]Section, len(f.Sections))
	copy(sections, f.Sections)
	return &Structure{introPrompt: prompt, sections: sections}, nil
}

// Ceiling is the last question index covered by an explicit section.
func (s *Structure) Ceiling() int {
	return s.sections[len(s.sections)-1].End
}

func (s *Structure) IntroductionPrompt() string {
	return s.introPrompt
}

// SectionOf is total: indices outside every range fall back to the last section.
func (s *Structure) SectionOf(n int) Section {
	for _, sec := range s.sections {
		if sec.contains(n) {
			return sec
		}
	}
	return s.sections[len(s.sections)-1]
}

func (s *Structure) ShouldSkipScoring(n int) bool {
	for _, skip := range s.SectionOf(n).SkipScoring {
		if skip == n {
			return true
		}
	}
	return false
}

func (s *Structure) QuestionContext(n int, jobDescription, resumeText string) Context {
	sec := s.SectionOf(n)

	if n == 1 {
		return Context{Type: sec.Name, Prompt: s.introPrompt, Fixed: true}
	}

	ctx := Context{
		Type:           sec.Name,
		Context:        sec.Context,
		JobDescription: jobDescription,
		ResumeText:     resumeText,
	}
	if sec.Name == s.sections[0].Name {
		ctx.Type = sec.Name + "_followup"
	}
	if len(sec.Focus) > 0 {
		ctx.Focus = append([]string(nil), sec.Focus...)
	}
	return ctx
}

func (s *Structure) SectionInfo(n int) Info {
	sec := s.SectionOf(n)
	return Info{
		Name:           sec.Name,
		Description:    sec.Description,
		Start:          sec.Start,
		End:            sec.End,
		QuestionNumber: n,
		Progress:       fmt.Sprintf("%d/%d", n-sec.Start+1, sec.End-sec.Start+1),
	}
}
