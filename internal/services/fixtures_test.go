package services

import (
	"context"
	"errors"
	"sync"
)

const validCVJSON = `{
  "fullName": "Jane Doe",
  "jobTitle": "Senior Nurse",
  "personalDetails": {"nationality": "Irish", "languages": ["English"], "email": "jane@example.com"},
  "profile": "Experienced nurse.",
  "experience": [{"role": "Nurse", "company": "St James", "startDate": "2019-01", "endDate": "Present", "bullets": ["Led ward"]}],
  "education": [{"program": "BSc Nursing", "institution": "UCD", "startYear": 2012, "endYear": "2016"}],
  "skills": ["Triage"],
  "interests": ["Running"]
}`

const validRegistrationJSON = `{"fullName": "Jane Doe", "email": "jane@example.com", "phone": "+353 1 234", "emergencyContactDetails": null}`

const validPreview = `<div class="cv"><h1>Jane Doe</h1></div>`

type reply struct {
	text string
	err  error
}

// scriptedCompleter answers calls in order; the last reply repeats.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []reply
	reqs    []CompletionRequest
}

func (s *scriptedCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	r := s.replies[i]
	return r.text, r.err
}

func (s *scriptedCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func happyReplies() []reply {
	return []reply{
		{text: "```json\n" + validCVJSON + "\n```"},
		{text: "Here you go: " + validRegistrationJSON},
		{text: "```html\n<html><body>" + validPreview + "<script>alert(1)</script></body></html>\n```"},
	}
}

// adapterFunc adapts a function to ModelAdapter.
type adapterFunc func(ctx context.Context, rawText string) (*Artifacts, error)

func (f adapterFunc) Process(ctx context.Context, rawText string) (*Artifacts, error) {
	return f(ctx, rawText)
}

func okArtifacts() *Artifacts {
	return &Artifacts{
		StructuredCV:           []byte(validCVJSON),
		StructuredRegistration: []byte(validRegistrationJSON),
		PreviewMarkup:          validPreview,
	}
}

var errBackendDown = errors.New("backend unavailable")
