package lesson

import (
	"regexp"
	"strings"
)

// Params are lesson parameters recovered from a free-form prompt.
type Params struct {
	Subject    string
	Topic      string
	GradeLevel string
}

// Complete reports whether all three parameters were recovered.
func (p Params) Complete() bool {
	return p.Subject != "" && p.Topic != "" && p.GradeLevel != ""
}

var subjectKeywords = []struct{ key, subject string }{
	{"math", "Mathematics"},
	{"mathematics", "Mathematics"},
	{"science", "Science"},
	{"english", "English Language Arts"},
	{"history", "History"},
	{"social studies", "Social Studies"},
	{"physics", "Physics"},
	{"chemistry", "Chemistry"},
	{"biology", "Biology"},
	{"algebra", "Mathematics"},
	{"geometry", "Mathematics"},
}

var gradePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\s+grade`),
	regexp.MustCompile(`grade\s+(\d+)`),
	regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\s+graders`),
}

var topicIndicators = []string{"about", "on", "for", "teach", "lesson", "covering"}

var commonTopics = []string{
	"linear equations", "photosynthesis", "fractions",
	"american revolution", "reading comprehension", "area and perimeter",
	"forces and motion", "creative writing",
}

// ExtractParams recovers subject, topic, and grade level from a prompt via
// simple substring lookup. Missing parameters stay empty; callers fall back
// to plain chat when the set is incomplete.
func ExtractParams(prompt string) Params {
	lower := strings.ToLower(prompt)
	var p Params

	for _, sk := range subjectKeywords {
		if strings.Contains(lower, sk.key) {
			p.Subject = sk.subject
			break
		}
	}

	for _, pat := range gradePatterns {
		if m := pat.FindStringSubmatch(lower); m != nil {
			p.GradeLevel = m[1] + "th Grade"
			break
		}
	}

	for _, ind := range topicIndicators {
		idx := strings.Index(lower, ind)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(lower[idx+len(ind):])
		words := strings.Fields(rest)
		if len(words) > 3 {
			words = words[:3]
		}
		topic := strings.Trim(strings.Join(words, " "), " .,!?")
		if topic != "" {
			p.Topic = topic
			break
		}
	}

	if p.Topic == "" {
		for _, t := range commonTopics {
			if strings.Contains(lower, t) {
				p.Topic = titleWords(t)
				break
			}
		}
	}

	return p
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
