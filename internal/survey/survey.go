// Package survey holds the feedback question sets and validates submitted
// answers against the configured set.
package survey

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/samber/lo"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

//go:embed sets/*.json
var setFS embed.FS

// Set is one fixed feedback question set. All questions use the 1–5 scale.
type Set struct {
	Name      string                 `json:"name"`
	Questions []model.SurveyQuestion `json:"questions"`
}

// Load resolves a question set by name. The embedded sets are "standard"
// and "extended"; any other value is treated as a path to an external
// JSON file.
func Load(nameOrPath string) (*Set, error) {
	switch nameOrPath {
	case "standard", "extended":
		data, err := fs.ReadFile(setFS, "sets/"+nameOrPath+".json")
		if err != nil {
			return nil, fmt.Errorf("read embedded survey set: %w", err)
		}
		return parse(data)
	}
	data, err := os.ReadFile(nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("read survey set file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Set, error) {
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse survey set: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("survey set has no name")
	}
	if len(s.Questions) == 0 {
		return nil, fmt.Errorf("survey set %q has no questions", s.Name)
	}
	seen := make(map[string]bool, len(s.Questions))
	for i, q := range s.Questions {
		if q.Key == "" {
			return nil, fmt.Errorf("survey set %q: question %d has no key", s.Name, i)
		}
		if seen[q.Key] {
			return nil, fmt.Errorf("survey set %q: duplicate question key %q", s.Name, q.Key)
		}
		seen[q.Key] = true
		if q.Text.EN == "" || q.Text.DE == "" {
			return nil, fmt.Errorf("survey set %q: question %q must be set in both languages", s.Name, q.Key)
		}
	}
	return &s, nil
}

// Keys returns the question keys in configured order.
func (s *Set) Keys() []string {
	return lo.Map(s.Questions, func(q model.SurveyQuestion, _ int) string {
		return q.Key
	})
}

// Validate checks submitted answers against the set: every configured
// question must be rated, every rating must be within the 1–5 scale, and
// no unknown keys are accepted. The free-text comment may be empty.
func (s *Set) Validate(answers model.Answers) error {
	keys := s.Keys()

	missing := lo.Filter(keys, func(key string, _ int) bool {
		_, ok := answers.Ratings[key]
		return !ok
	})
	if len(missing) > 0 {
		return fmt.Errorf("missing answers for: %v", missing)
	}

	var unknown []string
	for key := range answers.Ratings {
		if !lo.Contains(keys, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown answer keys: %v", unknown)
	}

	for _, key := range keys {
		if r := answers.Ratings[key]; r < model.RatingMin || r > model.RatingMax {
			return fmt.Errorf("answer %q: rating %d out of range %d..%d",
				key, r, model.RatingMin, model.RatingMax)
		}
	}
	return nil
}
