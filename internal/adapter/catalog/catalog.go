// Package catalog loads challenges and their test cases from a YAML file.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"gitlab.com/codegrader.net/internal/adapter/memory"
	"gitlab.com/codegrader.net/internal/domain"
)

type file struct {
	Challenges []challengeEntry `yaml:"challenges"`
}

type challengeEntry struct {
	domain.Challenge `yaml:",inline"`
	Tests            []testEntry `yaml:"tests"`
}

// testEntry accepts inputData and expectedOutput as plain YAML values
type testEntry struct {
	domain.TestCase `yaml:",inline"`
	InputData       interface{} `yaml:"inputData"`
	ExpectedOutput  interface{} `yaml:"expectedOutput"`
}

// Load reads the catalog at path into an in-memory challenge store
func Load(path string) (*memory.ChallengeStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	store, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return store, nil
}

func Parse(r io.Reader) (*memory.ChallengeStore, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	store := memory.NewChallengeStore()
	seen := make(map[string]bool, len(doc.Challenges))
	for i, entry := range doc.Challenges {
		challenge := entry.Challenge
		if challenge.ID == "" {
			return nil, fmt.Errorf("challenge #%d has no id", i+1)
		}
		if seen[challenge.ID] {
			return nil, fmt.Errorf("duplicate challenge %s", challenge.ID)
		}
		seen[challenge.ID] = true

		switch challenge.Type {
		case "":
			challenge.Type = domain.ChallengeTypeComponent
		case domain.ChallengeTypeComponent, domain.ChallengeTypeAlgorithm:
		default:
			return nil, fmt.Errorf("challenge %s has unknown type %q", challenge.ID, challenge.Type)
		}

		cases := make([]*domain.TestCase, 0, len(entry.Tests))
		for j, t := range entry.Tests {
			tc, err := t.toDomain(challenge.ID, j)
			if err != nil {
				return nil, fmt.Errorf("challenge %s test #%d: %w", challenge.ID, j+1, err)
			}
			cases = append(cases, tc)
		}
		c := challenge
		store.Put(&c, cases)
	}
	return store, nil
}

func (t testEntry) toDomain(challengeID string, index int) (*domain.TestCase, error) {
	tc := t.TestCase
	tc.ChallengeID = challengeID
	if tc.ID == "" {
		tc.ID = fmt.Sprintf("%s-%d", challengeID, index+1)
	}
	if tc.Order == 0 {
		tc.Order = index + 1
	}

	var err error
	if tc.InputData, err = rawJSON(t.InputData); err != nil {
		return nil, fmt.Errorf("invalid inputData: %w", err)
	}
	if tc.ExpectedOutput, err = rawJSON(t.ExpectedOutput); err != nil {
		return nil, fmt.Errorf("invalid expectedOutput: %w", err)
	}
	return &tc, nil
}

func rawJSON(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
