package category

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// knowledgeFile is the on-disk shape of the learned-variant side file.
type knowledgeFile struct {
	Variants map[string][]string `yaml:"variants"`
}

// LoadKnowledge reads a persisted variant file. A missing file is not an
// error; it simply yields no extra variants.
func LoadKnowledge(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	var kf knowledgeFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse knowledge file: %w", err)
	}
	return kf.Variants, nil
}

// SaveKnowledge merges learned variants into the side file, keeping variants
// already persisted by earlier runs.
func SaveKnowledge(path string, learned map[string][]string) error {
	if len(learned) == 0 {
		return nil
	}
	existing, err := LoadKnowledge(path)
	if err != nil {
		return err
	}
	merged := make(map[string][]string, len(existing)+len(learned))
	for canonical, variants := range existing {
		merged[canonical] = append(merged[canonical], variants...)
	}
	for canonical, variants := range learned {
		for _, v := range variants {
			if !contains(merged[canonical], v) {
				merged[canonical] = append(merged[canonical], v)
			}
		}
	}
	data, err := yaml.Marshal(knowledgeFile{Variants: merged})
	if err != nil {
		return fmt.Errorf("encode knowledge file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write knowledge file: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
