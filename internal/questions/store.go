package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

// AnswersFileMode keeps generated secrets away from other users.
const AnswersFileMode os.FileMode = 0o600

// Answers maps a section name to its resolved question values.
type Answers map[string]any

// Section returns the named section, creating it when absent.
func (a Answers) Section(name string) map[string]any {
	if section, ok := a[name].(map[string]any); ok {
		return section
	}
	section := map[string]any{}
	a[name] = section
	return section
}

// LoadAnswers reads the answer store. A missing file yields empty answers.
func LoadAnswers(path string) (Answers, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Answers{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	answers := Answers{}
	if len(data) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, sunbeamerrors.NewParseError(path, 0, err)
	}
	return answers, nil
}

// WriteAnswers deep-merges answers into the store on disk. Sections and keys
// present only on disk are kept.
func WriteAnswers(path string, answers Answers) error {
	existing, err := LoadAnswers(path)
	if err != nil {
		return err
	}
	merged := merge(map[string]any(existing), map[string]any(answers))

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create answers directory: %w", err)
	}
	if err := os.WriteFile(path, data, AnswersFileMode); err != nil {
		return fmt.Errorf("write answers: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, AnswersFileMode); err != nil {
		return fmt.Errorf("restrict answers permissions: %w", err)
	}
	return nil
}

func merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = merge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}
