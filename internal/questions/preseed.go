package questions

import (
	"os"

	"gopkg.in/yaml.v3"

	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

// ReadPreseed loads a YAML preseed file of section -> key -> value.
func ReadPreseed(path string) (Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sunbeamerrors.NewParseError(path, 0, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, sunbeamerrors.NewParseError(path, 0, err)
	}

	if len(doc.Content) == 0 {
		return Answers{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, sunbeamerrors.NewParseError(path, root.Line, errNotMapping)
	}
	// Decoding into Answers would make yaml.v3 type every nested section as
	// Answers too.
	raw := map[string]any{}
	if err := root.Decode(&raw); err != nil {
		return nil, sunbeamerrors.NewParseError(path, root.Line, err)
	}
	return Answers(raw), nil
}

// SectionOf returns one section of a preseed or answers document, or nil.
func SectionOf(doc Answers, name string) map[string]any {
	if doc == nil {
		return nil
	}
	switch section := doc[name].(type) {
	case map[string]any:
		return section
	case Answers:
		return section
	default:
		return nil
	}
}

type preseedError string

func (e preseedError) Error() string { return string(e) }

const errNotMapping = preseedError("preseed must be a mapping of sections")
