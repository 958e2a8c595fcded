package tree

import "github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/files"

// Preview pairs the stored value of a resource with a candidate
// replacement. ValidXML is only set for layouts.
type Preview struct {
	Type     string `json:"type"`
	Original string `json:"original"`
	Content  string `json:"content"`
	ValidXML *bool  `json:"valid_xml,omitempty"`
}

// PreviewString compares a candidate value with the stored string. An
// empty candidate previews the current value.
func PreviewString(root, name, candidate string) (*Preview, error) {
	current, err := ReadString(root, name)
	if err != nil {
		return nil, err
	}
	if candidate == "" {
		candidate = current
	}
	return &Preview{Type: "string", Original: current, Content: candidate}, nil
}

// PreviewLayout compares candidate XML with the stored layout and reports
// whether the candidate is well formed.
func PreviewLayout(root, rel, candidate string) (*Preview, error) {
	current, err := ReadLayout(root, rel)
	if err != nil {
		return nil, err
	}
	if candidate == "" {
		candidate = current
	}
	valid := files.WellFormed([]byte(candidate))
	return &Preview{Type: "layout", Original: current, Content: candidate, ValidXML: &valid}, nil
}
