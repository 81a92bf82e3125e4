package severity

import "strings"

// Section header and line marker pinned to analysis.PromptVersion. Changing
// either side requires a new fixture under testdata.
const (
	SectionHeader = "AVALIAÇÃO DE SEVERIDADE"
	LevelMarker   = "Nível:"
)

// Extract returns the bracketed token following LevelMarker inside the
// severity section of text. Any missing piece yields LabelUndefined.
func Extract(text string) Label {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		if strings.Contains(strings.ToUpper(line), SectionHeader) {
			start = i
			break
		}
	}
	if start < 0 {
		return LabelUndefined
	}

	for _, line := range lines[start:] {
		idx := strings.Index(line, LevelMarker)
		if idx < 0 {
			continue
		}
		token, ok := bracketed(line[idx+len(LevelMarker):])
		if !ok {
			return LabelUndefined
		}
		return Label(token)
	}
	return LabelUndefined
}

func bracketed(s string) (string, bool) {
	open := strings.Index(s, "[")
	if open < 0 {
		return "", false
	}
	end := strings.Index(s[open+1:], "]")
	if end < 0 {
		return "", false
	}
	token := strings.TrimSpace(s[open+1 : open+1+end])
	if token == "" {
		return "", false
	}
	return token, true
}
