package severity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
)

// One fixture per phrasing the v1 prompt is known to produce.
func TestExtract_Fixtures(t *testing.T) {
	tests := []struct {
		file string
		want severity.Label
	}{
		{"v1_plain_pt.txt", "ALTO"},
		{"v1_plain_en.txt", severity.LabelLow},
		{"v1_markdown_bold.txt", severity.LabelCritical},
		{"v1_lowercase_header.txt", severity.LabelMedium},
		{"v1_padded_token.txt", severity.LabelHigh},
		{"v1_crlf.txt", "CRÍTICO"},
		{"v1_missing_header.txt", severity.LabelUndefined},
		{"v1_missing_marker.txt", severity.LabelUndefined},
		{"v1_unclosed_bracket.txt", severity.LabelUndefined},
		{"v1_empty_brackets.txt", severity.LabelUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", tt.file))
			if err != nil {
				t.Fatalf("read fixture: %v", err)
			}
			if got := severity.Extract(string(data)); got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_RoundTripsEveryCanonicalLabel(t *testing.T) {
	for _, label := range []severity.Label{
		severity.LabelLow,
		severity.LabelMedium,
		severity.LabelHigh,
		severity.LabelCritical,
	} {
		text := "AVALIAÇÃO DE SEVERIDADE:\n- Nível: [" + string(label) + "]\n"
		if got := severity.Extract(text); got != label {
			t.Errorf("Extract(%q) = %q, want %q", text, got, label)
		}
	}
}

func TestExtract_MalformedInputNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"AVALIAÇÃO DE SEVERIDADE",
		"AVALIAÇÃO DE SEVERIDADE:\nNível:",
		"AVALIAÇÃO DE SEVERIDADE:\nNível: ]HIGH[",
		"AVALIAÇÃO DE SEVERIDADE:\nNível: [",
		"Nível: [HIGH]\nAVALIAÇÃO DE SEVERIDADE:",
		"\xff\xfe\xfd",
	}
	for _, in := range inputs {
		if got := severity.Extract(in); got != severity.LabelUndefined {
			t.Errorf("Extract(%q) = %q, want UNDEFINED", in, got)
		}
	}
}

func TestExtract_UsesFirstMarkerAfterHeader(t *testing.T) {
	text := "RISCOS:\n- Nível: [LOW]\nAVALIAÇÃO DE SEVERIDADE:\n- Nível: [HIGH]\n- Nível: [MEDIUM]\n"
	if got := severity.Extract(text); got != severity.LabelHigh {
		t.Errorf("Extract() = %q, want HIGH", got)
	}
}

func TestExtract_HeaderAndMarkerOnSameLine(t *testing.T) {
	text := "AVALIAÇÃO DE SEVERIDADE: Nível: [MEDIUM]"
	if got := severity.Extract(text); got != severity.LabelMedium {
		t.Errorf("Extract() = %q, want MEDIUM", got)
	}
}
