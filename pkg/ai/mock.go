package ai

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
)

// MockProvider answers every request with a canned text. It backs the
// "mock" provider setting and substitutes the model in tests.
type MockProvider struct {
	Model string
	Text  string
	Err   error

	mu    sync.Mutex
	calls []ai.CompletionRequest
}

const mockAssessment = `DESCRIÇÃO FÍSICA:
- Depressão localizada no pavimento asfáltico.

AVALIAÇÃO DE SEVERIDADE:
- Nível: [MEDIUM]
- Justificativa: resposta simulada, sem análise real da imagem.

RISCOS:
- Indeterminados.

CONDIÇÕES AGRAVANTES:
- Indeterminadas.

RECOMENDAÇÕES:
- Configure um provedor real para obter uma avaliação.`

func (m *MockProvider) ID() string {
	return "mock:" + m.Model
}

func (m *MockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	text := m.Text
	if text == "" {
		text = mockAssessment
	}
	return &ai.CompletionResponse{Text: text, Model: m.Model}, nil
}

// Calls returns how many requests the provider has received.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastRequest returns the most recent request, if any.
func (m *MockProvider) LastRequest() (ai.CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ai.CompletionRequest{}, false
	}
	return m.calls[len(m.calls)-1], true
}
