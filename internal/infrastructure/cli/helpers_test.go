package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	fcolor "github.com/fatih/color"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/storage"
	infraAI "github.com/felixgeelhaar/buraco/pkg/ai"
	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/ai"
	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
)

const criticoAnswer = "AVALIAÇÃO DE SEVERIDADE:\n- Nível: [CRÍTICO]\n- Justificativa: cratera."

func init() {
	fcolor.NoColor = true
}

type stubAddresses struct{}

func (stubAddresses) LookupAddress(_ context.Context, cep string) (geo.Address, error) {
	digits, err := geo.NormalizeCEP(cep)
	if err != nil {
		return geo.Address{}, err
	}
	if digits == "00000000" {
		return geo.Address{}, fmt.Errorf("%w: %s", geo.ErrAddressNotFound, digits)
	}
	return geo.Address{CEP: digits, Street: "Avenida Sete de Setembro", District: "Centro", City: "Salvador", State: "BA"}, nil
}

func newTestIntake(t *testing.T, provider *infraAI.MockProvider) *application.IntakeService {
	t.Helper()
	client := analysis.NewClient(func(string) ai.Provider { return provider })
	return application.NewIntakeService(
		storage.NewMemorySessionStore(0),
		application.NewPipeline(client),
		stubAddresses{},
		application.Credentials{AIKey: "test-key"},
	)
}

// photo encodes a w×h PNG padded to size bytes.
func photo(t *testing.T, w, h, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 70, G: 70, B: 70, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() < size {
		buf.Write(make([]byte, size-buf.Len()))
	}
	return buf.Bytes()
}
