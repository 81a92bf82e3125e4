package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
)

const defaultViaCEPBaseURL = "https://viacep.com.br/ws"

// ViaCEP resolves Brazilian postal codes with the public ViaCEP service.
type ViaCEP struct {
	endpoint
}

func NewViaCEP(opts ...Option) *ViaCEP {
	return &ViaCEP{endpoint: newEndpoint(defaultViaCEPBaseURL, opts)}
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	// Older deployments answer true, newer ones "true".
	Erro any `json:"erro"`
}

func (r viaCEPResponse) notFound() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// LookupAddress returns the address for code. Malformed codes and unknown
// codes both yield an error wrapping geo.ErrAddressNotFound; unreachable or
// broken upstreams yield geo.ErrLookupFailed.
func (v *ViaCEP) LookupAddress(ctx context.Context, code string) (geo.Address, error) {
	digits, err := geo.NormalizeCEP(code)
	if err != nil {
		return geo.Address{}, err
	}

	resp, err := v.get(ctx, fmt.Sprintf("%s/%s/json/", strings.TrimRight(v.baseURL, "/"), digits))
	if err != nil {
		return geo.Address{}, err
	}

	switch resp.status {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound:
		return geo.Address{}, fmt.Errorf("%w: %s", geo.ErrAddressNotFound, geo.FormatCEP(digits))
	default:
		return geo.Address{}, fmt.Errorf("%w: ViaCEP returned status %d", geo.ErrLookupFailed, resp.status)
	}

	var body viaCEPResponse
	if err := json.Unmarshal(resp.body, &body); err != nil {
		return geo.Address{}, fmt.Errorf("%w: malformed ViaCEP response: %v", geo.ErrLookupFailed, err)
	}
	if body.notFound() {
		return geo.Address{}, fmt.Errorf("%w: %s", geo.ErrAddressNotFound, geo.FormatCEP(digits))
	}

	return geo.Address{
		CEP:      digits,
		Street:   body.Logradouro,
		District: body.Bairro,
		City:     body.Localidade,
		State:    body.UF,
	}, nil
}
