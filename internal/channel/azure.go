package channel

import (
	"io"
	"net/http"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func init() {
	Register(types.FormatAzureOpenAI, func() Adapter { return &azureAdapter{} })
}

// azureAdapter reuses the OpenAI body shape but rewrites the path to
// the deployment-scoped Azure route and swaps the credential header.
type azureAdapter struct {
	openaiAdapter
}

func (a *azureAdapter) Format() types.APIFormat { return types.FormatAzureOpenAI }

func (a *azureAdapter) BuildRequest(req types.CanonicalRequest, reasoning map[string]any) (string, []byte, error) {
	body, err := buildChatBody(req)
	if err != nil {
		return "", nil, err
	}
	body, err = mergeFragment(body, reasoning)
	if err != nil {
		return "", nil, err
	}
	path := "/openai/deployments/" + req.Model + "/chat/completions?api-version=2024-06-01"
	return path, body, nil
}

func (a *azureAdapter) Headers(apiKey string) http.Header {
	h := http.Header{}
	h.Set("api-key", apiKey)
	h.Set("Content-Type", "application/json")
	return h
}

func (a *azureAdapter) ParseStream(r io.Reader, emit func(types.CanonicalStreamEvent)) error {
	return a.openaiAdapter.ParseStream(r, emit)
}

func (a *azureAdapter) ParseNonStream(body []byte) (types.CanonicalStreamEvent, error) {
	return a.openaiAdapter.ParseNonStream(body)
}
