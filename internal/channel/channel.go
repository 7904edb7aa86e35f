// Package channel implements the FormatAdapter component: translation
// of canonical requests/responses to and from each upstream dialect's
// wire shape. It mirrors gpt-load's internal/channel package — a small
// registry of constructors keyed by dialect name, one file per dialect
// — generalized from "channel type for a group" to "adapter for an
// API format".
package channel

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

// Adapter translates between the canonical request/response shape and
// one upstream dialect's wire format.
type Adapter interface {
	// Format reports the dialect this adapter implements.
	Format() types.APIFormat

	// BuildRequest renders req (with reasoning merged in) into the
	// upstream's body and the path to append to the upstream base URL.
	BuildRequest(req types.CanonicalRequest, reasoning map[string]any) (path string, body []byte, err error)

	// Headers returns the credential/version headers this dialect
	// expects, given the resolved API key.
	Headers(apiKey string) http.Header

	// ParseStream reads upstream's streaming response body and invokes
	// emit for each canonical event it decodes, in order, until EOF or
	// a dialect-native completion sentinel. It does not itself close r.
	ParseStream(r io.Reader, emit func(types.CanonicalStreamEvent)) error

	// ParseNonStream decodes a single buffered (non-streaming) upstream
	// response body into one canonical event.
	ParseNonStream(body []byte) (types.CanonicalStreamEvent, error)
}

type constructor func() Adapter

var registry = make(map[types.APIFormat]constructor)

// Register adds an adapter constructor under format. Called from each
// dialect file's init().
func Register(format types.APIFormat, c constructor) {
	if _, exists := registry[format]; exists {
		panic(fmt.Sprintf("channel: adapter for format %q already registered", format))
	}
	registry[format] = c
}

// Get returns a fresh Adapter for format, or an error if the dialect is
// unknown. Adapters are stateless and constructed per call; unlike
// gpt-load's per-group channel cache, there is no per-request state to
// amortize here.
func Get(format types.APIFormat) (Adapter, error) {
	c, ok := registry[format]
	if !ok {
		return nil, fmt.Errorf("channel: unsupported api_format %q", format)
	}
	return c(), nil
}

// Supported returns the set of registered dialect names.
func Supported() []types.APIFormat {
	out := make([]types.APIFormat, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	return out
}
