package remote

import (
	"encoding/json"
	"fmt"

	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/tidwall/gjson"
)

// Payload is an undecoded JSON response body. A nil Payload means the remote
// answered without content.
type Payload []byte

func (p Payload) Empty() bool {
	return len(p) == 0
}

// Extractor pulls the raw sub-structure at path out of a payload.
type Extractor interface {
	Get(payload Payload, path string) (json.RawMessage, error)
}

// GJSONExtractor evaluates gjson paths, e.g. "MdmsRes.ws-services-masters.billingPeriod".
type GJSONExtractor struct{}

func NewExtractor() GJSONExtractor {
	return GJSONExtractor{}
}

func (GJSONExtractor) Get(payload Payload, path string) (json.RawMessage, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: payload is not valid json", core.ErrMalformedResponse)
	}

	res := gjson.GetBytes(payload, path)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: path %q not found", core.ErrMalformedResponse, path)
	}

	return json.RawMessage(res.Raw), nil
}

// Has reports whether path is present in payload.
func Has(payload Payload, path string) bool {
	return gjson.ValidBytes(payload) && gjson.GetBytes(payload, path).Exists()
}

// Extract decodes the value at path into T. A missing path or a value that
// does not decode into T is an ErrMalformedResponse.
func Extract[T any](x Extractor, payload Payload, path string) (T, error) {
	var out T

	raw, err := x.Get(payload, path)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: decode %q: %v", core.ErrMalformedResponse, path, err)
	}

	return out, nil
}

// Decode converts the whole payload into T.
func Decode[T any](payload Payload) (T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	return out, nil
}
