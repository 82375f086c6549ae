package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The marketplace API is inconsistent about response shapes: some endpoints
// return bare values, others wrap them under data/listings/items/offers.
// The shape is discriminated here, once, at the boundary; domain code only
// ever sees unwrapped values.

var listWrapperKeys = []string{"data", "offers", "listings", "items"}

// decodeObject unmarshals a single resource, unwrapping a data envelope if
// one is present.
func decodeObject(raw []byte, dest any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty upstream response")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err == nil {
		if inner, ok := probe["data"]; ok {
			return json.Unmarshal(inner, dest)
		}
	}
	return json.Unmarshal(trimmed, dest)
}

// decodeList unmarshals a collection that may arrive as a bare array or
// wrapped under any of the known collection keys.
func decodeList(raw []byte, dest any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty upstream response")
	}

	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, dest)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return fmt.Errorf("unrecognized upstream collection shape: %w", err)
	}
	for _, key := range listWrapperKeys {
		inner, ok := probe[key]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		// A wrapper key can itself hold a nested envelope ({"data":{"items":[...]}}).
		if len(inner) > 0 && inner[0] == '{' {
			return decodeList(inner, dest)
		}
		return json.Unmarshal(inner, dest)
	}
	return fmt.Errorf("no collection found under %v", listWrapperKeys)
}
