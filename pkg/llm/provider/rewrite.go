package provider

import (
	"encoding/json"
)

// MessageToDelta rewrites a complete (non-streaming) chat completion so that
// every choices[i].message is moved to choices[i].delta. The result can then
// be normalized exactly like a streaming chunk.
//
// Payloads without a choices array, or that are not JSON objects, are
// returned unchanged.
func MessageToDelta(payload []byte) []byte {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return payload
	}

	raw, ok := doc["choices"]
	if !ok {
		return payload
	}

	var choices []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &choices); err != nil {
		return payload
	}

	changed := false
	for _, choice := range choices {
		msg, ok := choice["message"]
		if !ok {
			continue
		}
		choice["delta"] = msg
		delete(choice, "message")
		changed = true
	}
	if !changed {
		return payload
	}

	rewritten, err := json.Marshal(choices)
	if err != nil {
		return payload
	}
	doc["choices"] = rewritten

	out, err := json.Marshal(doc)
	if err != nil {
		return payload
	}
	return out
}
