package sse

import (
	"bytes"
	"encoding/json"
)

// Payload is a data payload that parsed as JSON.
type Payload struct {
	// Value is the raw JSON document, whitespace trimmed.
	Value json.RawMessage

	// OriginLineIndex is the index of the line the payload was read from.
	OriginLineIndex int
}

// Decoder validates data payloads as JSON.
//
// Payloads that fail to parse are dropped without an event; the drop
// counter is the only trace they leave.
type Decoder struct {
	decoded int
	dropped int
}

// NewDecoder returns a Decoder with zeroed counters.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode returns the parsed payload and true, or a zero Payload and false
// when the signal is not data or its payload is not valid JSON.
func (d *Decoder) Decode(sig Signal) (Payload, bool) {
	if sig.Kind != SignalData {
		return Payload{}, false
	}

	return d.DecodeBytes([]byte(sig.Payload), sig.LineIndex)
}

// DecodeBytes validates raw as a JSON document.
func (d *Decoder) DecodeBytes(raw []byte, lineIndex int) (Payload, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		d.dropped++
		return Payload{}, false
	}

	d.decoded++
	return Payload{
		Value:           json.RawMessage(append([]byte(nil), raw...)),
		OriginLineIndex: lineIndex,
	}, true
}

// Decoded returns the number of payloads that parsed successfully.
func (d *Decoder) Decoded() int {
	return d.decoded
}

// Dropped returns the number of payloads discarded as invalid JSON.
func (d *Decoder) Dropped() int {
	return d.dropped
}
