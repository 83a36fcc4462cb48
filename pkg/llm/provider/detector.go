package provider

import (
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/reel/pkg/llm/provider/besteffort"
	"github.com/papercomputeco/reel/pkg/llm/provider/openai"
)

// Detector manages provider detection by checking registered providers in order.
type Detector struct {
	providers []Provider
	fallback  Provider
}

// NewDetector creates a new Detector with the default set of providers.
// Providers are checked in order: Anthropic, OpenAI, then BestEffort as fallback.
func NewDetector() *Detector {
	return &Detector{
		providers: []Provider{
			anthropic.New(),
			openai.New(),
		},
		fallback: besteffort.New(),
	}
}

// NewFixedDetector returns a Detector that always uses p, falling back to
// BestEffort only when p cannot parse a payload.
func NewFixedDetector(p Provider) *Detector {
	return &Detector{
		providers: []Provider{p},
		fallback:  besteffort.New(),
	}
}

// Detect returns the appropriate provider for the given payload.
// It iterates through registered providers and returns the first one
// that reports it can handle the payload. If no provider matches,
// BestEffort is returned as the fallback.
func (d *Detector) Detect(payload []byte) Provider {
	for _, p := range d.providers {
		if p.CanHandle(payload) {
			return p
		}
	}
	return d.fallback
}

// Parse detects the provider for payload and parses it. It never fails:
// payloads no provider can make sense of come back as ShapeUnknown chunks.
// A Meta without a provider is attributed to the detected provider.
func (d *Detector) Parse(payload []byte) *llm.Chunk {
	p := d.Detect(payload)

	chunk, err := p.ParseChunk(payload)
	if err != nil && p != d.fallback {
		p = d.fallback
		chunk, err = p.ParseChunk(payload)
	}
	if err != nil || chunk == nil {
		return &llm.Chunk{Shape: llm.ShapeUnknown}
	}

	if chunk.Meta != nil && chunk.Meta.Provider == "" {
		chunk.Meta.Provider = p.Name()
	}
	return chunk
}
