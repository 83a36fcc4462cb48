package provider

import (
	"fmt"

	"github.com/papercomputeco/reel/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/reel/pkg/llm/provider/besteffort"
	"github.com/papercomputeco/reel/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic  = "anthropic"
	OpenAI     = "openai"
	BestEffort = "besteffort"

	// Auto leaves vendor detection to the per-payload Detector.
	Auto = "auto"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, BestEffort}
}

// New creates a new Provider instance for the given provider type.
// Returns an error if the provider type is not recognized.
func New(providerType string) (Provider, error) {
	switch providerType {
	case Anthropic:
		return anthropic.New(), nil
	case OpenAI:
		return openai.New(), nil
	case BestEffort:
		return besteffort.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}

// Resolve maps a configured dialect name to a Provider. Empty and Auto
// return a nil Provider, which leaves the caller detecting per payload.
func Resolve(name string) (Provider, error) {
	switch name {
	case "", Auto:
		return nil, nil
	default:
		return New(name)
	}
}
