package config

const (
	// PublisherNop discards transcripts.
	PublisherNop = "nop"

	// PublisherKafka writes transcripts to a Kafka topic.
	PublisherKafka = "kafka"

	// PublisherStorage writes transcripts to the configured transcript store.
	PublisherStorage = "storage"

	defaultParserProvider = "auto"
	defaultProxyListen    = ":8080"
	defaultUpstream       = "https://api.openai.com"
	defaultPublisher      = PublisherNop
	defaultTopic          = "reel.transcripts"
	defaultWorkers        = 4
	defaultAPIListen      = ":8081"
)

// ValidPublishers returns the recognized publisher.provider values.
func ValidPublishers() []string {
	return []string{PublisherNop, PublisherKafka, PublisherStorage}
}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Parser: ParserConfig{
			Provider: defaultParserProvider,
		},
		Proxy: ProxyConfig{
			Listen:   defaultProxyListen,
			Upstream: defaultUpstream,
		},
		Publisher: PublisherConfig{
			Provider: defaultPublisher,
			Topic:    defaultTopic,
			Workers:  defaultWorkers,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
