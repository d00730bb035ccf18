package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Default source locations.
const (
	DefaultDatasetURL  = "https://gist.githubusercontent.com/andre6639/c40b02a85c7362bc1237b530f7988ff0/raw/c3da73ab6ba569a97f906c2a559ad2dddc2de050/MissingMigrants-ConciseGlobal-2020-11-04T23-14-14.csv"
	DefaultTopologyURL = "https://unpkg.com/world-atlas@2.0.2/countries-50m.json"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatasetURL   string
	TopologyURL  string
	FetchTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Canvas geometry.
	CanvasWidth       float64
	CanvasHeight      float64
	HistogramFraction float64
	MaxRadius         float64
	RenderCacheSize   int

	// Selection event stream; disabled unless brokers are set.
	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaSelectionTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "30s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	width, err := parsePositiveFloat("CANVAS_WIDTH", 960)
	if err != nil {
		return nil, err
	}
	height, err := parsePositiveFloat("CANVAS_HEIGHT", 500)
	if err != nil {
		return nil, err
	}
	fraction, err := parsePositiveFloat("HISTOGRAM_FRACTION", 0.224)
	if err != nil {
		return nil, err
	}
	if fraction >= 1 {
		return nil, errors.New("HISTOGRAM_FRACTION must be below 1")
	}
	maxRadius, err := parsePositiveFloat("MAX_RADIUS", 15)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DatasetURL:   sharedcfg.EnvOrDefault("DATASET_URL", DefaultDatasetURL),
		TopologyURL:  sharedcfg.EnvOrDefault("TOPOLOGY_URL", DefaultTopologyURL),
		FetchTimeout: fetchTimeout,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CanvasWidth:       width,
		CanvasHeight:      height,
		HistogramFraction: fraction,
		MaxRadius:         maxRadius,
		RenderCacheSize:   parseRenderCacheSize(),

		KafkaEnabled:        kafkaEnabled,
		KafkaBrokers:        brokers,
		KafkaSelectionTopic: sharedcfg.EnvOrDefault("KAFKA_SELECTION_TOPIC", "map-selection-events"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSelectionTopic == "" {
		return nil, errors.New("KAFKA_SELECTION_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseRenderCacheSize() int {
	if s := os.Getenv("RENDER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 64
}
