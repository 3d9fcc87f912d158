package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	UDPAddr        string
	UDPBufferSize  int
	UDPReadTimeout time.Duration

	StateFile         string
	StateSaveInterval time.Duration
	AlertConfigFile   string

	OfflineTimeout       time.Duration
	OfflineGrace         time.Duration
	OfflineSweepInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional notification sinks; an empty address disables the sink.
	KafkaBrokers    []string
	KafkaAlertTopic string

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	MQTTUsername    string
	MQTTPassword    string

	// Optional telemetry export.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	readTimeout, err := parsePositiveDuration("UDP_READ_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	saveInterval, err := parsePositiveDuration("STATE_SAVE_INTERVAL", "600s")
	if err != nil {
		return nil, err
	}
	offlineTimeout, err := parsePositiveDuration("OFFLINE_TIMEOUT", "360s")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := parsePositiveDuration("OFFLINE_SWEEP_INTERVAL", "10s")
	if err != nil {
		return nil, err
	}

	grace, err := time.ParseDuration(sharedcfg.EnvOrDefault("OFFLINE_GRACE", "120s"))
	if err != nil || grace < 0 {
		return nil, errors.New("invalid OFFLINE_GRACE")
	}

	bufSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("UDP_BUFFER_SIZE", "4096"))
	if err != nil || bufSize <= 0 {
		return nil, errors.New("invalid UDP_BUFFER_SIZE")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		UDPAddr:        sharedcfg.EnvOrDefault("UDP_ADDR", "0.0.0.0:50222"),
		UDPBufferSize:  bufSize,
		UDPReadTimeout: readTimeout,

		StateFile:         sharedcfg.EnvOrDefault("STATE_FILE", "status.json"),
		StateSaveInterval: saveInterval,
		AlertConfigFile:   sharedcfg.EnvOrDefault("ALERT_CONFIG_FILE", "config.json"),

		OfflineTimeout:       offlineTimeout,
		OfflineGrace:         grace,
		OfflineSweepInterval: sweepInterval,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:    brokers,
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "tempest-alerts"),

		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "tempest-monitor"),
		MQTTTopicPrefix: sharedcfg.EnvOrDefault("MQTT_TOPIC_PREFIX", "tempest/alerts"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUX_ORG"),
		InfluxBucket: sharedcfg.EnvOrDefault("INFLUX_BUCKET", "tempest"),
	}

	if cfg.UDPAddr == "" {
		return nil, errors.New("UDP_ADDR is required")
	}
	if cfg.StateFile == "" {
		return nil, errors.New("STATE_FILE is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.InfluxURL != "" && cfg.InfluxOrg == "" {
		return nil, errors.New("INFLUX_ORG is required when INFLUX_URL is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
