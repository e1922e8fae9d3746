package worker

import (
	"os"
	"strings"

	"gitfeed/internal"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Watermill SubscriberConfig `yaml:"watermill"`
}

type routingConfig struct {
	Rules     []internal.Rule `yaml:"rules"`
	Watermill struct {
		DefaultTopic string `yaml:"default_topic"`
	} `yaml:"watermill"`
}

func LoadSubscriberConfig(path string) (SubscriberConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg.Watermill, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg.Watermill, err
	}
	applySubscriberDefaults(&cfg.Watermill)
	return cfg.Watermill, nil
}

// LoadTopicsFromConfig collects every topic the service can publish to: each
// rule's emit list plus the default topic.
func LoadTopicsFromConfig(path string) ([]string, error) {
	var cfg routingConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(cfg.Rules)+1)
	seen := make(map[string]struct{}, len(cfg.Rules)+1)
	add := func(topic string) {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return
		}
		if _, ok := seen[topic]; ok {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}

	for _, rule := range cfg.Rules {
		for _, topic := range rule.Emit {
			add(topic)
		}
	}
	add(cfg.Watermill.DefaultTopic)
	return topics, nil
}

func applySubscriberDefaults(cfg *SubscriberConfig) {
	if cfg.Driver == "" && len(cfg.Drivers) == 0 {
		cfg.Driver = "gochannel"
	}
	if cfg.GoChannel.OutputChannelBuffer == 0 {
		cfg.GoChannel.OutputChannelBuffer = 64
	}
	if cfg.NATS.ClientIDSuffix == "" {
		cfg.NATS.ClientIDSuffix = "-worker"
	}
}
