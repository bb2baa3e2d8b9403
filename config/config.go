// Package config loads broker/controller/coordinator configuration from
// YAML, applying the defaults named in spec §6 after unmarshal
// (SPEC_FULL.md §2.1).
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CefBoud/corelog/types"
)

const (
	defaultBrokerPort        = 9092
	defaultControllerPort    = 9093
	defaultCoordinatorPort   = 9094
	defaultMaxSegmentBytes   = 128 << 20
	defaultSegmentRollMs     = int64(60 * 60 * 1000)
	defaultMaxInflightBytes  = 100 << 20
	defaultReplicationFactor = 1
	defaultMinInsyncReplicas = 1
	defaultRequestTimeoutMs  = int64(30_000)
	defaultFlushPolicy       = "onroll"
	defaultHeartbeatMs       = int64(10_000)
	defaultSessionTimeoutMs  = int64(30_000)
	defaultRebalanceMs       = int64(300_000)
	defaultLogLevel          = "INFO"
)

// LoadBroker reads and defaults a BrokerConfig from path.
func LoadBroker(path string) (types.BrokerConfig, error) {
	var c types.BrokerConfig
	if err := readYAML(path, &c); err != nil {
		return c, err
	}
	if c.Port == 0 {
		c.Port = defaultBrokerPort
	}
	if c.MaxSegmentSizeBytes == 0 {
		c.MaxSegmentSizeBytes = defaultMaxSegmentBytes
	}
	if c.SegmentRollIntervalMs == 0 {
		c.SegmentRollIntervalMs = defaultSegmentRollMs
	}
	if c.MaxInflightBytes == 0 {
		c.MaxInflightBytes = defaultMaxInflightBytes
	}
	if c.ReplicationFactor == 0 {
		c.ReplicationFactor = defaultReplicationFactor
	}
	if c.MinInsyncReplicas == 0 {
		c.MinInsyncReplicas = defaultMinInsyncReplicas
	}
	if c.RequestTimeoutMs == 0 {
		c.RequestTimeoutMs = defaultRequestTimeoutMs
	}
	if c.FlushPolicy == "" {
		c.FlushPolicy = defaultFlushPolicy
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return c, nil
}

// LoadController reads and defaults a ControllerConfig from path.
func LoadController(path string) (types.ControllerConfig, error) {
	var c types.ControllerConfig
	if err := readYAML(path, &c); err != nil {
		return c, err
	}
	if c.Port == 0 {
		c.Port = defaultControllerPort
	}
	if c.HeartbeatIntervalMs == 0 {
		c.HeartbeatIntervalMs = defaultHeartbeatMs
	}
	if c.SessionTimeoutMs == 0 {
		c.SessionTimeoutMs = defaultSessionTimeoutMs
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return c, nil
}

// LoadCoordinator reads and defaults a CoordinatorConfig from path.
func LoadCoordinator(path string) (types.CoordinatorConfig, error) {
	var c types.CoordinatorConfig
	if err := readYAML(path, &c); err != nil {
		return c, err
	}
	if c.Port == 0 {
		c.Port = defaultCoordinatorPort
	}
	if c.HeartbeatIntervalMs == 0 {
		c.HeartbeatIntervalMs = defaultHeartbeatMs
	}
	if c.SessionTimeoutMs == 0 {
		c.SessionTimeoutMs = defaultSessionTimeoutMs
	}
	if c.RebalanceTimeoutMs == 0 {
		c.RebalanceTimeoutMs = defaultRebalanceMs
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return c, nil
}

// readYAML unmarshals path into out. A missing file is not an error —
// every field stays at its zero value and gets defaulted by the caller,
// since every config knob is optional (spec §6).
func readYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
