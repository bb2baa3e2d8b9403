package types

// BrokerConfig configures a broker process. Field names follow spec §6;
// defaults are applied by the config package after YAML unmarshal.
type BrokerConfig struct {
	ID                    uint32 `yaml:"id"`
	Host                  string `yaml:"host"`
	Port                  uint32 `yaml:"port"`
	LogDir                string `yaml:"log_dir"`
	MaxSegmentSizeBytes   int64  `yaml:"max_segment_size_bytes"`
	SegmentRollIntervalMs int64  `yaml:"segment_roll_interval_ms"`
	MaxInflightBytes      int64  `yaml:"max_inflight_bytes"`
	ReplicationFactor     int    `yaml:"replication_factor"`
	MinInsyncReplicas     int    `yaml:"min_insync_replicas"`
	RequestTimeoutMs      int64  `yaml:"request_timeout_ms"`
	FlushPolicy           string `yaml:"flush_policy"`
	LogLevel              string `yaml:"log_level"`
}

// ControllerConfig configures a controller process.
type ControllerConfig struct {
	ID                  uint32 `yaml:"id"`
	Host                string `yaml:"host"`
	Port                uint32 `yaml:"port"`
	HeartbeatIntervalMs int64  `yaml:"heartbeat_interval_ms"`
	SessionTimeoutMs    int64  `yaml:"session_timeout_ms"`
	LogLevel            string `yaml:"log_level"`
}

// CoordinatorConfig configures a coordinator process.
type CoordinatorConfig struct {
	ID                  uint32 `yaml:"id"`
	Host                string `yaml:"host"`
	Port                uint32 `yaml:"port"`
	OffsetStoragePath   string `yaml:"offset_storage_path"`
	HeartbeatIntervalMs int64  `yaml:"heartbeat_interval_ms"`
	SessionTimeoutMs    int64  `yaml:"session_timeout_ms"`
	RebalanceTimeoutMs  int64  `yaml:"rebalance_timeout_ms"`
	// ControllerAddr, when set, is dialed over net/rpc to source each
	// topic's partition count from the controller's metadata (spec §4.5's
	// "production implementations MUST consult the controller"). Empty
	// falls back to the coordinator's own defaultPartitionCount guess.
	ControllerAddr string `yaml:"controller_addr"`
	LogLevel       string `yaml:"log_level"`
}
