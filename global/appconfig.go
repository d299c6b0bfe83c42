package global

import "time"

type AppConfig struct {
	NodeID   int64          `mapstructure:"node_id"` // 雪花节点号
	Server   ServerConfig   `mapstructure:"server"`
	Collab   CollabConfig   `mapstructure:"collab"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Activity ActivityConfig `mapstructure:"activity"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GrpcAddr        string        `mapstructure:"grpc_addr"` // 健康检查
	WsPath          string        `mapstructure:"ws_path"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"` // 空 => 不校验
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CollabConfig 协同编辑子系统
type CollabConfig struct {
	Workers         int           `mapstructure:"workers"`     // <=0 => runtime.NumCPU()
	Buffer          int           `mapstructure:"buffer"`      // 事件队列容量
	SendQueue       int           `mapstructure:"send_queue"`  // 每连接发送队列
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
	PresenceTTL     time.Duration `mapstructure:"presence_ttl"`
}

type AuthConfig struct {
	JwtSecret  string        `mapstructure:"jwt_secret"`
	JwtAlg     string        `mapstructure:"jwt_alg"`
	JwtTTL     time.Duration `mapstructure:"jwt_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	CookieName string        `mapstructure:"cookie_name"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"` // 用户资料缓存
}

type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	AuthSource  string `mapstructure:"auth_source"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// ActivityConfig 协同动态（加入/离开/进入/退出编辑）下游投递
type ActivityConfig struct {
	Driver  string   `mapstructure:"driver"` // none | nats | kafka
	Subject string   `mapstructure:"subject"`
	Servers []string `mapstructure:"servers"` // nats
	Brokers []string `mapstructure:"brokers"` // kafka
	Topic   string   `mapstructure:"topic"`

	// kafka：compression none|snappy|lz4|zstd；partitions > 0 时自动建 topic
	Compression       string `mapstructure:"compression"`
	Partitions        int32  `mapstructure:"partitions"`
	ReplicationFactor int16  `mapstructure:"replication_factor"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}
