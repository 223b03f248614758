package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
}

// ServerConfig 定义了HTTP服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了统计API的CORS相关配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	Redis  RedisConfig  `mapstructure:"redis"`
	Sqlite SqliteConfig `mapstructure:"sqlite"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig 定义了SQLite数据库文件的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// TrackerConfig 定义了announce协议和记账策略的全部可调参数
type TrackerConfig struct {
	// AnnounceInterval / MinInterval 是返回给BT客户端的重新announce间隔（秒）。
	// 由tracker决定，客户端不可配置。
	AnnounceInterval int `mapstructure:"announceInterval"`
	MinInterval      int `mapstructure:"minInterval"`

	// MinimumRatio 是允许下载所要求的最低分享率。设为-1关闭该限制。
	MinimumRatio float64 `mapstructure:"minimumRatio"`

	// MaximumHitNRuns 是允许的最大hit'n'run次数。设为-1关闭该限制。
	MaximumHitNRuns int `mapstructure:"maximumHitNRuns"`

	// SiteWideFreeleech 为true时，全站所有种子的下载量都不计入分享率。
	SiteWideFreeleech bool `mapstructure:"siteWideFreeleech"`

	// BonusPointsPerGB 是每上传1GB获得的积分数。
	BonusPointsPerGB int64 `mapstructure:"bonusPointsPerGB"`

	// ReaperIntervalMinutes 是失效peer清扫器两次扫描之间的间隔（分钟）。
	ReaperIntervalMinutes int `mapstructure:"reaperIntervalMinutes"`

	// PeerRetentionMinutes 是peer会话记录的保留窗口（分钟）。
	// 超过该窗口未announce且会话计数为零的记录会被清扫。
	PeerRetentionMinutes int `mapstructure:"peerRetentionMinutes"`

	// MaxNumWant 是单次announce返回的peer数量上限。
	MaxNumWant int `mapstructure:"maxNumWant"`
}

// ReaperInterval 返回清扫间隔的time.Duration形式。
func (c *TrackerConfig) ReaperInterval() time.Duration {
	return time.Duration(c.ReaperIntervalMinutes) * time.Minute
}

// PeerRetention 返回保留窗口的time.Duration形式。
func (c *TrackerConfig) PeerRetention() time.Duration {
	return time.Duration(c.PeerRetentionMinutes) * time.Minute
}

// RatioDisabled 报告最低分享率限制是否被关闭。
func (c *TrackerConfig) RatioDisabled() bool {
	return c.MinimumRatio == -1
}

// HitNRunsDisabled 报告hit'n'run限制是否被关闭。
func (c *TrackerConfig) HitNRunsDisabled() bool {
	return c.MaximumHitNRuns == -1
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. 设置配置文件名和类型
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 2. 添加配置文件搜索路径
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 3. 设置环境变量支持
	// 允许通过环境变量覆盖配置，例如 TRACKER_MINIMUMRATIO=0.5
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. 所有策略参数都有默认值，配置文件里只需要写想覆盖的项
	setDefaults(v)

	// 5. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时用默认值运行；其他错误（格式错误等）仍然上报
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	// 6. 将配置反序列化到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 7. 将加载的配置赋值给全局变量
	Cfg = &cfg

	return Cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":3001")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.sqlite.path", "tracker.db")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("tracker.announceInterval", 30)
	v.SetDefault("tracker.minInterval", 30)
	v.SetDefault("tracker.minimumRatio", 0.75)
	v.SetDefault("tracker.maximumHitNRuns", 3)
	v.SetDefault("tracker.siteWideFreeleech", false)
	v.SetDefault("tracker.bonusPointsPerGB", 3)
	v.SetDefault("tracker.reaperIntervalMinutes", 60)
	v.SetDefault("tracker.peerRetentionMinutes", 24*60)
	v.SetDefault("tracker.maxNumWant", 50)
}
