package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Notifications string `mapstructure:"notifications"`
}

// BusinessConfig carries the tunable policy knobs. The block threshold is
// the usage fraction above which new credit orders are refused at the
// availability check even when nominally affordable.
type BusinessConfig struct {
	CreditBlockThreshold     float64 `mapstructure:"credit_block_threshold"`
	DefaultCreditLimitCents  int64   `mapstructure:"default_credit_limit_cents"`
	MaxCreditLimitCents      int64   `mapstructure:"max_credit_limit_cents"`
	ReservationDeadlineHours int     `mapstructure:"reservation_deadline_hours"`
	WaitlistNotifyTTLHours   int     `mapstructure:"waitlist_notify_ttl_hours"`
	MaxRetryCount            int     `mapstructure:"max_retry_count"`
}

var GlobalConfig *Config

func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("parse config file: %v", err)
	}

	GlobalConfig = config
	return config
}

func setDefaults() {
	viper.SetDefault("business.credit_block_threshold", 0.90)
	viper.SetDefault("business.default_credit_limit_cents", 10000)
	viper.SetDefault("business.max_credit_limit_cents", 50000)
	viper.SetDefault("business.reservation_deadline_hours", 48)
	viper.SetDefault("business.waitlist_notify_ttl_hours", 24)
	viper.SetDefault("business.max_retry_count", 3)
}
