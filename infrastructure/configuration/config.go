package configuration

import (
	"fmt"
	"os"
	"strconv"

	"media-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	OAuth       OAuth       `json:"oauth"`
	Publish     Publish     `json:"publish"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
	BaseURL   string `json:"baseURL"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

// OAuth holds per-platform OAuth client credentials and token-expiry safety
// buffers. Buffers are tunable because some platforms issue much shorter-lived
// tokens than others.
type OAuth struct {
	Tiktok  OAuthClient `json:"tiktok"`
	Youtube OAuthClient `json:"youtube"`
}

type OAuthClient struct {
	ClientID                  string   `json:"clientId"`
	ClientSecret              string   `json:"clientSecret"`
	RedirectURI               string   `json:"redirectURI"`
	Scopes                    []string `json:"scopes"`
	AccessTokenBufferSeconds  int64    `json:"accessTokenBufferSeconds"`
	RefreshTokenBufferSeconds int64    `json:"refreshTokenBufferSeconds"`
}

// Publish tunes the job state machine and upload engine.
type Publish struct {
	PollIntervalSeconds int   `json:"pollIntervalSeconds"`
	PollTimeoutSeconds  int   `json:"pollTimeoutSeconds"`
	ChunkSizeBytes      int64 `json:"chunkSizeBytes"`
	AuthTaskTTLSeconds  int   `json:"authTaskTTLSeconds"`
	AuthTaskExtSeconds  int   `json:"authTaskExtSeconds"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initPublish(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	// Optional MSSQL config for production (Azure SQL)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}

	if C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = os.Getenv("MONGO_HOST")
	}
	if C.Database.Mongo.Port == "" {
		C.Database.Mongo.Port = os.Getenv("MONGO_PORT")
	}
	if C.Database.Mongo.Name == "" {
		C.Database.Mongo.Name = os.Getenv("MONGO_DB_NAME")
	}
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if C.App.BaseURL == "" {
		C.App.BaseURL = fmt.Sprintf("http://localhost:%d", C.App.Port)
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initPublish(C *Config) {
	if C.Publish.PollIntervalSeconds == 0 {
		C.Publish.PollIntervalSeconds = 5
	}
	if C.Publish.PollTimeoutSeconds == 0 {
		C.Publish.PollTimeoutSeconds = 600
	}
	if C.Publish.ChunkSizeBytes == 0 {
		C.Publish.ChunkSizeBytes = 5 * 1024 * 1024
	}
	if C.Publish.AuthTaskTTLSeconds == 0 {
		C.Publish.AuthTaskTTLSeconds = 600
	}
	if C.Publish.AuthTaskExtSeconds == 0 {
		C.Publish.AuthTaskExtSeconds = 300
	}
	// Platform token buffers default to conservative values when unset.
	if C.OAuth.Tiktok.AccessTokenBufferSeconds == 0 {
		C.OAuth.Tiktok.AccessTokenBufferSeconds = 120
	}
	if C.OAuth.Tiktok.RefreshTokenBufferSeconds == 0 {
		C.OAuth.Tiktok.RefreshTokenBufferSeconds = 300
	}
	if C.OAuth.Youtube.AccessTokenBufferSeconds == 0 {
		C.OAuth.Youtube.AccessTokenBufferSeconds = 300
	}
	if C.OAuth.Youtube.RefreshTokenBufferSeconds == 0 {
		C.OAuth.Youtube.RefreshTokenBufferSeconds = 300
	}
}
