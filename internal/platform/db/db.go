package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"

	defaultConfigFilePath = "config/config.yaml"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"` // mysql | sqlite | memory
	SQLitePath string `yaml:"sqlite_path"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type BootstrapAdmin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type AuthConfig struct {
	JWTSecret      string         `yaml:"jwt_secret"`
	TokenTTL       time.Duration  `yaml:"token_ttl"`
	BootstrapAdmin BootstrapAdmin `yaml:"bootstrap_admin"`
}

type ApprovalConfig struct {
	TokenSecret string        `yaml:"token_secret"`
	LinkTTL     time.Duration `yaml:"link_ttl"`
	BaseURL     string        `yaml:"base_url"`
}

type LendingConfig struct {
	MaxBorrowDays int    `yaml:"max_borrow_days"`
	Timezone      string `yaml:"timezone"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type IdentityConfig struct {
	StudentDomain string `yaml:"student_domain"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Listen      string         `yaml:"listen"`
	Storage     StorageConfig  `yaml:"storage"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Auth        AuthConfig     `yaml:"auth"`
	Approval    ApprovalConfig `yaml:"approval"`
	Lending     LendingConfig  `yaml:"lending"`
	Identity    IdentityConfig `yaml:"identity"`
	Log         LogConfig      `yaml:"log"`
}

// LoadConfig は YAML を読み込み、.env / 環境変数で秘密情報を上書きする
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFilePath
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}

	// .env は無くても良い
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LAB_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LAB_APPROVAL_SECRET"); v != "" {
		c.Approval.TokenSecret = v
	}
	if v := os.Getenv("LAB_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8443"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMySQL
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/lab.db"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Approval.LinkTTL <= 0 {
		c.Approval.LinkTTL = 72 * time.Hour
	}
	if c.Lending.MaxBorrowDays <= 0 {
		c.Lending.MaxBorrowDays = 30
	}
	if c.Lending.Timezone == "" {
		c.Lending.Timezone = "Asia/Kolkata"
	}
}

// Location は貸出日の判定に使うタイムゾーン
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Lending.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// OpenSQLite は組み込み用の SQLite を開く。
// 書き込みを直列化するため接続は1本に絞る。
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}
