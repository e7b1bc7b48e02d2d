package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Env  string `env:"ENV" env-default:"development"`
	Port string `env:"PORT" env-default:"8080"`

	DB       DBConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Log      LogConfig
	Admin    AdminConfig
	HTTP     HTTPConfig
	Donation DonationConfig

	ContactReceiverEmail string `env:"CONTACT_RECEIVER_EMAIL"`
	// MessageStore selects the chat message backend: "sql" or "mongo".
	MessageStore string `env:"MESSAGE_STORE" env-default:"sql"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" env-default:"bhojansetu"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"JWT_TTL" env-default:"168h"`
}

type SMTPConfig struct {
	Host        string        `env:"SMTP_HOST"`
	Port        int           `env:"SMTP_PORT" env-default:"587"`
	Username    string        `env:"SMTP_USERNAME"`
	Password    string        `env:"SMTP_PASSWORD"`
	SenderEmail string        `env:"SMTP_SENDER_EMAIL"`
	Encryption  string        `env:"SMTP_ENCRYPTION" env-default:"tls"`
	Timeout     time.Duration `env:"SMTP_TIMEOUT" env-default:"10s"`
}

// Enabled reports whether enough SMTP settings are present to deliver real mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.SenderEmail != ""
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Channel  string `env:"REDIS_CHANNEL" env-default:"bhojansetu:chat"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" env-default:"bhojansetu"`
}

type LogConfig struct {
	Level    string `env:"LOG_LEVEL" env-default:"info"`
	Encoding string `env:"LOG_ENCODING" env-default:"json"`
}

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" env-default:"BhojanSetu Admin"`
}

type HTTPConfig struct {
	ClientURLs         []string      `env:"CLIENT_URLS" env-separator:"," env-default:"http://localhost:5173,http://localhost:3000"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" env-default:"30"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DonationConfig struct {
	// ExpirySweepInterval enables the background expiry sweep when non-zero.
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" env-default:"0s"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.MessageStore {
	case "sql", "mongo":
	default:
		return fmt.Errorf("MESSAGE_STORE must be sql or mongo, got %q", c.MessageStore)
	}
	if c.IsProduction() && !c.SMTP.Enabled() {
		return errors.New("SMTP_HOST and SMTP_SENDER_EMAIL must be set in production")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Donation{}, &models.Message{})
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func EnsureAdmin(db *gorm.DB, cfg AdminConfig, log *zap.Logger) error {
	if cfg.Email == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Email))

	var existing models.User
	result := db.Where("email = ?", email).Limit(1).Find(&existing)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:       cfg.Name,
		Email:      email,
		Password:   string(hashed),
		Role:       models.RoleAdmin,
		Address:    "-",
		IsVerified: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
