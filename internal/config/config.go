package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DefaultJWTSecret 仅用于本地开发，release 模式下禁止使用。
const DefaultJWTSecret = "dev-secret-change-me"

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"yamdb"`
	DBPath     string `env:"DBPath" envDefault:"datas/yamdb.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"yamdb"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`

	// 确认码
	ConfirmationCodeLength     int    `env:"CONFIRMATION_CODE_LENGTH" envDefault:"6"`
	ConfirmationCodeDigitBound int    `env:"CONFIRMATION_CODE_DIGIT_BOUND" envDefault:"10"`
	ConfirmationCodeTTLMinutes int    `env:"CONFIRMATION_CODE_TTL_MINUTES" envDefault:"1440"`
	ConfirmationPurgeSchedule  string `env:"CONFIRMATION_PURGE_SCHEDULE" envDefault:"@every 1h"`

	// 邮件投递
	MailBackend  string `env:"MAIL_BACKEND" envDefault:"log"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"noreply@yamdb.local"`
	MailWorkers  int    `env:"MAIL_WORKERS" envDefault:"2"`
	MailQueue    string `env:"MAIL_QUEUE" envDefault:"memory"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	RedisURL      string `env:"REDIS_URL"`
	RedisQueueKey string `env:"REDIS_QUEUE_KEY" envDefault:"yamdb:mail"`

	// 认证接口限流（每个客户端 IP）
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" envDefault:"1"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" envDefault:"10"`

	SuperuserUsername string `env:"SUPERUSER_USERNAME"`
	SuperuserEmail    string `env:"SUPERUSER_EMAIL"`
	SuperuserPassword string `env:"SUPERUSER_PASSWORD"`

	// CSV 导入数据源
	ImportSource   string `env:"IMPORT_SOURCE" envDefault:"local"`
	ImportLocalDir string `env:"IMPORT_LOCAL_DIR" envDefault:"static/data"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`
}

// ParseConfig 读取 .env（若存在）后解析环境变量。
func ParseConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.Debugf("%#v\n", Conf)
	return Conf, nil
}

// Validate 检查启动前必须满足的配置约束。
func (c Config) Validate() error {
	switch c.GinMode {
	case gin.DebugMode, gin.TestMode:
		return nil
	case gin.ReleaseMode:
		if strings.TrimSpace(c.JWTSecret) == DefaultJWTSecret {
			return errors.New("JWT_SECRET must be set when GIN_MODE is release")
		}
		return nil
	default:
		return fmt.Errorf("unsupported GIN_MODE %q", c.GinMode)
	}
}

// JWTExpiry 返回令牌有效期。
func (c Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpirationMinutes) * time.Minute
}

// ConfirmationCodeTTL 返回确认码有效期，<=0 表示永不过期。
func (c Config) ConfirmationCodeTTL() time.Duration {
	return time.Duration(c.ConfirmationCodeTTLMinutes) * time.Minute
}
