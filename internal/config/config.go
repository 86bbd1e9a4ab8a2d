package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env          string `env:"ENV" env-required:"true"`
	LogLevel     string `env:"LOG_LEVEL" env-default:"info" env-description:"logging level, debug, info, etc."`
	HttpServer   HttpServer
	Database     Database
	Limiter      Limiter
	Auth         AuthConfig
	Cache        Cache
	Storage      Storage
	Push         Push
	SMTP         SMTPConfig
	Email        EmailConfig
	Verification Verification
}

type HttpServer struct {
	Port           string        `env:"HTTP_PORT" env-default:"8080"`
	Timeout        time.Duration `env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	SwaggerEnabled bool          `env:"HTTP_SWAGGER_ENABLED" env-default:"false"`
}

type Database struct {
	Net                string        `env:"DB_NET" env-default:"tcp"`
	Server             string        `env:"DB_SERVER" env-required:"true"`
	DBName             string        `env:"DB_NAME" env-required:"true"`
	User               string        `env:"DB_USER" env-required:"true"`
	Password           string        `env:"DB_PASSWORD" env-required:"true"`
	TimeZone           string        `env:"DB_TIMEZONE"`
	Timeout            time.Duration `env:"DB_TIMEOUT" env-default:"2s"`
	MaxIdleConnections int           `env:"DB_MAX_IDLE_CONNECTIONS" env-default:"40"`
	MaxOpenConnections int           `env:"DB_MAX_OPEN_CONNECTIONS" env-default:"40"`
}

type Limiter struct {
	RPS   int           `env:"LIMITER_RPS" env-default:"10"`
	Burst int           `env:"LIMITER_BURST" env-default:"20"`
	TTL   time.Duration `env:"LIMITER_TTL" env-default:"10m"`
}

type AuthConfig struct {
	JWT JWTConfig
}

type JWTConfig struct {
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
	SigningKey     string        `env:"JWT_SIGNING_KEY" env-required:"true"`
}

type Cache struct {
	Type  string `env:"REDIS_TYPE" env-required:"true" env-description:"specifies provider, one of redis/redisCluster"`
	Redis struct {
		Address  string `env:"REDIS_ADDR" env-default:"" env-description:"redis host:port single instance"`
		Password string `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize int    `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
	RedisCluster struct {
		Addresses []string `env:"REDIS_CLUSTER_ADDRS" env-default:"" env-description:"redis cluster nodes"`
		Password  string   `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize  int      `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
}

type Storage struct {
	Endpoint        string        `env:"S3_ENDPOINT" env-required:"true"`
	Region          string        `env:"S3_REGION" env-default:"us-east-1"`
	AccessKey       string        `env:"S3_ACCESS_KEY" env-required:"true"`
	SecretKey       string        `env:"S3_SECRET_KEY" env-required:"true"`
	Bucket          string        `env:"S3_BUCKET" env-default:"humrah-verification"`
	ForcePathStyle  bool          `env:"S3_FORCE_PATH_STYLE" env-default:"true"`
	DisableTLS      bool          `env:"S3_DISABLE_TLS" env-default:"false"`
	UploadTimeout   time.Duration `env:"MEDIA_UPLOAD_TIMEOUT" env-default:"120s"`
	DownloadTimeout time.Duration `env:"MEDIA_DOWNLOAD_TIMEOUT" env-default:"30s"`
}

type Push struct {
	Endpoint  string        `env:"FCM_ENDPOINT" env-default:"https://fcm.googleapis.com/fcm/send"`
	ServerKey string        `env:"FCM_SERVER_KEY" env-default:""`
	Timeout   time.Duration `env:"PUSH_TIMEOUT" env-default:"10s"`
}

type SMTPConfig struct {
	Host string `env:"SMTP_HOST" env-default:""`
	Port int    `env:"SMTP_PORT" env-default:"587"`
	From string `env:"SMTP_FROM" env-default:""`
	Pass string `env:"SMTP_PASS" env-default:""`
}

type EmailConfig struct {
	Enabled   bool `env:"EMAIL_ENABLED" env-default:"false"`
	Templates EmailTemplates
}

type EmailTemplates struct {
	ManualReview string `env:"EMAIL_TEMPLATE_MANUAL_REVIEW" env-default:"manual_review.html"`
}

// Verification carries every tunable of the identity pipeline. Defaults match
// production behavior; tests override individual fields.
type Verification struct {
	VideoMaxBytes         int64   `env:"VIDEO_MAX_BYTES" env-default:"15728640"`
	SessionExpirySeconds  int     `env:"SESSION_EXPIRY_SECONDS" env-default:"600"`
	RecordSeconds         int     `env:"RECORD_SECONDS" env-default:"10"`
	RetryWindowSeconds    int     `env:"RETRY_WINDOW_SECONDS" env-default:"3600"`
	RetryMaxAttempts      int     `env:"RETRY_MAX_ATTEMPTS" env-default:"3"`
	FrameSampleHz         float64 `env:"FRAME_SAMPLE_HZ" env-default:"3.33"`
	LivenessPassScore     float64 `env:"LIVENESS_PASS_SCORE" env-default:"0.5"`
	PhotoLikelihoodMax    float64 `env:"PHOTO_LIKELIHOOD_MAX" env-default:"0.7"`
	ApproveConfidence     float64 `env:"DECISION_APPROVE_CONFIDENCE" env-default:"0.75"`
	ReviewConfidence      float64 `env:"DECISION_REVIEW_CONFIDENCE" env-default:"0.55"`
	DuplicateSimilarity   float64 `env:"DUPLICATE_SIMILARITY_THRESHOLD" env-default:"0.85"`
	MaxConcurrentSessions int     `env:"MAX_CONCURRENT_SESSIONS" env-default:"4"`
	FFmpegBin             string  `env:"FFMPEG_BIN" env-default:"ffmpeg"`
	PythonBin             string  `env:"PYTHON_BIN" env-default:"python3"`
	AnalyzerScript        string  `env:"FACE_ANALYZER_SCRIPT" env-default:"./scripts/face_analyzer.py"`
	WorkDir               string  `env:"VERIFICATION_WORK_DIR" env-default:"/tmp/humrah-verify"`
}

// SessionExpiry exposes the *_SECONDS knob as a duration.
func (v Verification) SessionExpiry() time.Duration {
	return time.Duration(v.SessionExpirySeconds) * time.Second
}

func (v Verification) RetryWindow() time.Duration {
	return time.Duration(v.RetryWindowSeconds) * time.Second
}

func MustLoad() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config from environment: %s", err)
	}

	return &cfg
}
