package config

import (
	"os"
	"strings"
	"time"

	dErrors "lingkod/pkg/domain-errors"
)

// Server captures process-level configuration. Values come from LINGKOD_*
// environment variables with development defaults, except the field
// encryption secret, which has no default: starting without it would let the
// process write ciphertext nobody can ever read back.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string

	// FieldSecret feeds pkg/fieldcrypt key derivation. Required.
	FieldSecret string

	// PortalBaseURL is the public base for invitation links.
	PortalBaseURL string

	// S3 object storage for applicant documents. Optional; when Bucket is
	// empty the in-memory file store is used.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

// RefLookupTTL bounds how long resolved geographic reference names are cached.
var RefLookupTTL = 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          getenv("LINGKOD_ADDR", ":8080"),
		DatabaseURL:   getenv("LINGKOD_DATABASE_URL", "postgres://localhost:5432/lingkod?sslmode=disable"),
		RedisURL:      os.Getenv("LINGKOD_REDIS_URL"),
		AuditTopic:    getenv("LINGKOD_AUDIT_TOPIC", "lingkod.audit"),
		JWTSigningKey: getenv("LINGKOD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		FieldSecret:   os.Getenv("LINGKOD_FIELD_SECRET"),
		PortalBaseURL: getenv("LINGKOD_PORTAL_BASE_URL", "http://localhost:8080"),
		S3Endpoint:    os.Getenv("LINGKOD_S3_ENDPOINT"),
		S3Region:      getenv("LINGKOD_S3_REGION", "ap-southeast-1"),
		S3Bucket:      os.Getenv("LINGKOD_S3_BUCKET"),
		S3AccessKey:   os.Getenv("LINGKOD_S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("LINGKOD_S3_SECRET_KEY"),
	}

	if brokers := os.Getenv("LINGKOD_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if strings.TrimSpace(cfg.FieldSecret) == "" {
		return Server{}, dErrors.New(dErrors.CodeInternal, "LINGKOD_FIELD_SECRET must be set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
