package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the app. They are loaded
// through WAFFLE's config system: config files, YOUTHSCC_* environment
// variables, and command-line flags, with flags taking precedence.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "youthscc", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "youthscc-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session lifetime (e.g. 720h for 30 days)"},

	{Name: "phone_code_expiry", Default: "10m", Desc: "Phone verification code expiry (e.g. 10m, 1h)"},
	{Name: "challenge_key", Default: "dev-only-challenge-key-0123456789ABCDEF", Desc: "Signing key for the phone challenge cookie"},

	{Name: "sms_gateway_url", Default: "", Desc: "SMS gateway endpoint; blank logs codes instead of sending"},
	{Name: "sms_gateway_token", Default: "", Desc: "SMS gateway bearer token"},
	{Name: "sms_per_second", Default: 1, Desc: "Outbound SMS rate cap per second"},

	{Name: "db_timeout_short", Default: "5s", Desc: "Deadline for single-document reads"},
	{Name: "db_timeout_medium", Default: "10s", Desc: "Deadline for list queries and simple writes"},
	{Name: "db_timeout_long", Default: "30s", Desc: "Deadline for writes touching multiple collections"},

	{Name: "audit_persist", Default: true, Desc: "Persist audit events to MongoDB in addition to the log"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "YOUTHSCC", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 720*time.Hour),

		PhoneCodeExpiry: appValues.Duration("phone_code_expiry", 10*time.Minute),
		ChallengeKey:    appValues.String("challenge_key"),

		SMSGatewayURL:   appValues.String("sms_gateway_url"),
		SMSGatewayToken: appValues.String("sms_gateway_token"),
		SMSPerSecond:    float64(appValues.Int("sms_per_second")),

		DBTimeoutShort:  appValues.Duration("db_timeout_short", 5*time.Second),
		DBTimeoutMedium: appValues.Duration("db_timeout_medium", 10*time.Second),
		DBTimeoutLong:   appValues.Duration("db_timeout_long", 30*time.Second),

		AuditPersist: appValues.Bool("audit_persist"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig enforces invariants that should abort startup, before any
// connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" {
		if len(appCfg.SessionKey) < 32 || appCfg.SessionKey == "dev-only-change-me-please-0123456789ABCDEF" {
			return fmt.Errorf("session_key must be a strong value in production")
		}
		if len(appCfg.ChallengeKey) < 32 || appCfg.ChallengeKey == "dev-only-challenge-key-0123456789ABCDEF" {
			return fmt.Errorf("challenge_key must be a strong value in production")
		}
	}

	if appCfg.SMSGatewayURL != "" && appCfg.SMSGatewayToken == "" {
		return fmt.Errorf("sms_gateway_token is required when sms_gateway_url is set")
	}

	return nil
}
