package bootstrap

import "time"

// AppConfig holds the application-specific configuration, populated by
// LoadConfig from files, environment variables (YOUTHSCC_*), and flags.
type AppConfig struct {
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration

	// Phone verification
	PhoneCodeExpiry time.Duration
	ChallengeKey    string

	// SMS delivery; blank gateway URL selects the dev log sender.
	SMSGatewayURL   string
	SMSGatewayToken string
	SMSPerSecond    float64

	// Database operation deadlines; zero keeps the package defaults.
	DBTimeoutShort  time.Duration
	DBTimeoutMedium time.Duration
	DBTimeoutLong   time.Duration

	// Audit event persistence toggle.
	AuditPersist bool
}
