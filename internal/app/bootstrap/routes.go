// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	authfeature "github.com/iliyababin/youthscc/internal/app/features/auth"
	groupsfeature "github.com/iliyababin/youthscc/internal/app/features/groups"
	healthfeature "github.com/iliyababin/youthscc/internal/app/features/health"
	profilefeature "github.com/iliyababin/youthscc/internal/app/features/profile"
	usersfeature "github.com/iliyababin/youthscc/internal/app/features/users"
	verifyfeature "github.com/iliyababin/youthscc/internal/app/features/verify"
	groupstore "github.com/iliyababin/youthscc/internal/app/store/groups"
	"github.com/iliyababin/youthscc/internal/app/store/phoneverify"
	"github.com/iliyababin/youthscc/internal/app/store/publicprofiles"
	userstore "github.com/iliyababin/youthscc/internal/app/store/users"
	"github.com/iliyababin/youthscc/internal/app/system/auditlog"
	"github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/app/system/metrics"
	"github.com/iliyababin/youthscc/internal/app/system/ratelimit"
	"github.com/iliyababin/youthscc/internal/app/system/sms"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The app serves a JSON API: auth and
// phone verification under /api/auth, bible study groups under /api/groups,
// admin user management under /api/admin/users, and the caller's own
// profile under /api/profile.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on
	// each request. Role changes and disabled accounts take effect
	// immediately instead of at next sign-in.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	users := userstore.New(deps.MongoDatabase)
	profiles := publicprofiles.New(deps.MongoDatabase)
	groups := groupstore.New(deps.MongoDatabase)
	challenges := phoneverify.New(deps.MongoDatabase, appCfg.PhoneCodeExpiry)

	var auditColl = deps.MongoDatabase.Collection("audit_events")
	if !appCfg.AuditPersist {
		auditColl = nil
	}
	audit := auditlog.New(auditColl, logger)

	// Verification codes go out through the configured gateway; without one
	// they are written to the log, which is what dev and test runs want.
	var sender sms.Sender
	if appCfg.SMSGatewayURL != "" {
		sender = sms.NewGatewaySender(appCfg.SMSGatewayURL, appCfg.SMSGatewayToken, appCfg.SMSPerSecond, logger)
	} else {
		sender = &sms.LogSender{Log: logger}
		logger.Warn("no SMS gateway configured, verification codes will be logged")
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", metrics.Handler())

	// Email/password authentication and the current-session endpoint
	authHandler := &authfeature.Handler{
		Users:    users,
		Profiles: profiles,
		Sessions: sessionMgr,
		Limiter:  ratelimit.NewLoginLimiter(),
		Audit:    audit,
		Log:      logger,
	}
	r.Mount("/api/auth", authfeature.Routes(authHandler))

	// Phone OTP sign-in flow
	verifyHandler := verifyfeature.NewHandler(
		challenges, users, profiles, sessionMgr, sender, audit,
		[]byte(appCfg.ChallengeKey), appCfg.PhoneCodeExpiry, secure, logger)
	r.Mount("/api/auth/phone", verifyfeature.Routes(verifyHandler))

	// Bible study groups
	groupsHandler := &groupsfeature.Handler{
		Service: groupsfeature.NewService(groups, profiles, logger),
		Audit:   audit,
		Log:     logger,
	}
	r.Mount("/api/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	// Admin user management
	usersHandler := &usersfeature.Handler{
		Users:    users,
		Profiles: profiles,
		Groups:   groups,
		Audit:    audit,
		Log:      logger,
	}
	r.Mount("/api/admin/users", usersfeature.Routes(usersHandler, sessionMgr))

	// The signed-in user's own profile
	profileHandler := &profilefeature.Handler{
		Users:    users,
		Profiles: profiles,
		Log:      logger,
	}
	r.Mount("/api/profile", profilefeature.Routes(profileHandler, sessionMgr))

	return r, nil
}
