// Package auditlog records security-relevant actions: sign-ins, role
// changes, account deletions, group mutations. Events go to the structured
// log always, and to the audit_events collection when persistence is on.
package auditlog

import (
	"context"
	"time"

	"github.com/iliyababin/youthscc/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Event kinds recorded by the application.
const (
	KindSignIn        = "auth.sign_in"
	KindSignOut       = "auth.sign_out"
	KindSignUp        = "auth.sign_up"
	KindPhoneVerified = "auth.phone_verified"
	KindUserCreated   = "user.created"
	KindUserDeleted   = "user.deleted"
	KindRoleChanged   = "user.role_changed"
	KindGroupCreated  = "group.created"
	KindGroupUpdated  = "group.updated"
	KindGroupDeleted  = "group.deleted"
	KindGroupJoined   = "group.joined"
	KindGroupLeft     = "group.left"
)

// Event is one audit record.
type Event struct {
	Kind      string            `bson:"kind"`
	ActorID   string            `bson:"actor_id,omitempty"`
	SubjectID string            `bson:"subject_id,omitempty"`
	Details   map[string]string `bson:"details,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
}

// Logger writes audit events. A nil collection disables persistence; the
// structured log still gets every event.
type Logger struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// New builds an audit logger. Pass a nil collection to log-only mode.
func New(coll *mongo.Collection, logger *zap.Logger) *Logger {
	return &Logger{coll: coll, log: logger}
}

// Record writes one event. Persistence failures are logged but never fail
// the calling operation.
func (l *Logger) Record(ctx context.Context, kind, actorID, subjectID string, details map[string]string) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("actor_id", actorID),
	}
	if subjectID != "" {
		fields = append(fields, zap.String("subject_id", subjectID))
	}
	for k, v := range details {
		fields = append(fields, zap.String(k, v))
	}
	l.log.Info("audit", fields...)

	if l.coll == nil {
		return
	}

	ev := Event{
		Kind:      kind,
		ActorID:   actorID,
		SubjectID: subjectID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()
	if _, err := l.coll.InsertOne(writeCtx, ev); err != nil {
		l.log.Warn("audit event not persisted", zap.String("kind", kind), zap.Error(err))
	}
}
