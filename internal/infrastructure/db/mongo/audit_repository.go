package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

const (
	auditCollection = "auth_audit"
	writeTimeout    = 5 * time.Second
)

// AuditRepository writes the auth audit trail to MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	Action      string    `bson:"action"`
	Username    string    `bson:"username"`
	Operation   string    `bson:"operation,omitempty"`
	Path        string    `bson:"path,omitempty"`
	Permissions []string  `bson:"permissions,omitempty"`
	Reason      string    `bson:"reason,omitempty"`
	RequestID   string    `bson:"request_id,omitempty"`
	At          time.Time `bson:"at"`
}

func toAuditDoc(e domain.AuditEvent) auditDoc {
	perms := make([]string, 0, len(e.Permissions))
	for _, p := range e.Permissions {
		perms = append(perms, string(p))
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return auditDoc{
		Action:      string(e.Action),
		Username:    e.Username,
		Operation:   e.Operation,
		Path:        e.Path,
		Permissions: perms,
		Reason:      e.Reason,
		RequestID:   e.RequestID,
		At:          at.UTC(),
	}
}

func (d auditDoc) event() domain.AuditEvent {
	perms := make([]domain.Code, 0, len(d.Permissions))
	for _, p := range d.Permissions {
		perms = append(perms, domain.Code(p))
	}
	return domain.AuditEvent{
		Action:      domain.AuditAction(d.Action),
		Username:    d.Username,
		Operation:   d.Operation,
		Path:        d.Path,
		Permissions: perms,
		Reason:      d.Reason,
		RequestID:   d.RequestID,
		At:          d.At,
	}
}

func (r *AuditRepository) Record(ctx context.Context, e domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toAuditDoc(e)); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. An empty username
// returns events for everyone.
func (r *AuditRepository) Recent(ctx context.Context, username string, limit int64) ([]domain.AuditEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	filter := bson.M{}
	if username != "" {
		filter["username"] = username
	}
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}

	events := make([]domain.AuditEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.event())
	}
	return events, nil
}

// EnsureIndexes creates the lookup index and, when retention is positive,
// a TTL index that expires old entries.
func (r *AuditRepository) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "at", Value: -1}}},
	}
	if retention > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		})
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
