// Package notification provides the persistent notification store backing
// the /api/v1/notifications surface.
//
// Notifications are short-lived operator-facing records ("low battery on
// sensor.2") with a TTL. They live in SQLite so they survive restarts;
// an expiry sweep purges them once their TTL elapses. Publishing and
// deleting emit bus events like every other observable mutation in the
// hub.
package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noriffik/wirehome-core/internal/bus"
)

// Bus event types published by the store.
const (
	EventPublished = "notification_registry.event.notification_published"
	EventDeleted   = "notification_registry.event.notification_deleted"
)

// Notification types, ordered by severity.
const (
	TypeInformation = "information"
	TypeWarning     = "warning"
	TypeError       = "error"
)

var (
	// ErrNotificationNotFound is returned when a notification uid does not exist.
	ErrNotificationNotFound = errors.New("notification: not found")

	// ErrInvalidMessage is returned when a notification message is empty.
	ErrInvalidMessage = errors.New("notification: invalid message")
)

// Notification is a single operator-facing record.
type Notification struct {
	UID       string    `json:"uid"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Publisher is the bus-facing side of the store.
type Publisher interface {
	Publish(msg bus.Message)
}

// Logger defines the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store persists notifications in SQLite and mirrors mutations onto the bus.
//
// Thread Safety: all methods are safe for concurrent use; SQLite
// serialises writers.
type Store struct {
	db         *sql.DB
	publisher  Publisher
	logger     Logger
	defaultTTL time.Duration
	sweepEvery time.Duration
}

// Options configures a Store.
type Options struct {
	// DefaultTTL applies when Publish is called with a zero TTL.
	DefaultTTL time.Duration

	// SweepInterval is how often the expiry sweep runs.
	SweepInterval time.Duration
}

// NewStore creates a notification store over an opened database.
func NewStore(db *sql.DB, publisher Publisher, opts Options) *Store {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 24 * time.Hour
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	return &Store{
		db:         db,
		publisher:  publisher,
		logger:     noopLogger{},
		defaultTTL: opts.DefaultTTL,
		sweepEvery: opts.SweepInterval,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Publish inserts a notification and emits notification_published.
// A zero ttl falls back to the configured default.
func (s *Store) Publish(ctx context.Context, notificationType, message string, ttl time.Duration) (*Notification, error) {
	if message == "" {
		return nil, ErrInvalidMessage
	}
	if notificationType == "" {
		notificationType = TypeInformation
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := time.Now().UTC()
	n := &Notification{
		UID:       uuid.NewString(),
		Type:      notificationType,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (uid, type, message, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.UID, n.Type, n.Message, n.CreatedAt, n.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting notification: %w", err)
	}

	s.publisher.Publish(bus.Message{
		bus.KeyType:        EventPublished,
		"notification_uid": n.UID,
		"notification_type": n.Type,
		"message":          n.Message,
	})

	s.logger.Debug("notification published", "uid", n.UID, "type", n.Type)
	return n, nil
}

// List returns all unexpired notifications, newest first.
func (s *Store) List(ctx context.Context) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid, type, message, created_at, expires_at
		 FROM notifications
		 WHERE expires_at > ?
		 ORDER BY created_at DESC`,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.UID, &n.Type, &n.Message, &n.CreatedAt, &n.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return notifications, nil
}

// Delete removes a notification and emits notification_deleted.
// Returns ErrNotificationNotFound for unknown uids.
func (s *Store) Delete(ctx context.Context, uid string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE uid = ?", uid)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, uid)
	}

	s.publisher.Publish(bus.Message{
		bus.KeyType:        EventDeleted,
		"notification_uid": uid,
	})
	return nil
}

// Run hosts the expiry sweep loop. It blocks until ctx is cancelled;
// sweep failures are logged and the loop continues.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("notification sweep failed", "error", err)
			}
		}
	}
}

// Sweep removes expired notifications. Returns the first error
// encountered; removal is best-effort.
func (s *Store) Sweep(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sweeping notifications: %w", err)
	}
	if purged, err := result.RowsAffected(); err == nil && purged > 0 {
		s.logger.Info("expired notifications purged", "count", purged)
	}
	return nil
}
