// Package journal is an optional append-only record of the events the
// add-on actually notified about, for post-hoc debugging. Disabled by
// default.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"ohhey/pkg/logx"
)

var ErrDisabled = errors.New("journal disabled")

// Config selects the journal backend.
//
// Driver values:
//   - "file": dependency-free JSON Lines file
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Kind labels what triggered the journaled notification.
type Kind string

const (
	KindEmote  Kind = "emote"
	KindTarget Kind = "target"
)

// Entry is one notified event. Keep it compact and schema-stable.
type Entry struct {
	At              time.Time
	Kind            Kind
	EmoteID         uint16
	EmoteName       string
	InitiatorID     uint64
	InitiatorName   string
	WorldID         uint32
	InitiatorIsSelf bool
	Suppressed      bool
}

// Store is the persistence API the services write through.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if the journal is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown journal driver: " + driver)
	}
}
