package journal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ohhey/pkg/logx"
)

// fileStore appends one JSON object per line. Writes are small and the
// file handle stays open for the session.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	file *os.File
}

type fileRecord struct {
	At              string `json:"at"`
	Kind            string `json:"kind"`
	EmoteID         uint16 `json:"emote_id,omitempty"`
	EmoteName       string `json:"emote_name,omitempty"`
	InitiatorID     uint64 `json:"initiator_id"`
	InitiatorName   string `json:"initiator_name"`
	WorldID         uint32 `json:"world_id"`
	InitiatorIsSelf bool   `json:"initiator_is_self,omitempty"`
	Suppressed      bool   `json:"suppressed,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("journal.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, file: f}, nil
}

func (s *fileStore) Append(_ context.Context, e Entry) error {
	if s == nil || s.file == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b, err := json.Marshal(fileRecord{
		At:              e.At.Format(time.RFC3339Nano),
		Kind:            string(e.Kind),
		EmoteID:         e.EmoteID,
		EmoteName:       e.EmoteName,
		InitiatorID:     e.InitiatorID,
		InitiatorName:   e.InitiatorName,
		WorldID:         e.WorldID,
		InitiatorIsSelf: e.InitiatorIsSelf,
		Suppressed:      e.Suppressed,
	})
	if err != nil {
		return err
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(b)
	return err
}

func (s *fileStore) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.file.Close()
	s.file = nil
	return err
}
