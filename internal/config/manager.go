package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	yaml "go.yaml.in/yaml/v3"

	"ohhey/pkg/logx"
)

// Manager loads, persists, and watches the settings document. Updates
// are validated before commit and then published to subscribers.
type Manager struct {
	store Store

	mu  sync.RWMutex
	doc *Document

	// subsMu guards the subscriber list and ensures we never send on a
	// channel that is concurrently being closed in Unsubscribe().
	subsMu sync.Mutex
	subs   []chan *Document

	log       logx.Logger
	validator func(doc *Document) error

	// lastHash tracks the last committed content so editor-induced
	// duplicate write events do not republish an unchanged document.
	lastHash uint64
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, validator: (*Document).Validate}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// SetValidator replaces the validation hook run before commit/publish.
func (m *Manager) SetValidator(fn func(doc *Document) error) { m.validator = fn }

// Parse reads and decodes the stored document, migrating older schema
// versions in place.
func (m *Manager) Parse() (*Document, error) {
	b, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	jb, _, err := coerceToJSONBytes(m.store.Name(), b)
	if err != nil {
		return nil, err
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	if doc.Version < CurrentVersion {
		from := doc.Version
		doc.Migrate()
		if !m.log.IsZero() {
			m.log.Info("migrated config document",
				logx.Int("from_version", from),
				logx.Int("to_version", doc.Version))
		}
	}
	return &doc, nil
}

// Load parses the store, falling back to defaults (persisted back) when
// nothing is stored yet, and commits the result.
func (m *Manager) Load() (*Document, error) {
	doc, err := m.Parse()
	if err != nil {
		doc = Default()
		if !m.log.IsZero() {
			m.log.Info("no usable config found; writing defaults",
				logx.String("store", m.store.Name()), logx.Any("err", err))
		}
		if serr := m.write(doc); serr != nil {
			return nil, serr
		}
	}
	if m.validator != nil {
		if err := m.validator(doc); err != nil {
			return nil, err
		}
	}
	m.Commit(doc)
	return doc, nil
}

// Save validates, persists, commits, and publishes doc.
func (m *Manager) Save(doc *Document) error {
	if m.validator != nil {
		if err := m.validator(doc); err != nil {
			return err
		}
	}
	if err := m.write(doc); err != nil {
		return err
	}
	m.Commit(doc)
	m.publish(doc)
	return nil
}

func (m *Manager) write(doc *Document) error {
	jb, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	var data []byte
	if isYAMLName(m.store.Name()) {
		// Round-trip through a generic value so the YAML keys match the
		// JSON tags the strict decoder expects.
		var v any
		if err := json.Unmarshal(jb, &v); err != nil {
			return err
		}
		data, err = yaml.Marshal(v)
		if err != nil {
			return err
		}
	} else {
		var buf bytes.Buffer
		if err := json.Indent(&buf, jb, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	return m.store.Save(data)
}

func (m *Manager) Commit(doc *Document) {
	m.mu.Lock()
	m.doc = doc
	m.lastHash = hashDocument(doc)
	m.mu.Unlock()
}

func (m *Manager) Get() *Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc
}

func (m *Manager) Subscribe(buffer int) chan *Document {
	ch := make(chan *Document, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Document) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			// swap-remove (order doesn't matter)
			last := len(m.subs) - 1
			m.subs[i] = m.subs[last]
			m.subs[last] = nil
			m.subs = m.subs[:last]
			close(ch)
			return
		}
	}
}

func (m *Manager) publish(doc *Document) {
	// Hold subsMu while sending to avoid send-on-closed panics.
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		if ch == nil {
			continue
		}
		// If a subscriber is slow and its buffer full, drop one stale
		// update and push the newest.
		select {
		case ch <- doc:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- doc:
			default:
				if !m.log.IsZero() {
					m.log.Debug("config update dropped (subscriber slow)",
						logx.Int("queue_len", len(ch)), logx.Int("queue_cap", cap(ch)))
				}
			}
		}
	}
}

func hashDocument(doc *Document) uint64 {
	if doc == nil {
		return 0
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Watch reloads and republishes the document when the backing file
// changes. Only file-backed stores are watchable; for anything else
// Watch returns immediately. The watcher self-heals with a jittered
// backoff when the platform notifier breaks.
func (m *Manager) Watch(ctx context.Context) error {
	pather, ok := m.store.(interface{ Path() string })
	if !ok {
		return nil
	}
	path := pather.Path()
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// debounce to avoid reading partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			doc, err := m.Parse()
			if err != nil || doc == nil {
				if !m.log.IsZero() {
					m.log.Warn("config reload parse failed",
						logx.String("path", path), logx.Any("err", err))
				}
				return
			}

			h := hashDocument(doc)
			m.mu.RLock()
			unchanged := h != 0 && h == m.lastHash
			m.mu.RUnlock()
			if unchanged {
				return
			}

			if m.validator != nil {
				if err := m.validator(doc); err != nil {
					if !m.log.IsZero() {
						m.log.Warn("config rejected", logx.String("path", path), logx.Any("err", err))
					}
					return
				}
			}

			m.Commit(doc)
			m.publish(doc)
			if !m.log.IsZero() {
				m.log.Debug("config published", logx.String("path", path))
			}
		})
	}

	wait := func() time.Duration {
		w := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return w
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(dir)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			if !m.log.IsZero() {
				m.log.Warn("config watch init failed", logx.Any("err", err), logx.String("dir", dir))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait()):
				continue
			}
		}

		backoff = restartBackoffBase

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename; editors rename/replace on save.
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					debounce()
				}
			case werr, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if werr == nil {
					continue
				}
				// Overflow means missed events; force one reload.
				if strings.Contains(strings.ToLower(werr.Error()), "overflow") {
					debounce()
					continue
				}
				if !m.log.IsZero() {
					m.log.Warn("config watch error", logx.Any("err", werr), logx.String("dir", dir))
				}
				if strings.Contains(strings.ToLower(werr.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = w.Close()
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait()):
		}
	}
}
