// Package featureflags evaluates runtime switches configured through
// FEATURE_FLAGS, e.g. "permissive_approval=off,post_auto_approve=25%".
package featureflags

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Flags understood by the application.
const (
	// PermissiveApproval lets staff approve any non-terminal booking
	// instead of only pending ones.
	PermissiveApproval = "permissive_approval"
	// PostAutoApprove publishes new posts without moderation.
	PostAutoApprove = "post_auto_approve"
	// SessionReminders schedules a reminder email before approved sessions.
	SessionReminders = "session_reminders"
)

// ErrInvalidValue is returned by Set for values Enabled cannot evaluate.
var ErrInvalidValue = errors.New("invalid feature flag value")

// Manager holds flag values. Values may be changed at runtime by staff.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]string
}

// Flag is one configured flag with its raw value.
type Flag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewManager parses a comma-separated key=value list. Malformed pairs are
// skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || !validValue(value) {
			continue
		}
		out[key] = value
	}
	return &Manager{flags: out}
}

// Enabled reports whether name is on for userID. Accepted values are
// on/true/1, off/false/0 and N% for a deterministic per-user rollout.
// Unknown flags are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	value, ok := m.flags[normalize(name)]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, ok := percentage(value)
	switch {
	case !ok || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Set changes a flag value at runtime.
func (m *Manager) Set(name, value string) error {
	name, value = normalize(name), normalize(value)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidValue)
	}
	if !validValue(value) {
		return fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}
	m.mu.Lock()
	m.flags[name] = value
	m.mu.Unlock()
	return nil
}

// List returns the configured flags sorted by name.
func (m *Manager) List() []Flag {
	m.mu.RLock()
	out := make([]Flag, 0, len(m.flags))
	for k, v := range m.flags {
		out = append(out, Flag{Name: k, Value: v})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	flags := m.List()
	out := make(map[string]bool, len(flags))
	for _, f := range flags {
		out[f.Name] = m.Enabled(f.Name, userID)
	}
	return out
}

func validValue(value string) bool {
	switch value {
	case "on", "true", "1", "off", "false", "0":
		return true
	}
	pct, ok := percentage(value)
	return ok && pct >= 0 && pct <= 100
}

func percentage(value string) (int, bool) {
	raw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, false
	}
	pct, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return pct, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
