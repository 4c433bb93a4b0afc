// Package sessions implements the Session Snapshot & Manager: a
// capacity-bounded pool of live pty.Session values with priority-based
// hibernation to disk and transparent restore on access. Grounded
// directly on _examples/original_source/backend/src/terminal/manager.rs
// (ensure_capacity/find_lowest_priority_session/hibernate/restore/
// cleanup_stale_sessions control flow, ported from tokio::RwLock maps to
// a single sync.RWMutex-guarded pair of maps).
package sessions

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	coreerrors "skhoot/internal/core/errors"
	"skhoot/internal/core/logging"
	"skhoot/internal/pty"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	envMaxSessions       = "TERMINAL_MAX_SESSIONS"
	envTimeoutMins       = "TERMINAL_TIMEOUT_MINS"
	envHibernateAfterMin = "TERMINAL_HIBERNATE_AFTER_MINS"
	envStoragePath       = "TERMINAL_STORAGE_PATH"

	defaultMaxSessions      = 10
	defaultTimeoutMins      = 60
	defaultHibernateAfter   = 5
	priorityRecencyWeight   = 0.7
	priorityUsageWeight     = 0.3
	priorityHalflifeSeconds = 300.0
)

// CommandRecord is one entry of a snapshot's command history.
type CommandRecord struct {
	Command   string
	Output    []string
	Timestamp time.Time
}

// Snapshot captures everything needed to recreate a hibernated PTY
// Session plus the inputs priority_score needs.
type Snapshot struct {
	SessionID    string
	Shell        string
	WorkingDir   string
	Cols         int
	Rows         int
	Env          map[string]string
	Owner        string
	CreatedAt    time.Time
	LastActivity time.Time
	Commands     []CommandRecord
}

const maxCommandHistory = 200

// AddCommand records a command, bounding history length.
func (s *Snapshot) AddCommand(cmd string, output []string) {
	s.Commands = append(s.Commands, CommandRecord{Command: cmd, Output: output, Timestamp: time.Now()})
	if len(s.Commands) > maxCommandHistory {
		s.Commands = s.Commands[len(s.Commands)-maxCommandHistory:]
	}
	s.LastActivity = time.Now()
}

// FormatHistory renders the command+output history for a hibernated read.
func (s *Snapshot) FormatHistory() string {
	var b []byte
	for _, c := range s.Commands {
		b = append(b, []byte("$ "+c.Command+"\n")...)
		for _, o := range c.Output {
			b = append(b, []byte(o+"\n")...)
		}
	}
	return string(b)
}

// PriorityScore combines recency (exponential idle decay) and usage
// (log-scaled command count); higher is more valuable to keep live. This
// is the chosen resolution of the original's opaque scoring function,
// constrained only by "more recent and more used scores higher."
func (s *Snapshot) PriorityScore(now time.Time) float64 {
	idleSeconds := now.Sub(s.LastActivity).Seconds()
	if idleSeconds < 0 {
		idleSeconds = 0
	}
	recency := math.Exp(-idleSeconds / priorityHalflifeSeconds)
	usage := math.Log1p(float64(len(s.Commands)))
	return priorityRecencyWeight*recency + priorityUsageWeight*usage
}

func (s *Snapshot) shouldHibernate(now time.Time, hibernateAfterMins int) bool {
	return now.Sub(s.LastActivity) >= time.Duration(hibernateAfterMins)*time.Minute
}

// Config configures a new session's underlying PTY.
type Config struct {
	Shell string
	Cols  int
	Rows  int
	Env   map[string]string
}

// Info is the caller-facing summary returned by List.
type Info struct {
	SessionID    string
	Shell        string
	Cols         int
	Rows         int
	CreatedAt    time.Time
	LastActivity time.Time
	Hibernated   bool
}

// Stats is the response shape of get_stats().
type Stats struct {
	Total      int
	Active     int
	Stale      int
	MaxAllowed int
	Available  int
}

// Manager owns two maps (active PTY sessions, snapshots) exactly as the
// original does, trading its tokio::RwLock pair for a single
// sync.RWMutex guarding both — the manager restores at most once per id
// by checking active-presence inside the same write critical section.
type Manager struct {
	mu                 sync.RWMutex
	active             map[string]*pty.Session
	snapshots          map[string]*Snapshot
	maxSessions        int
	sessionTimeoutMins int
	hibernateAfterMins int
	storagePath        string
}

// New builds a Manager reading defaults from the documented environment
// variables, matching TerminalManager::default in the original.
func New() *Manager {
	return NewWithConfig(
		envInt(envMaxSessions, defaultMaxSessions),
		envInt(envTimeoutMins, defaultTimeoutMins),
		envInt(envHibernateAfterMin, defaultHibernateAfter),
		envStorage(),
	)
}

// NewWithConfig builds a Manager with explicit limits, for tests.
func NewWithConfig(maxSessions, sessionTimeoutMins, hibernateAfterMins int, storagePath string) *Manager {
	return &Manager{
		active:             make(map[string]*pty.Session),
		snapshots:          make(map[string]*Snapshot),
		maxSessions:        maxSessions,
		sessionTimeoutMins: sessionTimeoutMins,
		hibernateAfterMins: hibernateAfterMins,
		storagePath:        storagePath,
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envStorage() string {
	if v := os.Getenv(envStoragePath); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".skhoot", "sessions")
}

func (m *Manager) hibernatedDir() string { return filepath.Join(m.storagePath, "hibernated") }
func (m *Manager) archivedDir() string   { return filepath.Join(m.storagePath, "archived") }

// Create runs stale cleanup, ensures capacity (hibernating the
// lowest-priority active session if at the limit), then instantiates a
// new live PTY session.
func (m *Manager) Create(cfg Config) (string, error) {
	m.CleanupStale()

	if err := m.ensureCapacity(); err != nil {
		return "", err
	}

	if cfg.Shell == "" {
		cfg = defaultSessionConfig(cfg)
	}

	session, err := pty.New(pty.Config{Shell: cfg.Shell, Cols: cfg.Cols, Rows: cfg.Rows, Env: flattenEnv(cfg.Env)})
	if err != nil {
		return "", err
	}

	wd, _ := os.Getwd()
	snap := &Snapshot{
		SessionID:    session.ID,
		Shell:        cfg.Shell,
		WorkingDir:   wd,
		Cols:         cfg.Cols,
		Rows:         cfg.Rows,
		Env:          cfg.Env,
		Owner:        "user",
		CreatedAt:    session.CreatedAt(),
		LastActivity: session.CreatedAt(),
	}

	m.mu.Lock()
	m.active[session.ID] = session
	m.snapshots[session.ID] = snap
	m.mu.Unlock()

	return session.ID, nil
}

func defaultSessionConfig(cfg Config) Config {
	d := pty.DefaultConfig()
	if cfg.Cols <= 0 {
		cfg.Cols = d.Cols
	}
	if cfg.Rows <= 0 {
		cfg.Rows = d.Rows
	}
	cfg.Shell = d.Shell
	return cfg
}

func flattenEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func (m *Manager) ensureCapacity() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.active) < m.maxSessions {
		return nil
	}
	id, ok := m.findLowestPriorityLocked()
	if !ok {
		return coreerrors.ResourceLimitExceeded("terminal sessions")
	}
	return m.hibernateLocked(id)
}

func (m *Manager) findLowestPriorityLocked() (string, bool) {
	now := time.Now()
	lowestScore := math.MaxFloat64
	var lowestID string
	found := false
	for id := range m.active {
		snap, ok := m.snapshots[id]
		if !ok {
			continue
		}
		score := snap.PriorityScore(now)
		if score < lowestScore {
			lowestScore = score
			lowestID = id
			found = true
		}
	}
	return lowestID, found
}

// hibernateLocked writes the snapshot to disk and drops the live PTY.
// Caller must hold m.mu.
func (m *Manager) hibernateLocked(id string) error {
	snap, ok := m.snapshots[id]
	if !ok {
		return coreerrors.SessionNotFound(id)
	}
	if err := saveSnapshot(snap, m.hibernatedDir()); err != nil {
		return coreerrors.Io("hibernate snapshot save", err)
	}
	if s, ok := m.active[id]; ok {
		_ = s.Kill()
	}
	delete(m.active, id)
	return nil
}

// Hibernate is the exported, independently-lockable form of
// hibernateLocked for callers outside Create's capacity path.
func (m *Manager) Hibernate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hibernateLocked(id)
}

func (m *Manager) isHibernatedLocked(id string) bool {
	if _, ok := m.active[id]; ok {
		return false
	}
	_, ok := m.snapshots[id]
	return ok
}

// Restore loads a hibernated snapshot's PTY back to life. A failed
// restore surfaces SessionNotFound.
func (m *Manager) Restore(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[id]; ok {
		return nil // already active
	}

	snap, ok := m.snapshots[id]
	if !ok {
		return coreerrors.SessionNotFound(id)
	}

	if len(m.active) >= m.maxSessions {
		evictID, found := m.findLowestPriorityLocked()
		if found {
			_ = m.hibernateLocked(evictID)
		}
	}

	loaded, err := loadSnapshot(id, m.hibernatedDir())
	if err != nil {
		return coreerrors.SessionNotFound(id)
	}

	session, err := pty.New(pty.Config{Shell: loaded.Shell, Cols: loaded.Cols, Rows: loaded.Rows, Env: flattenEnv(loaded.Env)})
	if err != nil {
		return coreerrors.Io("restore pty start", err)
	}

	m.active[id] = session
	m.snapshots[id] = loaded
	_ = deleteSnapshot(id, m.hibernatedDir())
	return nil
}

// Write writes to a session, transparently restoring it first if
// hibernated, and records the command in its snapshot.
func (m *Manager) Write(id, data string) error {
	m.mu.RLock()
	hibernated := m.isHibernatedLocked(id)
	m.mu.RUnlock()

	if hibernated {
		if err := m.Restore(id); err != nil {
			return err
		}
	}

	m.mu.Lock()
	session, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return coreerrors.SessionNotFound(id)
	}
	if snap, ok := m.snapshots[id]; ok && len(data) > 0 && data[len(data)-1] == '\n' {
		snap.AddCommand(trimNewline(data), nil)
	}
	m.mu.Unlock()

	return session.Write(data)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Read reads from a session. A hibernated read returns the formatted
// command+output history instead of live output, without restoring.
func (m *Manager) Read(id string) ([]pty.OutputLine, error) {
	m.mu.RLock()
	if m.isHibernatedLocked(id) {
		snap := m.snapshots[id]
		m.mu.RUnlock()
		return []pty.OutputLine{{Timestamp: time.Now(), Stream: pty.StreamStdout, Content: snap.FormatHistory()}}, nil
	}
	session, ok := m.active[id]
	m.mu.RUnlock()
	if !ok {
		return nil, coreerrors.SessionNotFound(id)
	}

	out, err := session.Read()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if snap, ok := m.snapshots[id]; ok {
		snap.LastActivity = time.Now()
	}
	m.mu.Unlock()

	return out, nil
}

// Close removes an active session but leaves its snapshot untouched (the
// original's close_session never removes the snapshot map entry).
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.active[id]
	if !ok {
		return coreerrors.SessionNotFound(id)
	}
	_ = session.Kill()
	delete(m.active, id)
	return nil
}

// Resize resizes an active session's PTY.
func (m *Manager) Resize(id string, cols, rows int) error {
	m.mu.RLock()
	session, ok := m.active[id]
	m.mu.RUnlock()
	if !ok {
		return coreerrors.SessionNotFound(id)
	}
	return session.Resize(cols, rows)
}

// List returns info for every active session.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.active))
	for id, s := range m.active {
		out = append(out, Info{
			SessionID:    id,
			Shell:        s.Config.Shell,
			Cols:         s.Config.Cols,
			Rows:         s.Config.Rows,
			CreatedAt:    s.CreatedAt(),
			LastActivity: s.LastActivity(),
			Hibernated:   false,
		})
	}
	return out
}

// CleanupStale hibernates active sessions idle past hibernate_after_mins
// and archives hibernated sessions idle past session_timeout_mins.
func (m *Manager) CleanupStale() {
	now := time.Now()

	m.mu.Lock()
	var toHibernate []string
	for id, snap := range m.snapshots {
		if _, active := m.active[id]; active && snap.shouldHibernate(now, m.hibernateAfterMins) {
			toHibernate = append(toHibernate, id)
		}
	}
	m.mu.Unlock()

	for _, id := range toHibernate {
		if err := m.Hibernate(id); err != nil {
			logCleanupWarning(id, err)
		}
	}

	cutoff := now.Add(-time.Duration(m.sessionTimeoutMins) * time.Minute)
	m.mu.Lock()
	var stale []string
	for id, snap := range m.snapshots {
		if _, active := m.active[id]; !active && snap.LastActivity.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		snap := m.snapshots[id]
		if err := saveSnapshot(snap, m.archivedDir()); err != nil {
			logCleanupWarning(id, err)
		}
		_ = deleteSnapshot(id, m.hibernatedDir())
		delete(m.snapshots, id)
	}
	m.mu.Unlock()
}

var cleanupLog = logging.New("sessions")

func logCleanupWarning(id string, err error) {
	cleanupLog.Warn().Str("session_id", id).Err(err).Msg("cleanup step failed")
}

// Stats reports pool occupancy.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	cutoff := now.Add(-time.Duration(m.sessionTimeoutMins) * time.Minute)
	activeCount := 0
	for _, s := range m.active {
		if s.LastActivity().After(cutoff) || s.LastActivity().Equal(cutoff) {
			activeCount++
		}
	}
	total := len(m.active)
	return Stats{
		Total:      total,
		Active:     activeCount,
		Stale:      total - activeCount,
		MaxAllowed: m.maxSessions,
		Available:  maxInt(m.maxSessions-total, 0),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func snapshotPath(dir, id string) string { return filepath.Join(dir, id+".json") }

func saveSnapshot(s *Snapshot, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := fastJSON.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(snapshotPath(dir, s.SessionID), data, 0o644)
}

func loadSnapshot(id, dir string) (*Snapshot, error) {
	data, err := os.ReadFile(snapshotPath(dir, id))
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := fastJSON.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func deleteSnapshot(id, dir string) error {
	err := os.Remove(snapshotPath(dir, id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
