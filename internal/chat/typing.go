package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/mycampus-app/quickchat/internal/models"
)

// TypingNotifier is the outbound side of typing presence, implemented by the
// room channel conn.
type TypingNotifier interface {
	SendTyping(user models.Participant, started bool) error
}

// TypingTracker keeps the per-room set of peers currently typing and
// debounces the local user's own stop announcement. Typing presence is
// best-effort: with no channel bound it degrades to silence, and notifier
// errors are swallowed.
type TypingTracker struct {
	mu       sync.Mutex
	self     models.Participant
	quiet    time.Duration
	slack    time.Duration
	notifier TypingNotifier
	remote   map[string]remoteTyping
	stop     *time.Timer
	now      func() time.Time
}

type remoteTyping struct {
	name string
	last time.Time
}

func NewTypingTracker(self models.Participant, quiet, slack time.Duration) *TypingTracker {
	return &TypingTracker{
		self:   self,
		quiet:  quiet,
		slack:  slack,
		remote: make(map[string]remoteTyping),
		now:    time.Now,
	}
}

// Bind attaches the tracker to the active room's channel, resetting state.
func (t *TypingTracker) Bind(n TypingNotifier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.notifier = n
}

// Reset detaches the channel and forgets remote presence; called on room
// switch and teardown.
func (t *TypingTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.notifier = nil
}

func (t *TypingTracker) resetLocked() {
	if t.stop != nil {
		t.stop.Stop()
		t.stop = nil
	}
	t.remote = make(map[string]remoteTyping)
}

// MarkTyping announces local typing and (re)arms the stop broadcast for the
// end of the quiet period. Exactly one stop goes out per silence period.
func (t *TypingTracker) MarkTyping() {
	t.mu.Lock()
	n := t.notifier
	if n == nil {
		t.mu.Unlock()
		return
	}
	if t.stop == nil {
		t.stop = time.AfterFunc(t.quiet, t.broadcastStop)
	} else {
		t.stop.Reset(t.quiet)
	}
	t.mu.Unlock()

	// Outside the lock: the channel write can block on the socket.
	_ = n.SendTyping(t.self, true)
}

func (t *TypingTracker) broadcastStop() {
	t.mu.Lock()
	n := t.notifier
	t.stop = nil
	t.mu.Unlock()
	if n != nil {
		_ = n.SendTyping(t.self, false)
	}
}

// RemoteStart records a peer's typing announcement. Own echoes are ignored.
func (t *TypingTracker) RemoteStart(p models.Participant) {
	if p.ID == t.self.ID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remote[remoteKey(p)] = remoteTyping{name: displayName(p), last: t.now()}
}

// RemoteStop clears a peer's typing state.
func (t *TypingTracker) RemoteStop(p models.Participant) {
	if p.ID == t.self.ID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.remote, remoteKey(p))
}

// CurrentlyTyping sweeps entries that outlived quiet period plus latency
// slack and returns the display names of peers still typing, sorted for
// stable rendering. Self is never included.
func (t *TypingTracker) CurrentlyTyping() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-(t.quiet + t.slack))
	names := make([]string, 0, len(t.remote))
	for key, entry := range t.remote {
		if entry.last.Before(cutoff) {
			delete(t.remote, key)
			continue
		}
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

func remoteKey(p models.Participant) string {
	if p.ID != "" {
		return p.ID
	}
	return p.Name
}

func displayName(p models.Participant) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
