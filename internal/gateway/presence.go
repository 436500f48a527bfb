package gateway

import "sync"

// PresenceEntry describes one known peer (spec.md §3 "Presence Entry").
type PresenceEntry struct {
	Host         string            `json:"host"`
	IP           string            `json:"ip"`
	Version      string            `json:"version"`
	Platform     string            `json:"platform"`
	Mode         string            `json:"mode"`
	LastInputAge int64             `json:"last_input_age_ms"`
	Timestamp    int64             `json:"timestamp"`
	Reason       string            `json:"reason,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	InstanceID   string            `json:"instance_id"`
}

// PresenceTable holds known peers in memory behind a single read-write
// lock, with a monotonic version bumped on every mutation (spec.md §5
// "Shared mutable state").
type PresenceTable struct {
	mu      sync.RWMutex
	entries map[string]PresenceEntry
	version int64
}

// NewPresenceTable builds an empty presence table.
func NewPresenceTable() *PresenceTable {
	return &PresenceTable{entries: make(map[string]PresenceEntry)}
}

// Upsert records or replaces entry under instanceID, bumping the version.
func (p *PresenceTable) Upsert(entry PresenceEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[entry.InstanceID] = entry
	p.version++
}

// Remove drops instanceID from the table, bumping the version.
func (p *PresenceTable) Remove(instanceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[instanceID]; ok {
		delete(p.entries, instanceID)
		p.version++
	}
}

// Snapshot returns every known entry.
func (p *PresenceTable) Snapshot() []PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PresenceEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

// Version returns the current monotonic state-version counter.
func (p *PresenceTable) Version() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}
