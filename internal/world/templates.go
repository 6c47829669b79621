package world

import (
	"sync"

	"github.com/mistvale/chunkserver/internal/model"
)

// MobTemplateRegistry holds the immutable mob catalog replicated from
// the game server. Attributes and skills arrive in separate batches and
// merge into already-registered templates.
type MobTemplateRegistry struct {
	mu        sync.RWMutex
	templates map[int64]*model.MobTemplate
}

// NewMobTemplateRegistry creates an empty registry.
func NewMobTemplateRegistry() *MobTemplateRegistry {
	return &MobTemplateRegistry{templates: make(map[int64]*model.MobTemplate, 128)}
}

// Put inserts or updates a template, cloning it in. A re-replicated
// template keeps previously merged attributes and skills unless the new
// record carries its own.
func (r *MobTemplateRegistry) Put(t *model.MobTemplate) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := t.Clone()
	if old, ok := r.templates[t.MobID]; ok {
		if stored.Attributes == nil {
			stored.Attributes = old.Attributes
		}
		if stored.Skills == nil {
			stored.Skills = old.Skills
		}
	}
	r.templates[t.MobID] = stored
}

// ReplaceAll swaps in a full catalog batch.
func (r *MobTemplateRegistry) ReplaceAll(ts []model.MobTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[int64]*model.MobTemplate, len(ts))
	for i := range ts {
		t := ts[i].Clone()
		if old, ok := r.templates[t.MobID]; ok {
			if t.Attributes == nil {
				t.Attributes = old.Attributes
			}
			if t.Skills == nil {
				t.Skills = old.Skills
			}
		}
		next[t.MobID] = t
	}
	r.templates = next
}

// Get returns a deep clone of the template.
func (r *MobTemplateRegistry) Get(mobID int64) (*model.MobTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[mobID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// SetAttributes merges an attribute batch into a registered template.
func (r *MobTemplateRegistry) SetAttributes(mobID int64, attrs model.Attributes) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[mobID]
	if !ok {
		return false
	}
	t.Attributes = attrs.Clone()
	return true
}

// SetSkills merges a skill batch into a registered template.
func (r *MobTemplateRegistry) SetSkills(mobID int64, skills []model.Skill) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[mobID]
	if !ok {
		return false
	}
	m := make(map[string]model.Skill, len(skills))
	for _, s := range skills {
		m[s.Slug] = s
	}
	t.Skills = m
	return true
}

// All returns deep clones of every template.
func (r *MobTemplateRegistry) All() []*model.MobTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.MobTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.Clone())
	}
	return out
}

// Count returns the catalog size.
func (r *MobTemplateRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}
