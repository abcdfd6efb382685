package domain

import (
	"time"

	"github.com/google/uuid"
)

type AgentRole string

const (
	RoleAdmin    AgentRole = "admin"
	RoleSenior   AgentRole = "senior"
	RoleEngineer AgentRole = "engineer"
	RoleAgent    AgentRole = "agent"
	RoleGuest    AgentRole = "guest"
)

func ValidAgentRole(r string) bool {
	switch AgentRole(r) {
	case RoleAdmin, RoleSenior, RoleEngineer, RoleAgent, RoleGuest:
		return true
	}
	return false
}

type SourceType string

const (
	SourceTested     SourceType = "tested"
	SourceObserved   SourceType = "observed"
	SourceDocumented SourceType = "documented"
	SourceInferred   SourceType = "inferred"
	SourceHearsay    SourceType = "hearsay"
)

func ValidSourceType(s string) bool {
	switch SourceType(s) {
	case SourceTested, SourceObserved, SourceDocumented, SourceInferred, SourceHearsay:
		return true
	}
	return false
}

// MemoryRecord is a unit of knowledge as the memory store hands it to the engine.
// The engine never mutates it; derived data is keyed by ID.
type MemoryRecord struct {
	ID             uuid.UUID   `json:"id"`
	Content        string      `json:"content"`
	Category       string      `json:"category"`
	CreatorID      string      `json:"creator_id"`
	CreatorRole    AgentRole   `json:"creator_role"`
	SourceType     SourceType  `json:"source_type"`
	Project        string      `json:"project,omitempty"`
	Team           string      `json:"team,omitempty"`
	Systems        []string    `json:"systems,omitempty"`
	References     []uuid.UUID `json:"references,omitempty"`
	Embedding      []float32   `json:"-"`
	LastVerifiedAt *time.Time  `json:"last_verified_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Cites reports whether the record explicitly references any of ids.
func (m *MemoryRecord) Cites(ids map[uuid.UUID]struct{}) bool {
	for _, ref := range m.References {
		if ref == m.ID {
			continue
		}
		if _, ok := ids[ref]; ok {
			return true
		}
	}
	return false
}

type MemoryWithSimilarity struct {
	MemoryRecord
	Similarity float32 `json:"similarity"`
}

type MemoryStatus string

const (
	MemoryStatusActive     MemoryStatus = "active"
	MemoryStatusDisputed   MemoryStatus = "disputed"
	MemoryStatusDeprecated MemoryStatus = "deprecated"
)

// Superseded is true for any status a lost contradiction can leave behind.
func (s MemoryStatus) Superseded() bool {
	return s == MemoryStatusDisputed || s == MemoryStatusDeprecated
}

// MemoryAnnotation is what the engine writes back to the memory store.
type MemoryAnnotation struct {
	MemoryID   uuid.UUID       `json:"memory_id"`
	Status     MemoryStatus    `json:"status"`
	Level      ConfidenceLevel `json:"level,omitempty"`
	FinalScore *float64        `json:"final_score,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PageCursor marks the last record of a page ordered by (created_at, id).
type PageCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}
