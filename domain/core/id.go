package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// StudyID identifies one end-to-end pipeline run.
	StudyID ID
	// UnitID identifies a sampled unit (one row of the wide table).
	UnitID ID
	// ReplicateID identifies one replication inside a replication study.
	ReplicateID ID
)

// String conversions for domain IDs
func (id StudyID) String() string     { return ID(id).String() }
func (id UnitID) String() string      { return ID(id).String() }
func (id ReplicateID) String() string { return ID(id).String() }

// NewStudyID creates a fresh study identifier.
func NewStudyID() StudyID { return StudyID(NewID()) }

// ParseStudyID parses a string into StudyID
func ParseStudyID(s string) (StudyID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("study ID cannot be empty")
	}
	return StudyID(s), nil
}

// ParseUnitID parses a string into UnitID
func ParseUnitID(s string) (UnitID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("unit ID cannot be empty")
	}
	return UnitID(s), nil
}

// SequentialUnitIDs builds the unit identifiers for a simulated sample of
// size n. Simulated units are numbered, not random, so datasets regenerated
// from the same seed align row for row.
func SequentialUnitIDs(n int) []UnitID {
	ids := make([]UnitID, n)
	for i := range ids {
		ids[i] = UnitID(fmt.Sprintf("unit_%04d", i+1))
	}
	return ids
}
