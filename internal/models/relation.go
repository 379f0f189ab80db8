package models

import (
	"fmt"
	"time"
)

// TargetKind tags what a relation record points at.
type TargetKind string

const (
	TargetVideo   TargetKind = "video"
	TargetComment TargetKind = "comment"
	TargetTweet   TargetKind = "tweet"
	// TargetChannel is the subscription edge; its target is an identity.
	TargetChannel TargetKind = "channel"
)

// ParseTargetKind validates a textual kind.
func ParseTargetKind(s string) (TargetKind, error) {
	kind := TargetKind(s)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown target kind %q", s)
	}
	return kind, nil
}

// Valid reports whether the kind is one of the known variants.
func (k TargetKind) Valid() bool {
	switch k {
	case TargetVideo, TargetComment, TargetTweet, TargetChannel:
		return true
	default:
		return false
	}
}

// Likeable reports whether likes may point at this kind.
func (k TargetKind) Likeable() bool {
	switch k {
	case TargetVideo, TargetComment, TargetTweet:
		return true
	default:
		return false
	}
}

// Target is the tagged reference carried by a relation record.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   ID         `json:"id"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

// Relation is an engagement edge. Its existence is its active state; relations are
// created and destroyed but never updated.
type Relation struct {
	ActorID   ID        `json:"actor"`
	Target    Target    `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key identifies the (actor, target) pair the storage keeps unique.
func (r Relation) Key() RelationKey {
	return RelationKey{ActorID: r.ActorID, Target: r.Target}
}

// RelationKey is comparable and usable as a map key.
type RelationKey struct {
	ActorID ID
	Target  Target
}
