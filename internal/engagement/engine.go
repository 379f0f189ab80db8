// Package engagement flips like and subscription edges.
package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// RelationStore persists relation records. Storage owns uniqueness: CreateRelation
// must fail with apperr.ErrConflict when the edge already exists.
type RelationStore interface {
	HasRelation(ctx context.Context, key models.RelationKey) (bool, error)
	CreateRelation(ctx context.Context, relation models.Relation) error
	DeleteRelation(ctx context.Context, key models.RelationKey) (bool, error)
}

// TargetResolver checks that the entity behind a target exists.
type TargetResolver interface {
	TargetExists(ctx context.Context, target models.Target) (bool, error)
}

// Result is the state of the edge after a toggle.
type Result struct {
	Active bool          `json:"active"`
	Target models.Target `json:"target"`
}

// Engine implements the check-then-flip toggle over relation records.
type Engine struct {
	relations RelationStore
	targets   TargetResolver
	now       func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(relations RelationStore, targets TargetResolver) *Engine {
	if relations == nil || targets == nil {
		panic("engagement: relation store and target resolver must not be nil")
	}
	return &Engine{relations: relations, targets: targets, now: func() time.Time { return time.Now().UTC() }}
}

// Toggle flips the edge from actor to target and returns the resulting state.
//
// When two toggles race on an absent edge, storage rejects the second insert with
// ErrConflict and both callers observe the edge as active. When two race on a present
// edge, the loser deletes nothing and both observe it as inactive.
func (e *Engine) Toggle(ctx context.Context, actorID models.ID, target models.Target) (Result, error) {
	ctx, span := logging.StartSpan(ctx, "engagement.toggle")
	defer span.End()

	if actorID.IsZero() {
		return Result{}, apperr.AuthRequired("unauthorized request")
	}
	if !target.Kind.Valid() {
		return Result{}, apperr.Validation("unknown target kind %q", target.Kind)
	}
	if target.ID.IsZero() {
		return Result{}, apperr.Validation("%s id is required", target.Kind)
	}

	exists, err := e.targets.TargetExists(ctx, target)
	if err != nil {
		span.Fail(err)
		return Result{}, apperr.Internal(err, "failed to resolve %s", target.Kind)
	}
	if !exists {
		return Result{}, apperr.NotFound("%s not found", target.Kind)
	}

	key := models.RelationKey{ActorID: actorID, Target: target}
	present, err := e.relations.HasRelation(ctx, key)
	if err != nil {
		span.Fail(err)
		return Result{}, apperr.Internal(err, "failed to load %s relation", target.Kind)
	}

	logger := logging.FromContext(ctx).With("target", target.String(), "actor", actorID.String())

	if present {
		if _, err := e.relations.DeleteRelation(ctx, key); err != nil {
			span.Fail(err)
			return Result{}, apperr.Internal(err, "failed to remove %s relation", target.Kind)
		}
		logger.Info("relation removed")
		return Result{Active: false, Target: target}, nil
	}

	err = e.relations.CreateRelation(ctx, models.Relation{ActorID: actorID, Target: target, CreatedAt: e.now()})
	switch {
	case err == nil:
		logger.Info("relation created")
	case errors.Is(err, apperr.ErrConflict):
		logger.Debug("relation created concurrently")
	case errors.Is(err, apperr.ErrNotFound):
		return Result{}, apperr.NotFound("%s not found", target.Kind)
	default:
		span.Fail(err)
		return Result{}, apperr.Internal(err, "failed to create %s relation", target.Kind)
	}
	return Result{Active: true, Target: target}, nil
}

// ToggleLike flips a like. Only videos, comments and tweets can be liked.
func (e *Engine) ToggleLike(ctx context.Context, actorID models.ID, kind models.TargetKind, targetID models.ID) (Result, error) {
	if !kind.Likeable() {
		return Result{}, apperr.Validation("%q cannot be liked", kind)
	}
	return e.Toggle(ctx, actorID, models.Target{Kind: kind, ID: targetID})
}

// ToggleSubscription flips the subscriber's subscription to channel.
func (e *Engine) ToggleSubscription(ctx context.Context, subscriberID, channelID models.ID) (Result, error) {
	if !subscriberID.IsZero() && subscriberID == channelID {
		return Result{}, apperr.Validation("you cannot subscribe to your own channel")
	}
	return e.Toggle(ctx, subscriberID, models.Target{Kind: models.TargetChannel, ID: channelID})
}
