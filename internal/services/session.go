package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/realtime"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/requestdata"
	"github.com/felixvaughn/themachine-backend/internal/session"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

// staleSessionAge is how long a slot may sit in a pre-active status before
// the sweeper abandons it.
const staleSessionAge = 30 * time.Minute

type SessionService interface {
	// Match joins the caller into the oldest open slot missing their role,
	// creating a fresh slot when none is waiting. The returned flag is true
	// when the match filled the slot's second seat.
	Match(ctx context.Context, role string) (*types.SessionSlot, bool, error)
	CreateSession(ctx context.Context, role string, startsAt time.Time) (*types.SessionSlot, error)
	GetSession(ctx context.Context, id uuid.UUID) (*types.SessionSlot, error)
	JoinSession(ctx context.Context, id uuid.UUID, role string) (*types.SessionSlot, error)
	// Advance applies a lifecycle input to the session, guarded against
	// concurrent transitions, and broadcasts the matching control event.
	Advance(ctx context.Context, id uuid.UUID, input session.Input) (*types.SessionSlot, error)
	AbandonStale(ctx context.Context) (int, error)
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	slotRepo repos.SessionSlotRepo
	hub      *realtime.Hub
}

func NewSessionService(db *gorm.DB, log *logger.Logger, slotRepo repos.SessionSlotRepo, hub *realtime.Hub) SessionService {
	return &sessionService{
		db:       db,
		log:      log.With("service", "SessionService"),
		slotRepo: slotRepo,
		hub:      hub,
	}
}

func (ss *sessionService) Match(ctx context.Context, role string) (*types.SessionSlot, bool, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, false, fmt.Errorf("No request data found in context")
	}
	if !session.ValidRole(role) {
		return nil, false, fmt.Errorf("Unknown role %q", role)
	}

	var slot *types.SessionSlot
	var matched bool
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate, fErr := ss.slotRepo.FindJoinable(ctx, tx, role)
		if fErr != nil {
			return fmt.Errorf("Failed to find joinable session: %w", fErr)
		}
		if candidate != nil {
			claimed, cErr := ss.claim(ctx, tx, candidate.ID, role, rd.UserID)
			if cErr != nil {
				return cErr
			}
			if claimed != nil {
				slot = claimed
				matched = claimed.OptimizerID != nil && claimed.ScrollerID != nil
				return nil
			}
			// Claim raced and lost; fall through to a fresh slot.
		}
		created, crErr := ss.createSlot(ctx, tx, role, rd.UserID, time.Now())
		if crErr != nil {
			return crErr
		}
		slot = created
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if matched {
		ss.log.Info("Session matched", "sessionID", slot.ID)
	}
	return slot, matched, nil
}

func (ss *sessionService) CreateSession(ctx context.Context, role string, startsAt time.Time) (*types.SessionSlot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("No request data found in context")
	}
	if !session.ValidRole(role) {
		return nil, fmt.Errorf("Unknown role %q", role)
	}
	if startsAt.IsZero() {
		startsAt = time.Now()
	}
	var slot *types.SessionSlot
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, crErr := ss.createSlot(ctx, tx, role, rd.UserID, startsAt)
		if crErr != nil {
			return crErr
		}
		slot = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (ss *sessionService) GetSession(ctx context.Context, id uuid.UUID) (*types.SessionSlot, error) {
	slot, gErr := ss.slotRepo.GetByID(ctx, nil, id)
	if gErr != nil {
		if gErr == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("Session not found")
		}
		ss.log.Warn("Failed to load session", "error", gErr)
		return nil, fmt.Errorf("Failed to load session: %w", gErr)
	}
	return slot, nil
}

func (ss *sessionService) JoinSession(ctx context.Context, id uuid.UUID, role string) (*types.SessionSlot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("No request data found in context")
	}
	if !session.ValidRole(role) {
		return nil, fmt.Errorf("Unknown role %q", role)
	}
	var slot *types.SessionSlot
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, gErr := ss.slotRepo.GetByID(ctx, tx, id)
		if gErr != nil {
			if gErr == gorm.ErrRecordNotFound {
				return fmt.Errorf("Session not found")
			}
			return fmt.Errorf("Failed to load session: %w", gErr)
		}
		if session.Status(current.Status) != session.StatusOpen {
			return fmt.Errorf("Session is not open")
		}
		claimed, cErr := ss.claim(ctx, tx, id, role, rd.UserID)
		if cErr != nil {
			return cErr
		}
		if claimed == nil {
			return fmt.Errorf("Role %s is already taken", role)
		}
		slot = claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// claim assigns the role if still free and, when that fills the second
// seat, flips the slot to matched. Returns nil without error when the
// assignment lost a race.
func (ss *sessionService) claim(ctx context.Context, tx *gorm.DB, id uuid.UUID, role string, userID uuid.UUID) (*types.SessionSlot, error) {
	count, aErr := ss.slotRepo.AssignRole(ctx, tx, id, role, userID)
	if aErr != nil {
		return nil, fmt.Errorf("Failed to assign role: %w", aErr)
	}
	if count == 0 {
		return nil, nil
	}
	slot, gErr := ss.slotRepo.GetByID(ctx, tx, id)
	if gErr != nil {
		return nil, fmt.Errorf("Failed to reload session after claim: %w", gErr)
	}
	if slot.OptimizerID != nil && slot.ScrollerID != nil && session.Status(slot.Status) == session.StatusOpen {
		if _, uErr := ss.slotRepo.UpdateStatus(ctx, tx, id, string(session.StatusOpen), string(session.StatusMatched)); uErr != nil {
			return nil, fmt.Errorf("Failed to mark session matched: %w", uErr)
		}
		slot.Status = string(session.StatusMatched)
	}
	return slot, nil
}

func (ss *sessionService) createSlot(ctx context.Context, tx *gorm.DB, role string, userID uuid.UUID, startsAt time.Time) (*types.SessionSlot, error) {
	slot := &types.SessionSlot{
		ID:       uuid.New(),
		StartsAt: startsAt,
		Status:   string(session.StatusOpen),
	}
	if role == string(session.RoleOptimizer) {
		slot.OptimizerID = &userID
	} else {
		slot.ScrollerID = &userID
	}
	if _, cErr := ss.slotRepo.Create(ctx, tx, []*types.SessionSlot{slot}); cErr != nil {
		return nil, fmt.Errorf("Failed to create session: %w", cErr)
	}
	return slot, nil
}

func (ss *sessionService) Advance(ctx context.Context, id uuid.UUID, input session.Input) (*types.SessionSlot, error) {
	var slot *types.SessionSlot
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, gErr := ss.slotRepo.GetByID(ctx, tx, id)
		if gErr != nil {
			if gErr == gorm.ErrRecordNotFound {
				return fmt.Errorf("Session not found")
			}
			return fmt.Errorf("Failed to load session: %w", gErr)
		}
		next, tErr := session.Transition(session.Status(current.Status), input)
		if tErr != nil {
			return tErr
		}
		count, uErr := ss.slotRepo.UpdateStatus(ctx, tx, id, current.Status, string(next))
		if uErr != nil {
			return fmt.Errorf("Failed to update session status: %w", uErr)
		}
		if count == 0 {
			return fmt.Errorf("Session advanced concurrently, retry")
		}
		current.Status = string(next)
		slot = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Control signals ride the same channel as telemetry; a lost broadcast
	// is tolerable because the persisted status is authoritative.
	now := time.Now().UnixMilli()
	switch input {
	case session.InputBegin:
		ss.publish(id, realtime.SessionStart{Timestamp: now})
	case session.InputEnd:
		ss.publish(id, realtime.SessionEnd{Timestamp: now})
	}
	return slot, nil
}

func (ss *sessionService) publish(id uuid.UUID, ev realtime.Event) {
	if ss.hub == nil {
		return
	}
	if pErr := ss.hub.Publish(id, ev); pErr != nil {
		ss.log.Warn("Failed to broadcast session event", "sessionID", id, "event", string(ev.Kind()), "error", pErr)
	}
}

// AbandonStale walks pre-active sessions older than the cutoff and marks
// them abandoned. Invoked by the scheduled sweeper.
func (ss *sessionService) AbandonStale(ctx context.Context) (int, error) {
	statuses := []string{
		string(session.StatusOpen),
		string(session.StatusMatched),
		string(session.StatusLobby),
	}
	stale, lErr := ss.slotRepo.ListStale(ctx, nil, statuses, time.Now().Add(-staleSessionAge))
	if lErr != nil {
		return 0, fmt.Errorf("Failed to list stale sessions: %w", lErr)
	}
	abandoned := 0
	for _, slot := range stale {
		count, uErr := ss.slotRepo.UpdateStatus(ctx, nil, slot.ID, slot.Status, string(session.StatusAbandoned))
		if uErr != nil {
			ss.log.Warn("Failed to abandon stale session", "sessionID", slot.ID, "error", uErr)
			continue
		}
		if count > 0 {
			abandoned++
		}
	}
	if abandoned > 0 {
		ss.log.Info("Abandoned stale sessions", "count", abandoned)
	}
	return abandoned, nil
}
