package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type SessionSlotRepo interface {
	Create(ctx context.Context, tx *gorm.DB, slots []*types.SessionSlot) ([]*types.SessionSlot, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SessionSlot, error)
	// FindJoinable returns the oldest slot still waiting for the given role.
	FindJoinable(ctx context.Context, tx *gorm.DB, role string) (*types.SessionSlot, error)
	// AssignRole claims a role column only if it is still free; the returned
	// count is 0 when the claim raced and lost.
	AssignRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role string, userID uuid.UUID) (int64, error)
	// UpdateStatus transitions status guarded by the expected current value;
	// the returned count is 0 when the guard did not hold.
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (int64, error)
	ListStale(ctx context.Context, tx *gorm.DB, statuses []string, olderThan time.Time) ([]*types.SessionSlot, error)
}

type sessionSlotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionSlotRepo(db *gorm.DB, baseLog *logger.Logger) SessionSlotRepo {
	return &sessionSlotRepo{db: db, log: baseLog.With("repo", "SessionSlotRepo")}
}

func (r *sessionSlotRepo) Create(ctx context.Context, tx *gorm.DB, slots []*types.SessionSlot) ([]*types.SessionSlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(slots) == 0 {
		return []*types.SessionSlot{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *sessionSlotRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SessionSlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var slot types.SessionSlot
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *sessionSlotRepo) FindJoinable(ctx context.Context, tx *gorm.DB, role string) (*types.SessionSlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	column, err := roleColumn(role)
	if err != nil {
		return nil, err
	}
	var slot types.SessionSlot
	qErr := transaction.WithContext(ctx).
		Where("status = ? AND "+column+" IS NULL", "open").
		Order("created_at ASC").
		First(&slot).Error
	if qErr != nil {
		if qErr == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, qErr
	}
	return &slot, nil
}

func (r *sessionSlotRepo) AssignRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role string, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	column, err := roleColumn(role)
	if err != nil {
		return 0, err
	}
	res := transaction.WithContext(ctx).
		Model(&types.SessionSlot{}).
		Where("id = ? AND "+column+" IS NULL", id).
		Update(column, userID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *sessionSlotRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.SessionSlot{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *sessionSlotRepo) ListStale(ctx context.Context, tx *gorm.DB, statuses []string, olderThan time.Time) ([]*types.SessionSlot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SessionSlot
	if len(statuses) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("status IN ? AND created_at < ?", statuses, olderThan).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func roleColumn(role string) (string, error) {
	switch role {
	case "optimizer":
		return "optimizer_id", nil
	case "scroller":
		return "scroller_id", nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}
