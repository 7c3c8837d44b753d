package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/requestdata"
	"github.com/felixvaughn/themachine-backend/internal/session"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

const maxFieldReportLength = 4000

type FieldReportService interface {
	SubmitReport(ctx context.Context, sessionID uuid.UUID, role, content string, shareConsent bool) (*types.FieldReport, error)
	GetReports(ctx context.Context, sessionID uuid.UUID) ([]*types.FieldReport, error)
	ListSharedReports(ctx context.Context, limit int) ([]*types.FieldReport, error)
}

type fieldReportService struct {
	db         *gorm.DB
	log        *logger.Logger
	reportRepo repos.FieldReportRepo
}

func NewFieldReportService(db *gorm.DB, log *logger.Logger, reportRepo repos.FieldReportRepo) FieldReportService {
	return &fieldReportService{
		db:         db,
		log:        log.With("service", "FieldReportService"),
		reportRepo: reportRepo,
	}
}

func (fs *fieldReportService) SubmitReport(ctx context.Context, sessionID uuid.UUID, role, content string, shareConsent bool) (*types.FieldReport, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("No request data found in context")
	}
	if !session.ValidRole(role) {
		return nil, fmt.Errorf("Unknown role %q", role)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("Report content is required")
	}
	if len(content) > maxFieldReportLength {
		return nil, fmt.Errorf("Report content exceeds %d characters", maxFieldReportLength)
	}

	report := &types.FieldReport{
		ID:           uuid.New(),
		SessionID:    sessionID,
		UserID:       rd.UserID,
		Role:         role,
		Content:      content,
		ShareConsent: shareConsent,
		CreatedAt:    time.Now(),
	}
	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cErr := fs.reportRepo.Create(ctx, tx, []*types.FieldReport{report}); cErr != nil {
			return fmt.Errorf("Failed to create field report: %w", cErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (fs *fieldReportService) GetReports(ctx context.Context, sessionID uuid.UUID) ([]*types.FieldReport, error) {
	reports, rErr := fs.reportRepo.GetBySessionID(ctx, nil, sessionID)
	if rErr != nil {
		fs.log.Warn("Failed to load field reports", "error", rErr)
		return nil, fmt.Errorf("Failed to load field reports: %w", rErr)
	}
	return reports, nil
}

func (fs *fieldReportService) ListSharedReports(ctx context.Context, limit int) ([]*types.FieldReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	reports, rErr := fs.reportRepo.ListShared(ctx, nil, limit)
	if rErr != nil {
		fs.log.Warn("Failed to list shared field reports", "error", rErr)
		return nil, fmt.Errorf("Failed to list shared field reports: %w", rErr)
	}
	return reports, nil
}
