package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/contentselect/internal/logger"
	"github.com/yungbote/contentselect/internal/types"
)

type AuditRepo interface {
	CreateRun(ctx context.Context, tx *gorm.DB, run *types.BanditRun) error
	CreateSamples(ctx context.Context, tx *gorm.DB, samples []*types.BanditSample) error
	CreateUpdates(ctx context.Context, tx *gorm.DB, updates []*types.BanditUpdate) error
	CreateSlate(ctx context.Context, tx *gorm.DB, slate *types.SelectedSlate) error
	GetSlatesByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*types.SelectedSlate, error)
	GetUpdatesByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*types.BanditUpdate, error)
}

type auditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	repoLog := baseLog.With("repo", "AuditRepo")
	return &auditRepo{db: db, log: repoLog}
}

func (r *auditRepo) CreateRun(ctx context.Context, tx *gorm.DB, run *types.BanditRun) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(run).Error
}

func (r *auditRepo) CreateSamples(ctx context.Context, tx *gorm.DB, samples []*types.BanditSample) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(samples) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&samples).Error
}

func (r *auditRepo) CreateUpdates(ctx context.Context, tx *gorm.DB, updates []*types.BanditUpdate) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&updates).Error
}

func (r *auditRepo) CreateSlate(ctx context.Context, tx *gorm.DB, slate *types.SelectedSlate) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(slate).Error
}

func (r *auditRepo) GetSlatesByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*types.SelectedSlate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SelectedSlate
	if userID == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("selected_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *auditRepo) GetUpdatesByUserID(ctx context.Context, tx *gorm.DB, userID string) ([]*types.BanditUpdate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BanditUpdate
	if userID == "" {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("observed_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
