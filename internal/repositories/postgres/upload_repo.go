package postgres

import (
	"context"
	"time"

	"github.com/yoockh/unistep/internal/models"
	"gorm.io/gorm"
)

type UploadRepository interface {
	Insert(ctx context.Context, rec *models.UploadRecord) error
	// AttachToApplication links every unattached, non-discarded row of the
	// wizard to the stored application and returns the number of rows touched.
	AttachToApplication(ctx context.Context, wizardID, applicationID string, at time.Time) (int64, error)
	// ListOrphans returns unattached rows uploaded before the cutoff, oldest first.
	ListOrphans(ctx context.Context, before time.Time, limit int) ([]models.UploadRecord, error)
	ListByApplication(ctx context.Context, applicationID string) ([]models.UploadRecord, error)
}

type uploadRepo struct {
	db *gorm.DB
}

func NewUploadRepo(db *gorm.DB) UploadRepository {
	return &uploadRepo{db: db}
}

func (r *uploadRepo) Insert(ctx context.Context, rec *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *uploadRepo) AttachToApplication(ctx context.Context, wizardID, applicationID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UploadRecord{}).
		Where("wizard_id = ? AND application_id IS NULL", wizardID).
		Where("COALESCE((metadata->>'discarded')::boolean, false) = false").
		Updates(map[string]any{
			"application_id": applicationID,
			"attached_at":    at.UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *uploadRepo) ListOrphans(ctx context.Context, before time.Time, limit int) ([]models.UploadRecord, error) {
	var rows []models.UploadRecord
	q := r.db.WithContext(ctx).
		Where("application_id IS NULL AND uploaded_at < ?", before.UTC()).
		Order("uploaded_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *uploadRepo) ListByApplication(ctx context.Context, applicationID string) ([]models.UploadRecord, error) {
	var rows []models.UploadRecord
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("uploaded_at ASC").
		Find(&rows).Error
	return rows, err
}
