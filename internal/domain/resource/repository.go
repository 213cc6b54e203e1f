package resource

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, r *Resource) error
	GetByPath(ctx context.Context, accountID int64, path string) (*Resource, error)
	ListByPrefix(ctx context.Context, accountID int64, prefix string) ([]*Resource, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Upsert replaces the metadata of an existing (account, path) row or inserts
// a new one. A concurrent insert of the same path falls back to update.
func (r *repository) Upsert(ctx context.Context, res *Resource) error {
	existing, err := r.GetByPath(ctx, res.AccountID, res.Path)
	switch {
	case err == nil:
		return r.update(ctx, existing.ID, res)
	case !errors.Is(err, ErrResourceNotFound):
		return err
	}

	err = r.db.WithContext(ctx).Create(res).Error
	if err != nil && isUniqueViolation(err) {
		existing, getErr := r.GetByPath(ctx, res.AccountID, res.Path)
		if getErr != nil {
			return err
		}
		return r.update(ctx, existing.ID, res)
	}
	return err
}

func (r *repository) update(ctx context.Context, id string, res *Resource) error {
	res.ID = id
	return r.db.WithContext(ctx).Model(&Resource{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":         res.Name,
		"mime_type":    res.MimeType,
		"size":         res.Size,
		"checksum":     res.Checksum,
		"created_user": res.CreatedUser,
		"updated_at":   res.UpdatedAt,
	}).Error
}

func (r *repository) GetByPath(ctx context.Context, accountID int64, path string) (*Resource, error) {
	var res Resource
	err := r.db.WithContext(ctx).Where("account_id = ? AND path = ?", accountID, path).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) ListByPrefix(ctx context.Context, accountID int64, prefix string) ([]*Resource, error) {
	var out []*Resource
	q := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if prefix != "" {
		q = q.Where("path LIKE ? ESCAPE '\\'", escapeLike(strings.TrimSuffix(prefix, "/"))+"/%")
	}
	err := q.Order("path ASC").Find(&out).Error
	return out, err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
