package comment

import (
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"projectcomments/internal/pkg/cache"
)

const cachePrefix = "cache:comments:"

// Service stores comments and serves cached per-subject listings.
type Service struct {
	repo      Repository
	cache     *cache.Cache
	logger    *zap.Logger
	ttl       time.Duration
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewService(repo Repository, c *cache.Cache, logger *zap.Logger, ttl time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		cache:     c,
		logger:    logger,
		ttl:       ttl,
		sanitizer: bluemonday.UGCPolicy(),
		now:       time.Now,
	}
}

// SaveWithSession persists c on behalf of username and returns the assigned
// id. The body is stored exactly as typed and may be empty.
func (s *Service) SaveWithSession(ctx context.Context, c *Comment, username string) (int64, error) {
	if c.Type == "" || c.TypeID == "" {
		return 0, ErrMissingSubject
	}
	if c.CreatedUser == "" {
		c.CreatedUser = username
	}
	if c.CreatedUser == "" {
		return 0, ErrMissingAuthor
	}
	if c.CreatedTime.IsZero() {
		c.CreatedTime = s.now()
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return 0, fmt.Errorf("failed to save comment: %w", err)
	}

	s.cache.InvalidatePrefix(ctx, subjectKey(c.SAccountID, c.Type, c.TypeID))
	s.logger.Debug("comment saved",
		zap.Int64("comment_id", c.ID),
		zap.String("type", c.Type),
		zap.String("type_id", c.TypeID),
		zap.String("user", c.CreatedUser))
	return c.ID, nil
}

// GetByID returns a single comment.
func (s *Service) GetByID(ctx context.Context, id int64) (*Comment, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.render(c)
	return c, nil
}

// ListBySubject returns the comments of a subject, newest first.
func (s *Service) ListBySubject(ctx context.Context, accountID int64, typ, typeID string) ([]*Comment, error) {
	if typ == "" || typeID == "" {
		return nil, ErrMissingSubject
	}

	key := subjectKey(accountID, typ, typeID)
	var cached []*Comment
	if s.cache.GetJSON(ctx, key, &cached) {
		s.render(cached...)
		return cached, nil
	}

	comments, err := s.repo.ListBySubject(ctx, accountID, typ, typeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	s.cache.SetJSON(ctx, key, comments, s.ttl)
	s.render(comments...)
	return comments, nil
}

// render fills BodyHTML with the body passed through the UGC policy, for
// clients that display comments as HTML.
func (s *Service) render(comments ...*Comment) {
	for _, c := range comments {
		c.BodyHTML = s.sanitizer.Sanitize(c.Comment)
	}
}

func subjectKey(accountID int64, typ, typeID string) string {
	return fmt.Sprintf("%s%d:%s:%s", cachePrefix, accountID, typ, typeID)
}
