package resource

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const DefaultBaseDir = "./storage"

// Service stores resource content on local disk, one tree per account, and
// keeps the metadata in the database.
type Service struct {
	repo    Repository
	baseDir string
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, baseDir string, logger *zap.Logger) *Service {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, baseDir: baseDir, logger: logger, now: time.Now}
}

// SaveContent writes r under content.Path for accountID, replacing any
// previous content at that path.
func (s *Service) SaveContent(ctx context.Context, content Content, createdUser string, r io.Reader, accountID int64) (*Resource, error) {
	if strings.TrimSpace(content.Name) == "" {
		return nil, ErrEmptyName
	}
	logical, err := cleanPath(content.Path)
	if err != nil {
		return nil, err
	}

	absPath := s.diskPath(accountID, logical)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create resource directory: %w", err)
	}

	// Write to a sibling temp file first so readers never see partial content.
	tmp, err := os.CreateTemp(filepath.Dir(absPath), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	hash, _ := blake2b.New256(nil)
	sniff := &sniffWriter{limit: 512}
	size, err := io.Copy(io.MultiWriter(tmp, hash, sniff), r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	now := s.now()
	res := &Resource{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Path:        logical,
		Name:        content.Name,
		MimeType:    strings.Split(http.DetectContentType(sniff.buf), ";")[0],
		Size:        size,
		Checksum:    hex.EncodeToString(hash.Sum(nil)),
		CreatedUser: createdUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to save resource record: %w", err)
	}

	s.logger.Debug("resource saved",
		zap.Int64("account_id", accountID),
		zap.String("path", logical),
		zap.Int64("size", size),
		zap.String("user", createdUser))
	return res, nil
}

// List returns the resources stored below prefix.
func (s *Service) List(ctx context.Context, accountID int64, prefix string) ([]*Resource, error) {
	if prefix != "" {
		cleaned, err := cleanPath(prefix)
		if err != nil {
			return nil, err
		}
		prefix = cleaned
	}
	return s.repo.ListByPrefix(ctx, accountID, prefix)
}

// Open returns the metadata and an open handle on the content. The caller
// closes the file.
func (s *Service) Open(ctx context.Context, accountID int64, p string) (*Resource, *os.File, error) {
	logical, err := cleanPath(p)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.repo.GetByPath(ctx, accountID, logical)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.diskPath(accountID, logical))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrResourceNotFound
		}
		return nil, nil, fmt.Errorf("failed to open resource: %w", err)
	}
	return res, f, nil
}

func (s *Service) diskPath(accountID int64, logical string) string {
	return filepath.Join(s.baseDir, strconv.FormatInt(accountID, 10), filepath.FromSlash(logical))
}

// cleanPath normalises a logical path and rejects anything escaping the
// account root.
func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" || strings.Contains(p, "..") {
		return "", ErrInvalidPath
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

type sniffWriter struct {
	buf   []byte
	limit int
}

func (w *sniffWriter) Write(p []byte) (int, error) {
	if room := w.limit - len(w.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		w.buf = append(w.buf, p[:room]...)
	}
	return len(p), nil
}
