package attachment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"

	"go.uber.org/zap"

	"projectcomments/internal/domain/resource"
	"projectcomments/internal/session"
)

// ContentSaver is the resource storage contract the persister writes to.
type ContentSaver interface {
	SaveContent(ctx context.Context, content resource.Content, createdUser string, r io.Reader, accountID int64) (*resource.Resource, error)
}

// Report lists what happened to each pending attachment, by name.
type Report struct {
	Saved    []string `json:"saved,omitempty"`
	Scaled   []string `json:"scaled,omitempty"`
	Fallback []string `json:"fallback,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
	Failed   []string `json:"failed,omitempty"`
}

// Persister pushes pending attachment files to storage.
type Persister struct {
	storage ContentSaver
	bounds  Bounds
	logger  *zap.Logger
}

func NewPersister(storage ContentSaver, bounds Bounds, logger *zap.Logger) *Persister {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		bounds = DefaultBounds
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{storage: storage, bounds: bounds, logger: logger}
}

// Persist stores every file of pending (name -> local path) under
// attachmentPath. Failures are logged and reported per file; they never stop
// the remaining files.
func (p *Persister) Persist(ctx context.Context, sess session.Context, attachmentPath string, pending map[string]string) Report {
	var report Report
	if len(pending) == 0 {
		return report
	}

	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		log := p.logger.With(zap.String("file", name), zap.String("path", attachmentPath))
		content := ConstructContent(name, attachmentPath)

		data, err := os.ReadFile(pending[name])
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Error("attachment file missing, skipped", zap.Error(err))
			} else {
				log.Error("attachment file unreadable, skipped", zap.Error(err))
			}
			report.Skipped = append(report.Skipped, name)
			continue
		}

		payload := data
		if ext := Ext(name); isImageExt(ext) {
			scaled, scale, err := Downscale(bytes.NewReader(data), ext, p.bounds)
			if err != nil {
				log.Error("image downscale failed, storing original", zap.Error(err))
				report.Fallback = append(report.Fallback, name)
			} else {
				payload = scaled
				report.Scaled = append(report.Scaled, name)
				log.Debug("image downscaled", zap.Float64("scale", scale))
			}
		}

		if _, err := p.storage.SaveContent(ctx, content, sess.Username, bytes.NewReader(payload), sess.AccountID); err != nil {
			log.Error("attachment save failed", zap.Error(err))
			report.Failed = append(report.Failed, name)
			continue
		}
		report.Saved = append(report.Saved, name)
	}
	return report
}
