package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	// ManifestField is the optional first multipart field announcing the
	// files that follow, so every indicator exists before streaming starts.
	ManifestField = "manifest"
	// FilesField carries the file parts.
	FilesField = "files"

	progressStep = 64 * 1024
)

// UploadSink consumes the events of one upload request in order.
type UploadSink interface {
	HandleUpload(ev UploadEvent)
}

// Receiver streams multipart file parts into temp files and reports their
// lifecycle to a sink. Temp files of finished files belong to the sink.
type Receiver struct {
	dir     string
	maxSize int64
	logger  *zap.Logger
}

func NewReceiver(dir string, maxSize int64, logger *zap.Logger) *Receiver {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{dir: dir, maxSize: maxSize, logger: logger}
}

// ReceiveResult counts the terminal events emitted.
type ReceiveResult struct {
	Finished int `json:"finished"`
	Failed   int `json:"failed"`
}

// Receive reads every part of mr. Each announced or encountered file gets
// exactly one FilesQueued entry and exactly one StreamFinished or
// StreamFailed, even when the request breaks off.
func (r *Receiver) Receive(ctx context.Context, mr *multipart.Reader, sink UploadSink) (ReceiveResult, error) {
	var (
		res      ReceiveResult
		queued   []FileDetail // announced but not yet seen
		manifest bool
	)

	failRemaining := func(err error) {
		for _, f := range queued {
			sink.HandleUpload(StreamFailed{FileName: f.FileName, Err: err})
			res.Failed++
		}
		queued = nil
	}

	for {
		if err := ctx.Err(); err != nil {
			failRemaining(err)
			return res, err
		}

		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			failRemaining(err)
			return res, fmt.Errorf("read multipart: %w", err)
		}

		if part.FormName() == ManifestField && part.FileName() == "" {
			if manifest || res.Finished+res.Failed > 0 {
				_ = part.Close()
				failRemaining(ErrInvalidManifest)
				return res, ErrInvalidManifest
			}
			var files []FileDetail
			err := json.NewDecoder(io.LimitReader(part, 64*1024)).Decode(&files)
			_ = part.Close()
			if err != nil {
				return res, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
			}
			manifest = true
			queued = files
			sink.HandleUpload(FilesQueued{Files: files})
			continue
		}

		if part.FileName() == "" {
			_ = part.Close()
			continue
		}

		detail := FileDetail{FileName: part.FileName(), MimeType: part.Header.Get("Content-Type")}
		if manifest && len(queued) > 0 {
			announced := queued[0]
			queued = queued[1:]
			detail.ContentLength = announced.ContentLength
			if detail.MimeType == "" {
				detail.MimeType = announced.MimeType
			}
		} else {
			sink.HandleUpload(FilesQueued{Files: []FileDetail{detail}})
		}

		tempPath, n, err := r.stream(part, detail, sink)
		_ = part.Close()
		if err != nil {
			sink.HandleUpload(StreamFailed{FileName: detail.FileName, Err: err})
			res.Failed++
			r.logger.Warn("upload stream failed", zap.String("file", detail.FileName), zap.Error(err))
			if !errors.Is(err, ErrFileTooLarge) {
				failRemaining(err)
				return res, err
			}
			continue
		}
		sink.HandleUpload(StreamFinished{
			FileName:      detail.FileName,
			MimeType:      detail.MimeType,
			BytesReceived: n,
			TempPath:      tempPath,
		})
		res.Finished++
	}

	failRemaining(io.ErrUnexpectedEOF)
	if res.Finished+res.Failed == 0 {
		return res, ErrNoFiles
	}
	return res, nil
}

func (r *Receiver) stream(src io.Reader, detail FileDetail, sink UploadSink) (string, int64, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(r.dir, "upload-*"+filepath.Ext(filepath.Base(detail.FileName)))
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()

	pw := &progressWriter{sink: sink, length: detail.ContentLength}
	if r.maxSize > 0 {
		src = io.LimitReader(src, r.maxSize+1)
	}
	n, err := io.Copy(io.MultiWriter(f, pw), src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && r.maxSize > 0 && n > r.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(name)
		return "", n, err
	}
	pw.flush()
	return name, n, nil
}

// progressWriter reports StreamProgress every progressStep bytes.
type progressWriter struct {
	sink     UploadSink
	length   int64
	received int64
	reported int64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.received += int64(len(p))
	if w.received-w.reported >= progressStep {
		w.flush()
	}
	return len(p), nil
}

func (w *progressWriter) flush() {
	if w.received == w.reported {
		return
	}
	w.reported = w.received
	w.sink.HandleUpload(StreamProgress{BytesReceived: w.received, ContentLength: w.length})
}
