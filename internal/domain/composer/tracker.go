package composer

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"projectcomments/internal/domain/attachment"
	"projectcomments/internal/i18n"
)

// FileState is the lifecycle of one uploaded file.
type FileState int

const (
	StateQueued FileState = iota
	StateStreaming
	StateFinished
	StateFailed
)

func (s FileState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("FileState(%d)", int(s))
	}
}

// FileDetail describes a file announced by the client.
type FileDetail struct {
	FileName      string `json:"name"`
	MimeType      string `json:"mime_type,omitempty"`
	ContentLength int64  `json:"size,omitempty"`
}

// Upload lifecycle events. The receiver produces them; the tracker consumes
// them in order.
type (
	FilesQueued struct {
		Files []FileDetail
	}
	StreamProgress struct {
		BytesReceived int64
		ContentLength int64
	}
	StreamFinished struct {
		FileName      string
		MimeType      string
		BytesReceived int64
		TempPath      string
	}
	StreamFailed struct {
		FileName string
		Err      error
	}
)

// UploadEvent is one of FilesQueued, StreamProgress, StreamFinished or
// StreamFailed.
type UploadEvent interface {
	uploadEvent()
}

func (FilesQueued) uploadEvent()    {}
func (StreamProgress) uploadEvent() {}
func (StreamFinished) uploadEvent() {}
func (StreamFailed) uploadEvent()   {}

type indicator struct {
	item  *StatusItem
	file  FileDetail
	state FileState
}

// Tracker turns upload events into status-area rows and pending
// attachments. It is not safe for concurrent use; the owning composer
// serialises calls.
type Tracker struct {
	status     *StatusArea
	indicators []*indicator
	pending    map[string]string // display name -> temp path

	originalPoll time.Duration
	uploadPoll   time.Duration
	poll         time.Duration
	lastStamp    int64 // unix millis of the last generated name

	emit    func(typ string, payload interface{})
	message func(key i18n.Key, args ...interface{}) string
	logger  *zap.Logger
	now     func() time.Time
}

func newTracker(status *StatusArea, poll, uploadPoll time.Duration,
	emit func(string, interface{}), message func(i18n.Key, ...interface{}) string, logger *zap.Logger) *Tracker {
	return &Tracker{
		status:       status,
		pending:      make(map[string]string),
		originalPoll: poll,
		uploadPoll:   uploadPoll,
		poll:         poll,
		emit:         emit,
		message:      message,
		logger:       logger,
		now:          time.Now,
	}
}

// Handle applies one upload event.
func (t *Tracker) Handle(ev UploadEvent) {
	switch e := ev.(type) {
	case FilesQueued:
		t.filesQueued(e)
	case StreamProgress:
		t.streamProgress(e)
	case StreamFinished:
		t.streamFinished(e)
	case StreamFailed:
		t.streamFailed(e)
	}
}

func (t *Tracker) filesQueued(e FilesQueued) {
	if len(e.Files) == 0 {
		return
	}
	t.setPoll(t.uploadPoll)
	for _, f := range e.Files {
		item := &StatusItem{ID: uuid.NewString(), Kind: KindProgress, FileName: f.FileName}
		t.status.Add(item)
		t.indicators = append(t.indicators, &indicator{item: item, file: f, state: StateQueued})
		t.emit(EventProgress, *item)
	}
}

func (t *Tracker) streamProgress(e StreamProgress) {
	head := t.head()
	if head == nil {
		return
	}
	head.state = StateStreaming
	head.item.Fraction = fraction(e.BytesReceived, e.ContentLength)
	t.emit(EventProgress, *head.item)
}

func (t *Tracker) streamFinished(e StreamFinished) {
	name := attachment.GenerateName(e.FileName, t.stamp())

	head := t.pop()
	if head != nil {
		head.state = StateFinished
	}
	if _, dup := t.pending[name]; dup {
		// The first file keeps the name; this one is dropped.
		t.reject(head, name, e.TempPath)
		t.restorePollIfIdle()
		return
	}

	row := &StatusItem{ID: uuid.NewString(), Kind: KindAttachment, FileName: name}
	if head != nil {
		row.ID = head.item.ID
	}
	if head == nil || !t.status.Replace(head.item.ID, row) {
		// No row left to replace (e.g. cleared by a submit); the file still
		// needs one so it can be seen and removed.
		t.status.Add(row)
	}
	t.emit(EventAttachmentAdded, *row)
	t.restorePollIfIdle()

	t.pending[name] = e.TempPath
	t.logger.Debug("attachment received",
		zap.String("file", name),
		zap.String("original", e.FileName),
		zap.Int64("bytes", e.BytesReceived))
}

// stamp returns the time used for the next generated name. Stamps are
// strictly increasing per tracker so files finishing within the same
// millisecond still get distinct names.
func (t *Tracker) stamp() time.Time {
	ms := t.now().UnixMilli()
	if ms <= t.lastStamp {
		ms = t.lastStamp + 1
	}
	t.lastStamp = ms
	return time.UnixMilli(ms)
}

func (t *Tracker) streamFailed(e StreamFailed) {
	head := t.pop()
	if head == nil {
		return
	}
	head.state = StateFailed
	label := &StatusItem{
		ID:       head.item.ID,
		Kind:     KindFailure,
		FileName: e.FileName,
		Label:    t.message(i18n.UploadFailed, e.FileName),
	}
	if t.status.Replace(head.item.ID, label) {
		t.emit(EventUploadFailed, *label)
	}
	t.restorePollIfIdle()
	t.logger.Warn("upload failed", zap.String("file", e.FileName), zap.Error(e.Err))
}

func (t *Tracker) reject(head *indicator, name, tempPath string) {
	msg := t.message(i18n.FileAlreadyExists, name)
	if head != nil {
		label := &StatusItem{ID: head.item.ID, Kind: KindFailure, FileName: name, Label: msg}
		if t.status.Replace(head.item.ID, label) {
			t.emit(EventUploadFailed, *label)
		}
	}
	t.emit(EventWarning, map[string]string{"message": msg, "file": name})
	if tempPath != "" && tempPath != t.pending[name] {
		_ = os.Remove(tempPath)
	}
	t.logger.Warn("duplicate attachment rejected", zap.String("file", name))
}

func (t *Tracker) head() *indicator {
	if len(t.indicators) == 0 {
		return nil
	}
	return t.indicators[0]
}

func (t *Tracker) pop() *indicator {
	head := t.head()
	if head != nil {
		t.indicators[0] = nil
		t.indicators = t.indicators[1:]
	}
	return head
}

func (t *Tracker) restorePollIfIdle() {
	if len(t.indicators) == 0 {
		t.setPoll(t.originalPoll)
	}
}

func (t *Tracker) setPoll(d time.Duration) {
	if t.poll == d {
		return
	}
	t.poll = d
	t.emit(EventPollInterval, pollPayload(d))
}

// PollInterval is the interval clients should poll at right now.
func (t *Tracker) PollInterval() time.Duration {
	return t.poll
}

// InFlight is the number of indicators still waiting for a terminal event.
func (t *Tracker) InFlight() int {
	return len(t.indicators)
}

// PendingNames lists pending attachment names in no particular order.
func (t *Tracker) PendingNames() []string {
	names := make([]string, 0, len(t.pending))
	for name := range t.pending {
		names = append(names, name)
	}
	return names
}

// Drop forgets a pending attachment and deletes its temp file.
func (t *Tracker) Drop(name string) bool {
	p, ok := t.pending[name]
	if !ok {
		return false
	}
	delete(t.pending, name)
	removeTemp(t.logger, p)
	return true
}

// TakePending hands the pending set to the caller and starts a new one.
func (t *Tracker) TakePending() map[string]string {
	out := t.pending
	t.pending = make(map[string]string)
	return out
}

func fraction(received, length int64) float64 {
	if length <= 0 {
		return 0
	}
	f := float64(received) / float64(length)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

func removeTemp(logger *zap.Logger, p string) {
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove temp file", zap.String("path", p), zap.Error(err))
	}
}
