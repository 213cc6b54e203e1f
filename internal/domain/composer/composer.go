package composer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"projectcomments/internal/domain/attachment"
	"projectcomments/internal/domain/comment"
	"projectcomments/internal/i18n"
	"projectcomments/internal/session"
)

// CommentSaver persists a comment and returns its id.
type CommentSaver interface {
	SaveWithSession(ctx context.Context, c *comment.Comment, username string) (int64, error)
}

// AttachmentPersister pushes pending attachments to storage.
type AttachmentPersister interface {
	Persist(ctx context.Context, sess session.Context, attachmentPath string, pending map[string]string) attachment.Report
}

// Reloader is the view that owns the composer; it is refreshed after submit.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadFunc adapts a function to Reloader.
type ReloadFunc func(ctx context.Context) error

func (f ReloadFunc) Reload(ctx context.Context) error { return f(ctx) }

// Deps are the collaborators shared by every composer.
type Deps struct {
	Comments     CommentSaver
	Attachments  AttachmentPersister
	Messages     *i18n.Bundle
	Emitter      Emitter
	Logger       *zap.Logger
	PollInterval time.Duration
	UploadPoll   time.Duration
}

// Options describe one composer.
type Options struct {
	ProjectID   int64
	SubjectType string
	SubjectID   string
	ExtraTypeID *int64
	Parent      Reloader
}

// Snapshot is the client-visible state of a composer.
type Snapshot struct {
	ID             string       `json:"id"`
	ProjectID      int64        `json:"project_id"`
	SubjectType    string       `json:"type"`
	SubjectID      string       `json:"type_id"`
	ExtraTypeID    *int64       `json:"extra_type_id,omitempty"`
	Text           string       `json:"text"`
	Prompt         string       `json:"prompt"`
	SendCaption    string       `json:"send_caption"`
	Status         []StatusItem `json:"status"`
	Pending        []string     `json:"pending"`
	InFlight       int          `json:"in_flight"`
	PollIntervalMS int64        `json:"poll_interval_ms"`
}

// SubmitResult reports what a submit stored.
type SubmitResult struct {
	CommentID      int64             `json:"comment_id"`
	AttachmentPath string            `json:"attachment_path"`
	Attachments    attachment.Report `json:"attachments"`
}

// Composer is one user's comment editing session on a subject. All of its
// handlers run under mu, one at a time.
type Composer struct {
	mu sync.Mutex

	id          string
	owner       session.Context
	projectID   int64
	subjectType string
	subjectID   string
	extraTypeID *int64
	text        string

	status  *StatusArea
	tracker *Tracker
	parent  Reloader

	comments    CommentSaver
	attachments AttachmentPersister
	messages    *i18n.Bundle
	emitter     Emitter
	logger      *zap.Logger
	now         func() time.Time
	lastActive  time.Time
}

// New builds a composer owned by owner.
func New(owner session.Context, opts Options, deps Deps) *Composer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Emitter == nil {
		deps.Emitter = nopEmitter{}
	}
	if opts.Parent == nil {
		opts.Parent = ReloadFunc(func(context.Context) error { return nil })
	}

	c := &Composer{
		id:          uuid.NewString(),
		owner:       owner,
		projectID:   opts.ProjectID,
		subjectType: opts.SubjectType,
		subjectID:   strings.TrimSpace(opts.SubjectID),
		extraTypeID: opts.ExtraTypeID,
		status:      &StatusArea{},
		parent:      opts.Parent,
		comments:    deps.Comments,
		attachments: deps.Attachments,
		messages:    deps.Messages,
		emitter:     deps.Emitter,
		now:         time.Now,
	}
	c.owner.ProjectID = opts.ProjectID
	c.logger = deps.Logger.With(zap.String("composer_id", c.id))
	c.lastActive = c.now()
	c.tracker = newTracker(c.status, deps.PollInterval, deps.UploadPoll, c.emit, c.message, c.logger)
	return c
}

func (c *Composer) ID() string { return c.id }

// Owner returns the session the composer was created for.
func (c *Composer) Owner() session.Context { return c.owner }

func (c *Composer) SetParent(p Reloader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parent = p
}

func (c *Composer) SetSubjectID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.subjectID = strings.TrimSpace(id)
}

// Subject returns the subject type and id the composer is bound to.
func (c *Composer) Subject() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subjectType, c.subjectID
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.text = text
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// HandleUpload feeds one transport event to the tracker.
func (c *Composer) HandleUpload(ev UploadEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.tracker.Handle(ev)
}

// RemoveAttachment removes an attachment row and forgets its file.
func (c *Composer) RemoveAttachment(rowID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	item, ok := c.status.Get(rowID)
	if !ok || item.Kind == KindProgress {
		return ErrRowNotFound
	}
	c.status.Remove(rowID)
	if item.Kind == KindAttachment {
		c.tracker.Drop(item.FileName)
	}
	return nil
}

// Snapshot returns the current state, with captions in locale.
func (c *Composer) Snapshot(locale language.Tag) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.tracker.PendingNames()
	sort.Strings(pending)
	return Snapshot{
		ID:             c.id,
		ProjectID:      c.projectID,
		SubjectType:    c.subjectType,
		SubjectID:      c.subjectID,
		ExtraTypeID:    c.extraTypeID,
		Text:           c.text,
		Prompt:         c.messageIn(locale, i18n.NoteInputPrompt),
		SendCaption:    c.messageIn(locale, i18n.ButtonSend),
		Status:         c.status.Items(),
		Pending:        pending,
		InFlight:       c.tracker.InFlight(),
		PollIntervalMS: c.tracker.PollInterval().Milliseconds(),
	}
}

// Submit stores the text as a comment, pushes pending attachments under the
// comment's path, resets the composer and reloads the parent view. Only a
// failed comment save is returned; the composer is left untouched then.
func (c *Composer) Submit(ctx context.Context, sess session.Context) (*SubmitResult, error) {
	c.mu.Lock()
	c.touch()

	if c.subjectID == "" {
		c.mu.Unlock()
		return nil, ErrSubjectNotSet
	}
	sess.ProjectID = c.projectID

	cm := &comment.Comment{
		Comment:     c.text,
		CreatedTime: c.now(),
		CreatedUser: sess.Username,
		SAccountID:  sess.AccountID,
		Type:        c.subjectType,
		TypeID:      c.subjectID,
		ExtraTypeID: c.extraTypeID,
	}
	id, err := c.comments.SaveWithSession(ctx, cm, sess.Username)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("save comment: %w", err)
	}

	res := &SubmitResult{
		CommentID:      id,
		AttachmentPath: attachment.CommentAttachmentPath(c.subjectType, sess.AccountID, c.projectID, c.subjectID, id),
	}

	pending := c.tracker.TakePending()
	switch {
	case len(pending) == 0:
	case res.AttachmentPath == "":
		c.logger.Warn("no attachment path for subject type, attachments skipped",
			zap.String("type", c.subjectType),
			zap.Int("count", len(pending)))
	default:
		res.Attachments = c.attachments.Persist(ctx, sess, res.AttachmentPath, pending)
		if n := len(res.Attachments.Failed) + len(res.Attachments.Skipped); n > 0 {
			c.logger.Error("comment saved but some attachments were not stored",
				zap.Int64("comment_id", id),
				zap.Strings("failed", res.Attachments.Failed),
				zap.Strings("skipped", res.Attachments.Skipped))
		}
	}
	for _, p := range pending {
		removeTemp(c.logger, p)
	}

	c.text = ""
	c.status.Clear()
	c.emit(EventStatusCleared, nil)
	parent := c.parent
	c.mu.Unlock()

	if err := parent.Reload(ctx); err != nil {
		c.logger.Error("parent reload failed", zap.Error(err))
	}

	c.logger.Info("comment submitted",
		zap.Int64("comment_id", id),
		zap.String("type", cm.Type),
		zap.String("type_id", cm.TypeID),
		zap.Int("attachments", len(res.Attachments.Saved)))
	return res, nil
}

// Discard deletes every pending temp file. The composer must not be used
// afterwards.
func (c *Composer) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.tracker.TakePending() {
		removeTemp(c.logger, p)
	}
	c.status.Clear()
}

// IdleSince reports when the composer last handled a call.
func (c *Composer) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Composer) touch() {
	c.lastActive = c.now()
}

func (c *Composer) emit(typ string, payload interface{}) {
	c.emitter.Emit(c.id, &Event{Type: typ, ComposerID: c.id, Payload: payload})
}

func (c *Composer) message(key i18n.Key, args ...interface{}) string {
	return c.messageIn(c.owner.Locale, key, args...)
}

func (c *Composer) messageIn(tag language.Tag, key i18n.Key, args ...interface{}) string {
	if c.messages == nil {
		return string(key)
	}
	return c.messages.Message(tag, key, args...)
}
