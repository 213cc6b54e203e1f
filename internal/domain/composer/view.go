package composer

import (
	"context"
	"fmt"

	"projectcomments/internal/domain/comment"
)

// CommentLister reads the comments of a subject.
type CommentLister interface {
	ListBySubject(ctx context.Context, accountID int64, typ, typeID string) ([]*comment.Comment, error)
}

// CommentListView is the comment list a composer sits under. Reload pushes
// the fresh list to the composer's watchers.
type CommentListView struct {
	composer *Composer
	lister   CommentLister
	emitter  Emitter
}

func NewCommentListView(c *Composer, lister CommentLister, emitter Emitter) *CommentListView {
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &CommentListView{composer: c, lister: lister, emitter: emitter}
}

func (v *CommentListView) Reload(ctx context.Context) error {
	typ, typeID := v.composer.Subject()
	items, err := v.lister.ListBySubject(ctx, v.composer.Owner().AccountID, typ, typeID)
	if err != nil {
		return fmt.Errorf("reload comments: %w", err)
	}
	v.emitter.Emit(v.composer.ID(), &Event{
		Type:       EventReload,
		ComposerID: v.composer.ID(),
		Payload:    map[string]interface{}{"items": items, "total": len(items)},
	})
	return nil
}
