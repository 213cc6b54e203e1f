package composer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"projectcomments/internal/domain/attachment"
	"projectcomments/internal/domain/comment"
	"projectcomments/internal/i18n"
	"projectcomments/internal/session"
)

const (
	testPoll       = -time.Millisecond
	testUploadPoll = 500 * time.Millisecond
)

var alice = session.Context{UserID: 1, Username: "alice", AccountID: 7, Locale: language.English}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*Event
}

func (r *recordingEmitter) Emit(_ string, ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) ofType(typ string) []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fakeComments struct {
	saved  []*comment.Comment
	nextID int64
	err    error
}

func (f *fakeComments) SaveWithSession(_ context.Context, c *comment.Comment, _ string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	c.ID = f.nextID + 41
	f.saved = append(f.saved, c)
	return c.ID, nil
}

func (f *fakeComments) ListBySubject(_ context.Context, accountID int64, typ, typeID string) ([]*comment.Comment, error) {
	var out []*comment.Comment
	for _, c := range f.saved {
		if c.SAccountID == accountID && c.Type == typ && c.TypeID == typeID {
			out = append(out, c)
		}
	}
	return out, nil
}

type persistCall struct {
	sess    session.Context
	path    string
	pending map[string]string
}

type fakePersister struct {
	calls []persistCall
}

func (f *fakePersister) Persist(_ context.Context, sess session.Context, path string, pending map[string]string) attachment.Report {
	cp := make(map[string]string, len(pending))
	var report attachment.Report
	for k, v := range pending {
		cp[k] = v
		report.Saved = append(report.Saved, k)
	}
	f.calls = append(f.calls, persistCall{sess: sess, path: path, pending: cp})
	return report
}

type countingReloader struct {
	calls int
	err   error
}

func (r *countingReloader) Reload(context.Context) error {
	r.calls++
	return r.err
}

var errBoom = errors.New("boom")

func testBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.NewBundle("en")
	require.NoError(t, err)
	return b
}

type fixture struct {
	comments  *fakeComments
	persister *fakePersister
	emitter   *recordingEmitter
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		comments:  &fakeComments{},
		persister: &fakePersister{},
		emitter:   &recordingEmitter{},
	}
	f.deps = Deps{
		Comments:     f.comments,
		Attachments:  f.persister,
		Messages:     testBundle(t),
		Emitter:      f.emitter,
		Logger:       zap.NewNop(),
		PollInterval: testPoll,
		UploadPoll:   testUploadPoll,
	}
	return f
}

func tempFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

// upload queues and finishes one file on c.
func upload(c *Composer, name, tempPath string) {
	c.HandleUpload(FilesQueued{Files: []FileDetail{{FileName: name}}})
	c.HandleUpload(StreamFinished{FileName: name, TempPath: tempPath})
}
