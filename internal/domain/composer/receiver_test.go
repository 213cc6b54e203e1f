package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type recordingSink struct {
	events []UploadEvent
}

func (s *recordingSink) HandleUpload(ev UploadEvent) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) count() (queued, finished, failed int) {
	for _, ev := range s.events {
		switch e := ev.(type) {
		case FilesQueued:
			queued += len(e.Files)
		case StreamFinished:
			finished++
		case StreamFailed:
			failed++
		}
	}
	return
}

type part struct {
	name string
	body string
}

func multipartBody(t *testing.T, manifest []FileDetail, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if manifest != nil {
		data, err := json.Marshal(manifest)
		require.NoError(t, err)
		require.NoError(t, w.WriteField(ManifestField, string(data)))
	}
	for _, p := range parts {
		fw, err := w.CreateFormFile(FilesField, p.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.Boundary()
}

func receive(t *testing.T, r *Receiver, sink UploadSink, manifest []FileDetail, parts ...part) (ReceiveResult, error) {
	body, boundary := multipartBody(t, manifest, parts...)
	return r.Receive(context.Background(), multipart.NewReader(body, boundary), sink)
}

func TestReceiveWithManifest(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, zap.NewNop())
	sink := &recordingSink{}

	res, err := receive(t, r, sink,
		[]FileDetail{{FileName: "a.txt", ContentLength: 5}, {FileName: "b.txt", ContentLength: 3}},
		part{"a.txt", "hello"}, part{"b.txt", "bye"})
	require.NoError(t, err)
	assert.Equal(t, ReceiveResult{Finished: 2}, res)

	first, ok := sink.events[0].(FilesQueued)
	require.True(t, ok)
	assert.Len(t, first.Files, 2)

	var finished []StreamFinished
	for _, ev := range sink.events {
		if e, ok := ev.(StreamFinished); ok {
			finished = append(finished, e)
		}
		if e, ok := ev.(StreamProgress); ok {
			assert.Positive(t, e.ContentLength)
		}
	}
	require.Len(t, finished, 2)
	data, err := os.ReadFile(finished[0].TempPath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(3), finished[1].BytesReceived)
	assert.True(t, strings.HasSuffix(finished[1].TempPath, ".txt"))
}

func TestReceiveWithoutManifestQueuesEachFile(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, nil)
	sink := &recordingSink{}

	_, err := receive(t, r, sink, nil, part{"a.txt", "a"}, part{"b.txt", "b"})
	require.NoError(t, err)

	queued, finished, failed := sink.count()
	assert.Equal(t, 2, queued)
	assert.Equal(t, 2, finished)
	assert.Zero(t, failed)
}

func TestReceiveTooLargeFailsOnlyThatFile(t *testing.T) {
	dir := t.TempDir()
	r := NewReceiver(dir, 4, nil)
	sink := &recordingSink{}

	res, err := receive(t, r, sink, nil, part{"big.txt", "way too large"}, part{"ok.txt", "ok"})
	require.NoError(t, err)
	assert.Equal(t, ReceiveResult{Finished: 1, Failed: 1}, res)

	var failed StreamFailed
	for _, ev := range sink.events {
		if e, ok := ev.(StreamFailed); ok {
			failed = e
		}
	}
	assert.Equal(t, "big.txt", failed.FileName)
	assert.ErrorIs(t, failed.Err, ErrFileTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReceiveFailsAnnouncedFilesThatNeverArrive(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, nil)
	sink := &recordingSink{}

	res, err := receive(t, r, sink,
		[]FileDetail{{FileName: "a.txt"}, {FileName: "b.txt"}},
		part{"a.txt", "a"})
	require.NoError(t, err)
	assert.Equal(t, ReceiveResult{Finished: 1, Failed: 1}, res)

	queued, finished, failed := sink.count()
	assert.Equal(t, queued, finished+failed)
}

func TestReceiveNoFiles(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, nil)

	_, err := receive(t, r, &recordingSink{}, nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestReceiveRejectsBadManifest(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, nil)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField(ManifestField, "{not json"))
	require.NoError(t, w.Close())

	_, err := r.Receive(context.Background(), multipart.NewReader(&buf, w.Boundary()), &recordingSink{})
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestReceiveTruncatedBodyFailsEveryIndicator(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, nil)
	f := newFixture(t)
	c := newTaskComposer(f, nil)

	body, boundary := multipartBody(t,
		[]FileDetail{{FileName: "a.txt"}, {FileName: "b.txt"}},
		part{"a.txt", strings.Repeat("x", 1000)}, part{"b.txt", "b"})
	truncated := bytes.NewReader(body.Bytes()[:body.Len()/2])

	_, err := r.Receive(context.Background(), multipart.NewReader(truncated, boundary), c)
	assert.Error(t, err)

	snap := c.Snapshot(language.English)
	assert.Zero(t, snap.InFlight)
	require.Len(t, snap.Status, 2)
	for _, item := range snap.Status {
		assert.Equal(t, KindFailure, item.Kind)
	}
	assert.Equal(t, testPoll.Milliseconds(), snap.PollIntervalMS)
}

func TestReceiveIntoComposer(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, nil)
	f := newFixture(t)
	c := newTaskComposer(f, nil)

	_, err := receive(t, r, c,
		[]FileDetail{{FileName: "a.txt"}, {FileName: "b"}},
		part{"a.txt", "a"}, part{"b", "b"})
	require.NoError(t, err)

	snap := c.Snapshot(language.English)
	assert.Zero(t, snap.InFlight)
	assert.Len(t, snap.Status, 2)
	assert.Len(t, snap.Pending, 2)
	assert.Contains(t, snap.Pending, "b")
}

func TestReceiveSameExtensionFilesAllKept(t *testing.T) {
	r := NewReceiver(t.TempDir(), 1<<20, nil)
	f := newFixture(t)
	c := newTaskComposer(f, nil)

	_, err := receive(t, r, c,
		[]FileDetail{{FileName: "a.png"}, {FileName: "b.png"}, {FileName: "c.png"}},
		part{"a.png", "a"}, part{"b.png", "b"}, part{"c.png", "c"})
	require.NoError(t, err)

	snap := c.Snapshot(language.English)
	assert.Zero(t, snap.InFlight)
	assert.Len(t, snap.Pending, 3)
	require.Len(t, snap.Status, 3)
	for _, item := range snap.Status {
		assert.Equal(t, KindAttachment, item.Kind)
	}
	assert.Empty(t, f.emitter.ofType(EventWarning))
}
