package attachment

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectcomments/internal/domain/resource"
	"projectcomments/internal/session"
)

type savedContent struct {
	content   resource.Content
	user      string
	accountID int64
	data      []byte
}

type fakeSaver struct {
	saved  []savedContent
	failOn string
}

func (f *fakeSaver) SaveContent(ctx context.Context, content resource.Content, createdUser string, r io.Reader, accountID int64) (*resource.Resource, error) {
	if content.Name == f.failOn {
		return nil, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.saved = append(f.saved, savedContent{content: content, user: createdUser, accountID: accountID, data: data})
	return &resource.Resource{Path: content.Path, Name: content.Name, Size: int64(len(data))}, nil
}

var testSession = session.Context{Username: "hai", AccountID: 1, ProjectID: 5}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestPersistEmptyPendingDoesNotTouchStorage(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, DefaultBounds, nil)

	report := p.Persist(context.Background(), testSession, "1/project/5/task/12/comment/9", nil)
	assert.Empty(t, saver.saved)
	assert.Empty(t, report.Saved)
}

func TestPersistNonImageIsByteIdentical(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, DefaultBounds, nil)
	body := []byte("%PDF-1.7\n binary \x00\x01\x02 tail")

	report := p.Persist(context.Background(), testSession, "1/project/5/task/12/comment/9", map[string]string{
		"attachment-1.pdf": writeTemp(t, "upload.pdf", body),
	})

	require.Len(t, saver.saved, 1)
	assert.Equal(t, body, saver.saved[0].data)
	assert.Equal(t, "1/project/5/task/12/comment/9/attachment-1.pdf", saver.saved[0].content.Path)
	assert.Equal(t, "hai", saver.saved[0].user)
	assert.Equal(t, int64(1), saver.saved[0].accountID)
	assert.Equal(t, []string{"attachment-1.pdf"}, report.Saved)
}

func TestPersistDownscalesImages(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, DefaultBounds, nil)

	report := p.Persist(context.Background(), testSession, "1/project/5/bug/3/comment/4", map[string]string{
		"attachment-2.PNG": writeTemp(t, "big.png", encodePNG(t, 1200, 600)),
	})

	require.Len(t, saver.saved, 1)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(saver.saved[0].data))
	require.NoError(t, err)
	assert.Equal(t, 974, cfg.Width)
	assert.Equal(t, 487, cfg.Height)
	assert.Equal(t, []string{"attachment-2.PNG"}, report.Scaled)
}

func TestPersistCorruptImageFallsBackToOriginal(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, DefaultBounds, nil)
	garbage := []byte("this is not really a jpeg")

	report := p.Persist(context.Background(), testSession, "a", map[string]string{
		"attachment-3.jpg": writeTemp(t, "broken.jpg", garbage),
	})

	require.Len(t, saver.saved, 1)
	assert.Equal(t, garbage, saver.saved[0].data)
	assert.Equal(t, []string{"attachment-3.jpg"}, report.Fallback)
	assert.Equal(t, []string{"attachment-3.jpg"}, report.Saved)
}

func TestPersistSkipsMissingFileAndContinues(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, DefaultBounds, nil)

	report := p.Persist(context.Background(), testSession, "a", map[string]string{
		"attachment-4.txt": filepath.Join(t.TempDir(), "gone.txt"),
		"attachment-5.txt": writeTemp(t, "here.txt", []byte("hello")),
	})

	assert.Equal(t, []string{"attachment-4.txt"}, report.Skipped)
	assert.Equal(t, []string{"attachment-5.txt"}, report.Saved)
	require.Len(t, saver.saved, 1)
}

func TestPersistStorageFailureIsReported(t *testing.T) {
	saver := &fakeSaver{failOn: "attachment-6.txt"}
	p := NewPersister(saver, DefaultBounds, nil)

	report := p.Persist(context.Background(), testSession, "a", map[string]string{
		"attachment-6.txt": writeTemp(t, "a.txt", []byte("a")),
		"attachment-7.txt": writeTemp(t, "b.txt", []byte("b")),
	})

	assert.Equal(t, []string{"attachment-6.txt"}, report.Failed)
	assert.Equal(t, []string{"attachment-7.txt"}, report.Saved)
}
