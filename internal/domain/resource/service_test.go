package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectcomments/internal/database"
)

func setupTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dsn := fmt.Sprintf("file:resource_test_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, &Resource{}))

	dir := t.TempDir()
	return NewService(NewRepository(db), dir, nil), dir
}

func TestSaveContentWritesFileAndRecord(t *testing.T) {
	svc, dir := setupTestService(t)
	ctx := context.Background()
	body := []byte("%PDF-1.4 minimal")

	res, err := svc.SaveContent(ctx, Content{Path: "1/project/5/task/12/comment-3/plan.pdf", Name: "plan.pdf"}, "hai", bytes.NewReader(body), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), res.Size)
	assert.Equal(t, "application/pdf", res.MimeType)
	assert.Len(t, res.Checksum, 64)

	onDisk, err := os.ReadFile(filepath.Join(dir, "1", "1", "project", "5", "task", "12", "comment-3", "plan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, body, onDisk)
}

func TestSaveContentOverwritesSamePath(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	content := Content{Path: "a/b/note.txt", Name: "note.txt"}

	first, err := svc.SaveContent(ctx, content, "hai", strings.NewReader("v1"), 1)
	require.NoError(t, err)
	second, err := svc.SaveContent(ctx, content, "hai", strings.NewReader("version two"), 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	items, err := svc.List(ctx, 1, "a/b")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(len("version two")), items[0].Size)

	_, f, err := svc.Open(ctx, 1, "a/b/note.txt")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "version two", string(data))
}

func TestSaveContentRejectsEscapingPath(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.SaveContent(context.Background(), Content{Path: "../etc/passwd", Name: "passwd"}, "hai", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestSaveContentRejectsEmptyName(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.SaveContent(context.Background(), Content{Path: "a/b"}, "hai", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestListIsScopedByAccountAndPrefix(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for _, p := range []string{"p/1/a.txt", "p/1/b.txt", "p/10/c.txt"} {
		_, err := svc.SaveContent(ctx, Content{Path: p, Name: filepath.Base(p)}, "hai", strings.NewReader("x"), 1)
		require.NoError(t, err)
	}
	_, err := svc.SaveContent(ctx, Content{Path: "p/1/z.txt", Name: "z.txt"}, "lan", strings.NewReader("x"), 2)
	require.NoError(t, err)

	items, err := svc.List(ctx, 1, "p/1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p/1/a.txt", items[0].Path)
	assert.Equal(t, "p/1/b.txt", items[1].Path)
}

func TestOpenMissing(t *testing.T) {
	svc, _ := setupTestService(t)

	_, _, err := svc.Open(context.Background(), 1, "nope/x.txt")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}
