package scan

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/videoconf/internal/domain"
)

var defaultExts = []string{".mp4", ".webm", ".ogv"}

func TestScanVideos_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.mp4", "b.webm", "c.ogv", "d.mkv", "e.txt", "noext", "clip.mp4.txt"} {
		touch(t, filepath.Join(dir, n))
	}

	got, err := ScanVideos(dir, Options{Exts: defaultExts, Sort: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4", "b.webm", "c.ogv"}, domain.Names(got))
}

func TestScanVideos_ExtCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "CLIP.MP4"))
	touch(t, filepath.Join(dir, "Intro.WebM"))

	got, err := ScanVideos(dir, Options{Exts: defaultExts, Sort: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// 原始大小写保留；Ext 统一为小写。
	assert.Equal(t, "CLIP.MP4", got[0].Name)
	assert.Equal(t, ".mp4", got[0].Ext)
	assert.Equal(t, "Intro.WebM", got[1].Name)
	assert.Equal(t, ".webm", got[1].Ext)
}

func TestScanVideos_NotRecursive(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "top.mp4"))
	touch(t, filepath.Join(dir, "nested", "deep.mp4"))
	// 名字像视频的目录也不算。
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.mp4"), 0o755))

	got, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.NoError(t, err)
	assert.Equal(t, []string{"top.mp4"}, domain.Names(got))
}

func TestScanVideos_FollowsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink 需要额外权限")
	}
	dir := t.TempDir()
	other := t.TempDir()
	touch(t, filepath.Join(other, "real.mp4"))
	require.NoError(t, os.Mkdir(filepath.Join(other, "sub"), 0o755))

	require.NoError(t, os.Symlink(filepath.Join(other, "real.mp4"), filepath.Join(dir, "link.mp4")))
	// 指向目录、悬空的链接都不算。
	require.NoError(t, os.Symlink(filepath.Join(other, "sub"), filepath.Join(dir, "dirlink.mp4")))
	require.NoError(t, os.Symlink(filepath.Join(other, "gone.mp4"), filepath.Join(dir, "dangling.mp4")))

	got, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.NoError(t, err)
	assert.Equal(t, []string{"link.mp4"}, domain.Names(got))
}

func TestScanVideos_EmptyDirIsNotError(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "readme.txt"))

	got, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScanVideos_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")

	_, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.Error(t, err)
	assert.True(t, IsMissingDir(err), "err=%T %v", err, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestScanVideos_PathIsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "videos")
	touch(t, dir)

	_, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.Error(t, err)
	assert.True(t, IsMissingDir(err), "err=%T %v", err, err)
}

func TestScanVideos_Exclude(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "sample-1.mp4"))
	touch(t, filepath.Join(dir, "keep.mp4"))
	touch(t, filepath.Join(dir, ".hidden.webm"))

	got, err := ScanVideos(dir, Options{Exts: defaultExts, Exclude: []string{"sample-*", ".*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.mp4"}, domain.Names(got))

	_, err = ScanVideos(dir, Options{Exts: defaultExts, Exclude: []string{"[oops"}})
	assert.Error(t, err)
}

func TestScanVideos_PreservesEnumerationOrder(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		touch(t, filepath.Join(dir, n))
	}

	// 伪造一个“逆序”枚举的目录：未开启 Sort 时结果必须跟随枚举顺序。
	old := openDir
	openDir = func(d string) (dirReader, error) {
		entries, err := os.ReadDir(d)
		if err != nil {
			return nil, err
		}
		slices.Reverse(entries)
		return &fakeDir{entries: entries}, nil
	}
	defer func() { openDir = old }()

	got, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.mp4", "b.mp4", "a.mp4"}, domain.Names(got))

	got, err = ScanVideos(dir, Options{Exts: defaultExts, Sort: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4", "b.mp4", "c.mp4"}, domain.Names(got))
}

func TestScanVideos_ReadDirFailure(t *testing.T) {
	dir := t.TempDir()

	old := openDir
	openDir = func(string) (dirReader, error) {
		return &fakeDir{err: os.ErrPermission}, nil
	}
	defer func() { openDir = old }()

	_, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.Error(t, err)
	assert.False(t, IsMissingDir(err))
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestScanVideos_RecordsSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("12345"), 0o644))

	got, err := ScanVideos(dir, Options{Exts: defaultExts})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].Size)
	assert.NotZero(t, got[0].ModUnix)
}

func TestScanVideos_SkipsInvalidUTF8Names(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "ok.mp4"))
	if err := os.WriteFile(filepath.Join(dir, "clip\xff.mp4"), []byte("x"), 0o644); err != nil {
		t.Skipf("文件系统不接受非 UTF-8 文件名：%v", err)
	}

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	got, err := ScanVideos(dir, Options{Exts: defaultExts, Logger: log})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.mp4"}, domain.Names(got))
	assert.Contains(t, logs.String(), "跳过非 UTF-8 文件名")
}

type fakeDir struct {
	entries []fs.DirEntry
	err     error
}

func (f *fakeDir) ReadDir(int) ([]fs.DirEntry, error) { return f.entries, f.err }
func (f *fakeDir) Close() error                       { return nil }

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}
