package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/videoconf/internal/config"
	"github.com/John-Robertt/videoconf/internal/page"
	"github.com/John-Robertt/videoconf/internal/scan"
)

const testPage = `<html><body>
<video id="bg-video"></video><select id="video-select"></select>
<script src="videoConfig.js"></script><script src="newtab.js"></script>
</body></html>`

func TestCheck_CleanAfterExecute(t *testing.T) {
	cwd, eff := setup(t, "a.mp4", "b.webm")
	pagePath := filepath.Join(cwd, DefaultPage)
	require.NoError(t, os.WriteFile(pagePath, []byte(testPage), 0o644))

	rr := Execute(context.Background(), eff, Options{}, nil)
	require.False(t, rr.Failed())

	cr, err := Check(context.Background(), eff, pagePath, Options{})
	require.NoError(t, err)
	assert.True(t, cr.OK(), "findings=%v", cr.Findings)
}

func TestCheck_DetectsDrift(t *testing.T) {
	_, eff := setup(t, "a.mp4", "b.webm")
	rr := Execute(context.Background(), eff, Options{}, nil)
	require.False(t, rr.Failed())

	require.NoError(t, os.Remove(filepath.Join(eff.Dir, "a.mp4")))
	require.NoError(t, os.WriteFile(filepath.Join(eff.Dir, "c.ogv"), []byte("x"), 0o644))

	cr, err := Check(context.Background(), eff, "", Options{})
	require.NoError(t, err)
	require.Len(t, cr.Findings, 2)
	assert.Equal(t, page.FindingStaleEntry, cr.Findings[0].Code)
	assert.Equal(t, page.FindingUnlistedFile, cr.Findings[1].Code)
}

func TestCheck_MissingOutputIsFinding(t *testing.T) {
	_, eff := setup(t, "a.mp4")

	cr, err := Check(context.Background(), eff, "", Options{})
	require.NoError(t, err)
	require.Len(t, cr.Findings, 1)
	assert.Equal(t, page.FindingConfigInvalid, cr.Findings[0].Code)
}

func TestCheck_MissingDirIsError(t *testing.T) {
	eff := config.Default(t.TempDir())

	_, err := Check(context.Background(), eff, "", Options{})
	require.Error(t, err)
	assert.True(t, scan.IsMissingDir(err))
}

func TestCheck_MissingPageIsError(t *testing.T) {
	cwd, eff := setup(t, "a.mp4")

	_, err := Check(context.Background(), eff, filepath.Join(cwd, "nope.html"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
