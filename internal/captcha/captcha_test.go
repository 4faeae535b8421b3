package captcha

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carrierlookup/internal/testutil"

	"github.com/stretchr/testify/require"
	"github.com/tcnksm/go-input"
)

func TestNewChallenge(t *testing.T) {
	challenge, err := NewChallenge(testutil.CaptchaImage)
	require.NoError(t, err)
	require.Equal(t, "image/gif", challenge.MimeType)
	require.Equal(t, ".gif", challenge.Extension)
	require.True(t, challenge.IsImage())

	_, err = NewChallenge(nil)
	require.ErrorIs(t, err, ErrNoImage)

	html, err := NewChallenge([]byte("<html><body>blocked</body></html>"))
	require.NoError(t, err)
	require.False(t, html.IsImage())
}

func TestStaticSolver(t *testing.T) {
	answer, err := StaticSolver("42").Solve(context.Background(), Challenge{})
	require.NoError(t, err)
	require.Equal(t, "42", answer)
}

func TestPromptSolver(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	solver := PromptSolver{
		Dir:  dir,
		Keep: true,
		UI: &input.UI{
			Writer: out,
			Reader: strings.NewReader(" 17 \n"),
		},
	}

	challenge, err := NewChallenge(testutil.CaptchaImage)
	require.NoError(t, err)

	answer, err := solver.Solve(context.Background(), challenge)
	require.NoError(t, err)
	require.Equal(t, "17", answer)
	require.Contains(t, out.String(), "Captcha image saved to")

	matches, err := filepath.Glob(filepath.Join(dir, "captcha-*.gif"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	saved, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Equal(t, testutil.CaptchaImage, saved)
}

func TestPromptSolverRemovesImage(t *testing.T) {
	dir := t.TempDir()
	solver := PromptSolver{
		Dir: dir,
		UI: &input.UI{
			Writer: &bytes.Buffer{},
			Reader: strings.NewReader("abc\n"),
		},
	}
	challenge, err := NewChallenge(testutil.CaptchaImage)
	require.NoError(t, err)

	_, err = solver.Solve(context.Background(), challenge)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPromptSolverRejectsNonImage(t *testing.T) {
	solver := PromptSolver{Dir: t.TempDir()}
	_, err := solver.Solve(context.Background(), Challenge{
		Image:    []byte("blocked"),
		MimeType: "text/plain; charset=utf-8",
	})
	require.Error(t, err)
}
