// Package captcha answers the human-verification image served before every
// lookup.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tcnksm/go-input"
)

var ErrNoImage = errors.New("captcha image is empty")

type Challenge struct {
	Image    []byte
	MimeType string
	// file extension matching MimeType including the leading dot, ex. ".png"
	Extension string
}

// NewChallenge sniffs the image format of a captcha response body.
func NewChallenge(image []byte) (Challenge, error) {
	if len(image) == 0 {
		return Challenge{}, ErrNoImage
	}
	mime := mimetype.Detect(image)
	return Challenge{
		Image:     image,
		MimeType:  mime.String(),
		Extension: mime.Extension(),
	}, nil
}

func (c Challenge) IsImage() bool {
	return strings.HasPrefix(c.MimeType, "image/")
}

type Solver interface {
	Solve(ctx context.Context, challenge Challenge) (string, error)
}

// StaticSolver always answers with the same string.
type StaticSolver string

func (s StaticSolver) Solve(context.Context, Challenge) (string, error) {
	return string(s), nil
}

// PromptSolver saves the image to disk and asks the user to type what it shows.
type PromptSolver struct {
	// directory the image is written to, defaults to os.TempDir()
	Dir string
	// keep the image file after an answer was given
	Keep bool
	UI   *input.UI
}

// Save writes the challenge image into dir and returns its path.
func Save(dir string, challenge Challenge) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "captcha-*"+challenge.Extension)
	if err != nil {
		return "", err
	}
	defer f.Close()
	_, err = f.Write(challenge.Image)
	if err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (p PromptSolver) Solve(ctx context.Context, challenge Challenge) (string, error) {
	if !challenge.IsImage() {
		return "", fmt.Errorf("captcha is not an image: %s", challenge.MimeType)
	}

	path, err := Save(p.Dir, challenge)
	if err != nil {
		return "", fmt.Errorf("save captcha: %w", err)
	}
	if !p.Keep {
		defer os.Remove(path)
	}

	ui := p.UI
	if ui == nil {
		ui = input.DefaultUI()
	}
	fmt.Fprintf(ui.Writer, "Captcha image saved to %s\n", path)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer, err := ui.Ask("Captcha response?", &input.Options{
		Required:  true,
		Loop:      true,
		HideOrder: true,
	})
	if err != nil {
		return "", fmt.Errorf("read captcha response: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
