package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"prodflow/internal/review"
)

// shellOpener is the default [review.Opener]: view prints the file, diff
// shells out to git, edit launches $EDITOR attached to the terminal.
type shellOpener struct {
	out io.Writer
	dir string
}

func (o *shellOpener) OpenPath(mode review.Mode, path string) error {
	switch mode {
	case review.ModeView:
		f, err := os.Open(filepath.Join(o.dir, path))
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		_, err = io.Copy(o.out, f)
		return err

	case review.ModeDiff:
		cmd := exec.Command("git", "diff", "--", path)
		cmd.Dir = o.dir
		cmd.Stdout = o.out
		cmd.Stderr = o.out
		return cmd.Run()

	case review.ModeEdit:
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		cmd := exec.Command(editor, path)
		cmd.Dir = o.dir
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()

	default:
		return fmt.Errorf("unsupported open mode %q", mode)
	}
}
