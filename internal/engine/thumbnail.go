package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const ffmpegTimeout = 2 * time.Minute

// FFThumbnailer extracts a single poster frame per media item. It reuses
// the process-group timeout trick a media server needs for the same
// reason: exec.CommandContext alone can leave ffmpeg's child processes
// running after the context is cancelled because Wait() blocks on pipe
// drain.
type FFThumbnailer struct {
	ffmpegPath string
	outputDir  string
}

func NewFFThumbnailer(ffmpegPath, outputDir string) *FFThumbnailer {
	return &FFThumbnailer{ffmpegPath: ffmpegPath, outputDir: outputDir}
}

func (g *FFThumbnailer) GenerateThumbnail(ctx context.Context, mediaID uuid.UUID, sourcePath string, duration time.Duration) (string, error) {
	outDir := filepath.Join(g.outputDir, mediaID.String())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("thumbnail: mkdir: %w", err)
	}
	outPath := filepath.Join(outDir, "thumbnail.jpg")

	seek := duration.Seconds() * 0.1
	if seek < 1 {
		seek = 1
	}

	cmd := exec.Command(g.ffmpegPath,
		"-ss", fmt.Sprintf("%.2f", seek),
		"-i", sourcePath,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		outPath,
	)
	if out, err := runWithTimeout(cmd, ffmpegTimeout); err != nil {
		return "", fmt.Errorf("thumbnail: %w: %s", err, out)
	}
	return outPath, nil
}

// runWithTimeout starts cmd in its own process group and kills the whole
// group if it overruns timeout, rather than relying on context
// cancellation to reach the grandchild process ffmpeg sometimes spawns.
func runWithTimeout(cmd *exec.Cmd, timeout time.Duration) ([]byte, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return buf.Bytes(), err
	case <-time.After(timeout):
		if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			_ = cmd.Process.Kill()
		}
		<-done
		return buf.Bytes(), fmt.Errorf("timed out after %v", timeout)
	}
}
