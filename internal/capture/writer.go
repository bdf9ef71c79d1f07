package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"recast/internal/logging"
)

// FrameWriter consumes raw BGR24 frames. Close finalizes the output;
// it must be safe to call exactly once after the last WriteFrame.
type FrameWriter interface {
	WriteFrame(frame []byte) error
	Close() error
}

// WriterSettings describes the encoded video stream.
type WriterSettings struct {
	Width      int
	Height     int
	FPS        float64
	Codec      string
	Quality    int
	OutputPath string
}

// Codec FourCC identifiers accepted by the writer.
const (
	CodecXVID = "XVID"
	CodecMJPG = "MJPG"
	CodecMP4V = "mp4v"
	CodecH264 = "H264"
	CodecVP8  = "VP80"
	CodecVP9  = "VP90"
)

// closeWait bounds how long Close waits for the encoder to drain.
const closeWait = 30 * time.Second

type ffmpegWriter struct {
	logger *slog.Logger
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// NewFFmpegWriter starts an ffmpeg process that encodes raw frames
// written to its stdin.
func NewFFmpegWriter(logger *slog.Logger, binary string, s WriterSettings) (FrameWriter, error) {
	args, err := buildWriterArgs(s)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(binary, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, captureErr("create encoder pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, captureErr("start encoder", err)
	}

	w := &ffmpegWriter{
		logger: logging.NewComponentLogger(logger, "capture"),
		cmd:    cmd,
		stdin:  stdin,
	}
	w.logger.Debug("video encoder started",
		logging.String("codec", s.Codec),
		logging.Path(s.OutputPath))
	return w, nil
}

func (w *ffmpegWriter) WriteFrame(frame []byte) error {
	if w.closed {
		return captureErr("write frame", errors.New("writer closed"))
	}
	if _, err := w.stdin.Write(frame); err != nil {
		return captureErr("write frame", err)
	}
	return nil
}

// Close signals end of stream and waits for the encoder to flush the
// container. A stuck encoder is killed after the drain deadline.
func (w *ffmpegWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.stdin.Close(); err != nil {
		w.logger.Warn("failed to close encoder pipe", logging.Error(err))
	}

	done := make(chan error, 1)
	go func() { done <- w.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return captureErr("finalize video", err)
		}
		return nil
	case <-time.After(closeWait):
		if err := w.cmd.Process.Kill(); err != nil {
			w.logger.Warn("failed to kill encoder", logging.Error(err))
		}
		<-done
		return captureErr("finalize video", errors.New("encoder did not drain in time"))
	}
}

// buildWriterArgs assembles the full ffmpeg invocation for encoding a
// raw BGR24 stream from stdin.
func buildWriterArgs(s WriterSettings) ([]string, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, configErr("configure encoder", fmt.Errorf("invalid frame size %dx%d", s.Width, s.Height))
	}
	if s.FPS <= 0 {
		return nil, configErr("configure encoder", fmt.Errorf("invalid frame rate %g", s.FPS))
	}
	if s.OutputPath == "" {
		return nil, configErr("configure encoder", errors.New("output path is required"))
	}
	enc, err := encoderArgs(s.Codec, s.Quality)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-r", formatFPS(s.FPS),
		"-i", "-",
	}
	args = append(args, enc...)
	args = append(args, "-pix_fmt", "yuv420p", s.OutputPath)
	return args, nil
}

// encoderArgs maps a codec FourCC and a 1-100 quality value to encoder
// flags. Higher quality always means better output regardless of the
// encoder's native scale direction.
func encoderArgs(codec string, quality int) ([]string, error) {
	if quality < 1 || quality > 100 {
		return nil, configErr("configure encoder", fmt.Errorf("quality %d out of range [1,100]", quality))
	}
	switch codec {
	case CodecXVID:
		return []string{"-c:v", "libxvid", "-qscale:v", fmt.Sprintf("%d", qualityToQScale(quality))}, nil
	case CodecMJPG:
		return []string{"-c:v", "mjpeg", "-qscale:v", fmt.Sprintf("%d", qualityToQScale(quality))}, nil
	case CodecMP4V:
		return []string{"-c:v", "mpeg4", "-qscale:v", fmt.Sprintf("%d", qualityToQScale(quality))}, nil
	case CodecH264:
		return []string{"-c:v", "libx264", "-preset", "veryfast", "-crf", fmt.Sprintf("%d", qualityToCRF(quality))}, nil
	case CodecVP8:
		return []string{"-c:v", "libvpx", "-crf", fmt.Sprintf("%d", qualityToCRF(quality)), "-b:v", "2M"}, nil
	case CodecVP9:
		return []string{"-c:v", "libvpx-vp9", "-crf", fmt.Sprintf("%d", qualityToCRF(quality)), "-b:v", "0"}, nil
	default:
		return nil, configErr("configure encoder", fmt.Errorf("unsupported codec %q", codec))
	}
}

// qualityToQScale maps quality 1-100 onto ffmpeg's 31 (worst) to 2
// (best) quantizer scale.
func qualityToQScale(quality int) int {
	return 2 + (100-quality)*29/100
}

// qualityToCRF maps quality 1-100 onto a CRF between 40 (worst) and 10
// (best); the extremes of the native 0-51 range are not useful for
// screen capture.
func qualityToCRF(quality int) int {
	return 10 + (100-quality)*30/100
}

func formatFPS(fps float64) string {
	s := fmt.Sprintf("%g", fps)
	if !strings.ContainsAny(s, ".e") {
		return s
	}
	return fmt.Sprintf("%.3f", fps)
}
