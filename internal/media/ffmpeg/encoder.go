// SPDX-License-Identifier: MIT

// Package ffmpeg implements the media.Encoder contract by spawning ffmpeg.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	xglog "github.com/strmforge/mediapack/internal/log"
	"github.com/strmforge/mediapack/internal/media"
)

// Encoder spawns ffmpeg to extract thumbnails and generate I-frame HLS
// artifacts. Thumbnail extractions run one at a time under the trickplay
// generation lock upstream; I-frame HLS generation is not under that lock.
type Encoder struct {
	// Binary is the ffmpeg executable, default "ffmpeg".
	Binary string
	// ScratchRoot hosts per-invocation scratch directories, default os.TempDir.
	ScratchRoot string
}

// New resolves the ffmpeg binary on PATH.
func New(binary, scratchRoot string) *Encoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	if resolved, err := exec.LookPath(binary); err == nil {
		binary = resolved
	}
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Encoder{Binary: binary, ScratchRoot: scratchRoot}
}

// ExtractThumbs produces interval-spaced JPEG thumbnails into a fresh
// scratch directory, named 00001.jpg onward in chronological order.
func (e *Encoder) ExtractThumbs(ctx context.Context, video media.VideoRef, opts media.ExtractOptions) (string, error) {
	scratch, err := e.newScratch("thumbs")
	if err != nil {
		return "", err
	}

	intervalS := float64(opts.Interval) / 1000

	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}
	args = append(args, opts.HwAccel...)
	if opts.IFramesOnly {
		// decoding only keyframes is drastically cheaper on long sources
		args = append(args, "-skip_frame", "nokey")
	}
	args = append(args, "-i", video.Path)
	args = append(args,
		"-an", "-sn",
		"-map", fmt.Sprintf("0:v:%d", video.VideoStream),
		"-vf", vfChain(fmt.Sprintf("fps=1/%g", intervalS), spatialCrop(video.Spatial), fmt.Sprintf("scale=%d:-2", opts.Width)),
		"-qscale:v", strconv.Itoa(opts.Qscale),
		"-vsync", "vfr",
	)
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	args = append(args, filepath.Join(scratch, "%05d.jpg"))

	if err := e.run(ctx, scratch, args); err != nil {
		return "", err
	}
	return scratch, nil
}

// GenerateIFrameHLS produces iframe.m3u8, init.mp4 and *.m4s segments at
// the target height into a fresh scratch directory.
func (e *Encoder) GenerateIFrameHLS(ctx context.Context, video media.VideoRef, targetHeight int, opts media.ExtractOptions) (string, error) {
	scratch, err := e.newScratch("iframe")
	if err != nil {
		return "", err
	}

	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}
	args = append(args, opts.HwAccel...)
	args = append(args,
		"-skip_frame", "nokey",
		"-i", video.Path,
		"-an", "-sn",
		"-map", fmt.Sprintf("0:v:%d", video.VideoStream),
		"-vf", vfChain(spatialCrop(video.Spatial), fmt.Sprintf("scale=-2:%d", targetHeight)),
		"-c:v", "libx264",
		"-g", "1", "-keyint_min", "1",
		"-vsync", "vfr",
	)
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	args = append(args,
		"-f", "hls",
		"-hls_segment_type", "fmp4",
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_fmp4_init_filename", "init.mp4",
		"-hls_segment_filename", filepath.Join(scratch, "%d.m4s"),
		filepath.Join(scratch, "iframe.m3u8"),
	)

	if err := e.run(ctx, scratch, args); err != nil {
		return "", err
	}
	return scratch, nil
}

func (e *Encoder) newScratch(kind string) (string, error) {
	dir := filepath.Join(e.ScratchRoot, "mediapack-"+kind+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// run executes ffmpeg, removing the scratch directory on failure or
// cancellation so callers never see partial output.
func (e *Encoder) run(ctx context.Context, scratch string, args []string) error {
	logger := xglog.WithComponentFromContext(ctx, "ffmpeg")
	logger.Debug().Str("cmd", e.Binary+" "+strings.Join(args, " ")).Msg("spawning encoder")

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(scratch)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
	}
	return nil
}

// vfChain joins filter stages, dropping empty ones.
func vfChain(stages ...string) string {
	var parts []string
	for _, s := range stages {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}

// spatialCrop returns a filter that keeps a single eye of a packed stereo
// source so thumbnails do not show both views.
func spatialCrop(f media.SpatialFormat) string {
	switch f {
	case media.SpatialHalfSbs, media.SpatialFullSbs, media.SpatialMvc,
		media.SpatialStereo180Sbs, media.SpatialStereo360Sbs:
		return "crop=iw/2:ih:0:0"
	case media.SpatialHalfOu, media.SpatialFullOu,
		media.SpatialStereo180Ou, media.SpatialStereo360Ou:
		return "crop=iw:ih/2:0:0"
	default:
		return ""
	}
}
