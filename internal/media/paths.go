// SPDX-License-Identifier: MIT

package media

import "path/filepath"

// PathManager resolves the two candidate artifact roots of a video: one
// beside the media file and one inside the server data directory.
type PathManager struct {
	DataDir string
}

// TrickplayDir returns the artifact root for the video. saveWithMedia
// selects the root in the media tree, otherwise artifacts live under the
// server data directory keyed by item ID.
func (p PathManager) TrickplayDir(video VideoRef, saveWithMedia bool) string {
	if saveWithMedia && video.Path != "" {
		return filepath.Join(filepath.Dir(video.Path), ".trickplay")
	}
	return filepath.Join(p.DataDir, "trickplay", video.ID)
}

// IFrameDir returns the I-frame artifact directory under the given root.
func IFrameDir(root string) string {
	return filepath.Join(root, "iframe")
}
