// SPDX-License-Identifier: MIT

package trickplay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/strmforge/mediapack/internal/media"
)

// HLSPlaylist renders the image-playlist for one tile set. Tile URLs carry
// the media source and API key so players can fetch them without a session
// cookie; the media source id is emitted without dashes.
func HLSPlaylist(info media.TrickplayInfo, mediaSourceID, apiKey string) string {
	perTile := info.TileWidth * info.TileHeight
	tileCount := ceilDiv(info.ThumbnailCount, perTile)
	intervalS := float64(info.Interval) / 1000
	query := fmt.Sprintf("?MediaSourceId=%s&ApiKey=%s", strings.ReplaceAll(mediaSourceID, "-", ""), apiKey)

	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	fmt.Fprintf(&sb, "#EXT-X-TARGETDURATION:%d\n", tileCount)
	sb.WriteString("#EXT-X-VERSION:7\n")
	sb.WriteString("#EXT-X-MEDIA-SEQUENCE:1\n")
	sb.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")
	sb.WriteString("#EXT-X-IMAGES-ONLY\n")

	for k := 0; k < tileCount; k++ {
		thumbs := perTile
		if k == tileCount-1 {
			thumbs = info.ThumbnailCount - k*perTile
		}
		fmt.Fprintf(&sb, "#EXTINF:%s,\n", formatSeconds(float64(thumbs)*intervalS))
		fmt.Fprintf(&sb, "#EXT-X-TILES:RESOLUTION=%dx%d,LAYOUT=%dx%d,DURATION=%s\n",
			info.Width, info.Height, info.TileWidth, info.TileHeight, formatSeconds(intervalS))
		fmt.Fprintf(&sb, "%d.jpg%s\n", k, query)
	}

	sb.WriteString("#EXT-X-ENDLIST\n")
	return sb.String()
}

// formatSeconds renders a duration without a trailing zero fraction.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
