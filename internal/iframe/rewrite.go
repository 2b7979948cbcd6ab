// SPDX-License-Identifier: MIT

package iframe

import (
	"bufio"
	"fmt"
	"strings"
)

// RewritePlaylist appends the media source and API key query to every
// segment URL and to the URI attribute of #EXT-X-MAP so players can fetch
// segments without a session. The rewrite is textual and line-based;
// unknown directives pass through verbatim.
func RewritePlaylist(playlist, mediaSourceID, apiKey string) string {
	query := fmt.Sprintf("?MediaSourceId=%s&ApiKey=%s", mediaSourceID, apiKey)

	var sb strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(playlist))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "#EXT-X-MAP:"):
			sb.WriteString(rewriteMapURI(line, query))
		case line != "" && !strings.HasPrefix(line, "#"):
			sb.WriteString(line + query)
		default:
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// rewriteMapURI appends the query inside the quoted URI attribute.
func rewriteMapURI(line, query string) string {
	const attr = `URI="`
	start := strings.Index(line, attr)
	if start < 0 {
		return line
	}
	start += len(attr)
	end := strings.Index(line[start:], `"`)
	if end < 0 {
		return line
	}
	end += start
	return line[:end] + query + line[end:]
}
