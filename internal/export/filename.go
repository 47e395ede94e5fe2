// Package export names, encodes and packages generated block audio.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgnsrekt/blockvox/internal/blocks"
)

var (
	reserved    = strings.NewReplacer("/", "_", `\`, "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_")
	whitespace  = regexp.MustCompile(`\s+`)
	underscores = regexp.MustCompile(`_+`)
)

// Sanitize makes name safe to use as a filename component. Characters that are
// reserved on common filesystems and whitespace runs become a single
// underscore; leading and trailing underscores are dropped.
func Sanitize(name string) string {
	name = norm.NFC.String(name)
	name = reserved.Replace(name)
	name = whitespace.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// baseName is the title of b, or block_{n} for an untitled block. index is
// zero-based.
func baseName(b blocks.Block, index int) string {
	if title := strings.TrimSpace(b.Title); title != "" {
		if s := Sanitize(title); s != "" {
			return s
		}
	}
	return fmt.Sprintf("block_%d", index+1)
}

// SingleFilename names the download of one block.
func SingleFilename(b blocks.Block, index int) string {
	return fmt.Sprintf("%s_%s.mp3", baseName(b, index), b.Voice)
}

// ArchiveFilename names the entry of a block inside an archive. The sequence
// number is the block's position in the full list, gaps included.
func ArchiveFilename(b blocks.Block, index int) string {
	return fmt.Sprintf("%02d_%s", index+1, SingleFilename(b, index))
}
