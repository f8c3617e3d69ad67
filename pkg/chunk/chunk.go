// Package chunk turns local directory trees into bounded text chunks for
// ingestion into memory.
package chunk

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultSize is the fixed chunk length in characters. The final chunk of a
// file may be shorter.
const DefaultSize = 2000

// skipDirs are dependency caches and build output folders that are never
// worth embedding.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	"target":       true,
	"dist":         true,
	"build":        true,
}

// allowedExts is the allow-list of plain-text and source extensions picked
// up by directory ingestion.
var allowedExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".jsx": true, ".java": true, ".rb": true, ".rs": true, ".c": true,
	".h": true, ".cpp": true, ".hpp": true, ".json": true, ".yaml": true,
	".yml": true, ".toml": true, ".sh": true, ".sql": true, ".html": true,
	".css": true,
}

// Split cuts text into consecutive chunks of at most size characters.
// Chunk boundaries fall between runes, never inside one, so every chunk is
// valid UTF-8 on its own. Concatenating the chunks reconstructs the input;
// empty input yields nil.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > 0 {
		end, runes := 0, 0
		for end < len(text) && runes < size {
			_, width := utf8.DecodeRuneInString(text[end:])
			end += width
			runes++
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}

// File is a readable candidate produced by Walk.
type File struct {
	Path    string // absolute path
	Content string
}

// Skippable reports whether a path segment should exclude a whole subtree:
// hidden entries and dependency caches.
func Skippable(name string) bool {
	return strings.HasPrefix(name, ".") || skipDirs[name]
}

// Allowed reports whether a file name carries an ingestible extension.
func Allowed(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}

// Walk visits every ingestible file under root and calls fn with its
// absolute path and full text. Unreadable and binary files are skipped
// silently, but a root that cannot be read at all is an error; fn returning
// an error stops the walk.
func Walk(root string, fn func(f File) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != absRoot && Skippable(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if Skippable(d.Name()) || !Allowed(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if !utf8.Valid(data) {
			return nil
		}

		return fn(File{Path: path, Content: string(data)})
	})
}
