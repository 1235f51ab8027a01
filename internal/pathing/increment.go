package pathing

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	notebookExt = "ipynb"

	// CopyInsert is inserted before the counter of copied file names.
	CopyInsert = "-Copy"
)

//nolint:gochecknoglobals
var copyPattern = regexp.MustCompile(`-Copy\d*\.`)

// IncrementFilename returns the first name derived from filename for which
// exists reports false: "Untitled.ipynb", "Untitled1.ipynb", ... With an
// insert of "-Copy" that becomes "a-Copy1.txt", "a-Copy2.txt", ...
//
// Notebooks keep their full base name, other files split at the first dot so
// "archive.tar.gz" increments as "archive1.tar.gz".
func IncrementFilename(filename, insert string, exists func(name string) bool) string {
	basename, suffix := splitExt(filename)

	for i := 0; ; i++ {
		var insertI string
		if i > 0 {
			insertI = insert + strconv.Itoa(i)
		}

		name := basename + insertI + suffix
		if !exists(name) {
			return name
		}
	}
}

// CopyName strips an earlier "-CopyN" marker from name so copies of copies
// count up instead of nesting.
func CopyName(name string) string {
	return copyPattern.ReplaceAllString(name, ".")
}

func splitExt(filename string) (string, string) {
	if i := strings.LastIndex(filename, "."); i >= 0 && filename[i+1:] == notebookExt {
		return filename[:i], filename[i:]
	}

	if i := strings.Index(filename, "."); i >= 0 {
		return filename[:i], filename[i:]
	}

	return filename, ""
}
