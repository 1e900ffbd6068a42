package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// SidecarSuffix marks the directory KOReader keeps next to each book.
const SidecarSuffix = ".sdr"

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Whitespace characters to normalize
	whitespaceChars = regexp.MustCompile(`[\r\n\t]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// MaxFilenameBytes caps a sanitized name, leaving room for a suffix and an
// extension within the usual 255-byte limit.
const MaxFilenameBytes = 200

// SanitizeFilename makes a book title usable as a note file name. It drops
// characters that are invalid in file names or special in Markdown note
// tools (#, brackets become parentheses), collapses whitespace and cuts the
// result to MaxFilenameBytes on a rune boundary.
func SanitizeFilename(filename string) string {
	filename = whitespaceChars.ReplaceAllString(filename, " ")
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.TrimSpace(filename)

	filename = strings.ReplaceAll(filename, "#", "")
	filename = strings.ReplaceAll(filename, "[", "(")
	filename = strings.ReplaceAll(filename, "]", ")")

	if len(filename) > MaxFilenameBytes {
		cut := MaxFilenameBytes
		for cut > 0 && !utf8.RuneStart(filename[cut]) {
			cut--
		}
		filename = strings.TrimSpace(filename[:cut])
	}

	if filename == "" {
		filename = "Untitled"
	}
	return filename
}

// KnownBookExtensions contains file extensions commonly used for e-books
var KnownBookExtensions = []string{
	".fb2.zip",
	".fb2",
	".kepub.epub",
	".epub",
	".pdf",
	".txt",
	".docx",
	".doc",
	".mobi",
	".azw3",
	".azw",
	".djvu",
	".cbz",
	".html",
}

// TrimBookExtension removes a sidecar suffix and one known e-book extension.
func TrimBookExtension(name string) string {
	name = strings.TrimSuffix(name, SidecarSuffix)
	lower := strings.ToLower(name)
	for _, ext := range KnownBookExtensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// TitleFromPath derives a readable title from a book or sidecar path.
// "/books/The_Left_Hand.sdr" becomes "The Left Hand".
func TitleFromPath(path string) string {
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == string(filepath.Separator) {
		return "Untitled"
	}
	title := TrimBookExtension(base)
	title = strings.ReplaceAll(title, "_", " ")
	title = multipleSpaces.ReplaceAllString(title, " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "Untitled"
	}
	return title
}

// AuthorFromFilename attempts to extract an author name from a filename
// laid out as "Title - Author.extension".
func AuthorFromFilename(filename, bookTitle string) string {
	if bookTitle == "" {
		return ""
	}
	base := filepath.Base(filename)
	titlePos := strings.LastIndex(base, bookTitle)
	if titlePos == -1 {
		return ""
	}

	possibleAuthor := TrimBookExtension(base[titlePos+len(bookTitle):])

	// Clean up non-alphanumeric characters from beginning and end
	possibleAuthor = strings.TrimFunc(possibleAuthor, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r >= 0x80) // Keep unicode letters
	})
	possibleAuthor = strings.ReplaceAll(possibleAuthor, "_", " ")

	return strings.TrimSpace(possibleAuthor)
}
