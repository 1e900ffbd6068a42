// Package koreader turns decoded KOReader sidecar metadata into books and
// highlights, and locates sidecar files on disk.
package koreader

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/koreader-highlights/internal/entities"
	"github.com/mrlokans/koreader-highlights/internal/luatable"
	"github.com/mrlokans/koreader-highlights/internal/utils"
)

// Extraction is the book described by one sidecar file. Skipped counts
// entries dropped for having no text.
type Extraction struct {
	Book       entities.Book
	Highlights []entities.Highlight
	Skipped    int
}

type Extractor struct {
	location *time.Location
	maxDepth int
}

type Option func(*Extractor)

// WithLocation sets the zone of the reader's clock, used to turn numeric
// epoch timestamps into wall-clock time. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithMaxDepth bounds table nesting when loading files.
func WithMaxDepth(n int) Option {
	return func(e *Extractor) {
		e.maxDepth = n
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{location: time.Local, maxDepth: luatable.DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract uses an Extractor with default options.
func Extract(root luatable.Value, sourcePath string) (*Extraction, error) {
	return NewExtractor().Extract(root, sourcePath)
}

// Extract builds the book and its highlights from a decoded sidecar tree.
// Entries with blank text are skipped. A missing or unparseable timestamp
// on any remaining entry fails the whole book.
func (e *Extractor) Extract(root luatable.Value, sourcePath string) (*Extraction, error) {
	if root == nil {
		return nil, &ExtractError{
			Kind:   MissingStructure,
			Path:   sourcePath,
			Reason: "no top-level value",
		}
	}
	doc, ok := root.(*luatable.Mapping)
	if !ok {
		return nil, &ExtractError{
			Kind:   MissingStructure,
			Path:   sourcePath,
			Reason: "top-level value is a " + root.Kind().String() + ", expected a keyed table",
		}
	}

	out := &Extraction{Book: e.book(doc, sourcePath)}

	entries, err := collectEntries(doc, sourcePath)
	if err != nil {
		return nil, err
	}

	for i, entry := range entries {
		h, skip, err := e.highlight(entry, i+1, sourcePath)
		if err != nil {
			return nil, err
		}
		if skip {
			out.Skipped++
			continue
		}
		out.Highlights = append(out.Highlights, h)
	}
	return out, nil
}

func (e *Extractor) book(doc *luatable.Mapping, sourcePath string) entities.Book {
	path := lookupString(doc, docPathKeys...)
	if path == "" {
		path = BookPathFromSidecar(sourcePath)
	}

	var title, author string
	for _, key := range bookPropsKeys {
		props, ok := doc.GetMapping(key)
		if !ok {
			continue
		}
		if title == "" {
			title = lookupString(props, titleKeys...)
		}
		if author == "" {
			author = lookupString(props, authorKeys...)
		}
	}

	if title == "" {
		title = utils.TitleFromPath(path)
	}
	if author == "" {
		author = utils.AuthorFromFilename(path, title)
	}

	return entities.Book{
		FilePath: path,
		Title:    title,
		Author:   normalizeAuthors(author),
	}
}

// entry is one raw highlight table. In the legacy layout it also carries
// the page it was filed under and the note found on its bookmark.
type entry struct {
	value luatable.Value
	page  string
	note  string
}

func collectEntries(doc *luatable.Mapping, sourcePath string) ([]entry, error) {
	if raw, ok := doc.Get(annotationsKey); ok {
		items, err := tableItems(raw, annotationsKey, sourcePath)
		if err != nil {
			return nil, err
		}
		entries := make([]entry, 0, len(items))
		for _, item := range items {
			entries = append(entries, entry{value: item})
		}
		return entries, nil
	}

	raw, ok := doc.Get(legacyHighlightKey)
	if !ok {
		return nil, nil
	}
	var pages []luatable.Field
	switch t := raw.(type) {
	case *luatable.Mapping:
		pages = t.Fields
	case luatable.Sequence:
		for i, item := range t {
			pages = append(pages, luatable.Field{Key: strconv.Itoa(i + 1), Numeric: true, Value: item})
		}
	default:
		return nil, &ExtractError{
			Kind:   MissingStructure,
			Path:   sourcePath,
			Field:  legacyHighlightKey,
			Reason: "expected a table, found " + raw.Kind().String(),
		}
	}

	var entries []entry
	for _, page := range pages {
		items, err := tableItems(page.Value, legacyHighlightKey, sourcePath)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			entries = append(entries, entry{value: item, page: page.Key})
		}
	}
	attachBookmarkNotes(doc, entries)
	return entries, nil
}

// attachBookmarkNotes copies notes from the legacy bookmark list onto the
// highlights they belong to. A bookmark matches a highlight with the same
// datetime and either the same passage or the same page. Each bookmark is
// used at most once.
func attachBookmarkNotes(doc *luatable.Mapping, entries []entry) {
	raw, ok := doc.Get(legacyBookmarksKey)
	if !ok {
		return
	}
	var bookmarks []*luatable.Mapping
	for _, item := range luatable.Items(raw) {
		if m, ok := item.(*luatable.Mapping); ok {
			bookmarks = append(bookmarks, m)
		}
	}

	used := make([]bool, len(bookmarks))
	for i := range entries {
		fields, ok := entries[i].value.(*luatable.Mapping)
		if !ok {
			continue
		}
		datetime := lookupString(fields, "datetime")
		text := lookupString(fields, textKeys...)
		if datetime == "" || text == "" {
			continue
		}

		for j, bm := range bookmarks {
			if used[j] || lookupString(bm, "datetime") != datetime {
				continue
			}
			passage := lookupString(bm, "notes")
			page := ""
			if v, ok := bm.Get("page"); ok {
				page = positionText(v)
			}
			if passage != text && (page == "" || page != entries[i].page) {
				continue
			}
			used[j] = true
			if note := lookupString(bm, "text"); isBookmarkNote(note, passage, text, datetime) {
				entries[i].note = note
			}
			break
		}
	}
}

// isBookmarkNote reports whether a bookmark's text was written by the user.
// Without a note KOReader fills it with the passage or with a generated
// "Page N ... @ datetime" label.
func isBookmarkNote(note, passage, text, datetime string) bool {
	if note == "" || note == passage || note == text {
		return false
	}
	return !(strings.HasPrefix(note, "Page ") && strings.HasSuffix(note, "@ "+datetime))
}

func tableItems(v luatable.Value, field, sourcePath string) ([]luatable.Value, error) {
	switch v.(type) {
	case luatable.Sequence, *luatable.Mapping:
		return luatable.Items(v), nil
	default:
		return nil, &ExtractError{
			Kind:   MissingStructure,
			Path:   sourcePath,
			Field:  field,
			Reason: "expected a table, found " + v.Kind().String(),
		}
	}
}

func (e *Extractor) highlight(en entry, index int, sourcePath string) (entities.Highlight, bool, error) {
	fields, ok := en.value.(*luatable.Mapping)
	if !ok {
		return entities.Highlight{}, true, nil
	}

	text := strings.TrimSpace(lookupString(fields, textKeys...))
	if text == "" {
		return entities.Highlight{}, true, nil
	}

	raw, key, ok := fields.Lookup(timestampKeys...)
	if !ok {
		return entities.Highlight{}, false, &ExtractError{
			Kind:   BadTimestamp,
			Path:   sourcePath,
			Index:  index,
			Field:  timestampKeys[0],
			Reason: "timestamp is missing",
		}
	}
	at, err := parseTimestamp(raw, e.location)
	if err != nil {
		return entities.Highlight{}, false, &ExtractError{
			Kind:   BadTimestamp,
			Path:   sourcePath,
			Index:  index,
			Field:  key,
			Value:  describe(raw),
			Reason: err.Error(),
		}
	}

	location := en.page
	if s := firstPosition(fields, positionKeys); s != "" {
		location = s
	}

	note := lookupString(fields, noteKeys...)
	if note == "" {
		note = en.note
	}

	return entities.Highlight{
		Text:          text,
		Note:          note,
		Chapter:       lookupString(fields, chapterKeys...),
		Location:      location,
		Page:          pageNumber(fields, en.page),
		HighlightedAt: at,
	}, false, nil
}

// firstPosition returns the first non-blank position stored under keys.
func firstPosition(fields *luatable.Mapping, keys []string) string {
	for _, key := range keys {
		if v, ok := fields.Get(key); ok {
			if s := positionText(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// pageNumber returns the numeric page of a highlight, falling back to the
// page it was filed under in the legacy layout. Zero means unknown.
func pageNumber(fields *luatable.Mapping, filedUnder string) int {
	for _, key := range pageNumberKeys {
		if n, ok := fields.Get(key); ok {
			if num, ok := n.(luatable.Number); ok {
				if i, err := num.Int64(); err == nil && i > 0 {
					return int(i)
				}
			}
		}
	}
	if i, err := strconv.Atoi(filedUnder); err == nil && i > 0 {
		return i
	}
	return 0
}

// positionText renders a page number or xpointer in its canonical form:
// integral numbers without a fraction, strings verbatim.
func positionText(v luatable.Value) string {
	switch t := v.(type) {
	case luatable.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return t.Text
	case luatable.String:
		return strings.TrimSpace(string(t))
	default:
		return ""
	}
}

// BookPathFromSidecar maps "/books/Dune.sdr/metadata.epub.lua" to
// "/books/Dune.epub". Paths outside a sidecar directory are returned as is.
func BookPathFromSidecar(sidecarPath string) string {
	dir := filepath.Dir(sidecarPath)
	if !strings.HasSuffix(dir, utils.SidecarSuffix) {
		return sidecarPath
	}
	book := strings.TrimSuffix(dir, utils.SidecarSuffix)

	name := filepath.Base(sidecarPath)
	ext := strings.TrimSuffix(strings.TrimPrefix(name, "metadata."), ".lua")
	if ext == "" || ext == name || strings.HasSuffix(strings.ToLower(book), "."+strings.ToLower(ext)) {
		return book
	}
	return book + "." + ext
}

// lookupString returns the first non-blank string stored under keys.
func lookupString(m *luatable.Mapping, keys ...string) string {
	for _, key := range keys {
		if s, ok := m.GetString(key); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// normalizeAuthors joins the newline-separated author list KOReader stores
// for multi-author books.
func normalizeAuthors(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' })
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
