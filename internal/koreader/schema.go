package koreader

// Candidate keys for each concept, in priority order. KOReader renamed
// several of these over the years; the first key present wins.
var (
	bookPropsKeys = []string{"doc_props", "stats"}
	titleKeys     = []string{"title"}
	authorKeys    = []string{"authors", "author"}
	docPathKeys   = []string{"doc_path"}

	textKeys      = []string{"text"}
	timestampKeys = []string{"datetime", "datetime_updated", "time"}
	noteKeys      = []string{"note"}
	chapterKeys   = []string{"chapter"}

	// page holds an xpointer in reflowable documents, which survives font
	// and margin changes; pageno is recomputed on every re-layout.
	positionKeys   = []string{"page", "pageno"}
	pageNumberKeys = []string{"pageno", "page"}
)

// Layouts of the highlight collection.
const (
	// annotationsKey holds a flat list of highlights (KOReader 2024.07+).
	annotationsKey = "annotations"
	// legacyHighlightKey maps a page number to the highlights on that page.
	legacyHighlightKey = "highlight"
	// legacyBookmarksKey lists bookmarks next to the legacy highlights. A
	// highlight's note is the "text" of its bookmark; the bookmark's
	// "notes" repeats the highlighted passage.
	legacyBookmarksKey = "bookmarks"
)

// Timestamp layouts tried in order for string values.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Numeric timestamps above this are taken as milliseconds since the epoch.
const millisecondEpochThreshold = 1_000_000_000_000
