package entities

import (
	"time"
)

type Book struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	FilePath   string      `gorm:"uniqueIndex;size:1024;not null" json:"file_path"`
	Title      string      `gorm:"index;size:512" json:"title"`
	Author     string      `gorm:"index;size:256" json:"author,omitempty"`
	Highlights []Highlight `gorm:"foreignKey:BookID" json:"highlights,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// Highlight is one passage captured on the device. BookID, Text,
// HighlightedAt and Location form its natural key.
type Highlight struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	BookID uint   `gorm:"not null;uniqueIndex:idx_highlight_natural_key,priority:1" json:"book_id"`
	Text   string `gorm:"type:text;not null;uniqueIndex:idx_highlight_natural_key,priority:2" json:"text"`
	Note   string `gorm:"type:text" json:"note,omitempty"`

	// Location is the EPUB xpointer of the passage, or its page number in
	// fixed-layout documents, rendered as text.
	Location string `gorm:"size:1024;not null;default:'';uniqueIndex:idx_highlight_natural_key,priority:4" json:"location,omitempty"`
	// Page is the page number shown to the reader when captured. It changes
	// with the layout of reflowable documents, so it is not part of the key.
	Page    int    `gorm:"not null;default:0" json:"page,omitempty"`
	Chapter string `gorm:"size:512" json:"chapter,omitempty"`

	// HighlightedAt is the device wall-clock time of the capture.
	HighlightedAt time.Time `gorm:"not null;index;uniqueIndex:idx_highlight_natural_key,priority:3" json:"highlighted_at"`
	Processed     bool      `gorm:"not null;default:false;index" json:"processed"`

	CreatedAt time.Time `json:"created_at"`
}

func (Highlight) TableName() string {
	return "highlights"
}

// NaturalKey identifies a highlight independently of its row ID.
type NaturalKey struct {
	BookID        uint
	Text          string
	HighlightedAt time.Time
	Location      string
}

func (h Highlight) NaturalKey() NaturalKey {
	return NaturalKey{
		BookID:        h.BookID,
		Text:          h.Text,
		HighlightedAt: h.HighlightedAt,
		Location:      h.Location,
	}
}
