package models

import (
	"time"

	"gorm.io/gorm"
)

// BookCategory classifies library resources.
type BookCategory string

const (
	BookCategoryPsychology   BookCategory = "psychology"
	BookCategorySelfHelp     BookCategory = "self_help"
	BookCategoryMentalHealth BookCategory = "mental_health"
	BookCategoryWellbeing    BookCategory = "wellbeing"
	BookCategoryMindfulness  BookCategory = "mindfulness"
	BookCategoryOther        BookCategory = "other"
)

var bookCategoryNames = map[BookCategory]string{
	BookCategoryPsychology:   "Psychology",
	BookCategorySelfHelp:     "Self-Help",
	BookCategoryMentalHealth: "Mental Health",
	BookCategoryWellbeing:    "Wellbeing",
	BookCategoryMindfulness:  "Mindfulness",
	BookCategoryOther:        "Other",
}

// BookCategories lists categories in display order.
var BookCategories = []BookCategory{
	BookCategoryPsychology,
	BookCategorySelfHelp,
	BookCategoryMentalHealth,
	BookCategoryWellbeing,
	BookCategoryMindfulness,
	BookCategoryOther,
}

func (c BookCategory) Valid() bool {
	_, ok := bookCategoryNames[c]
	return ok
}

func (c BookCategory) DisplayName() string {
	if name, ok := bookCategoryNames[c]; ok {
		return name
	}
	return string(c)
}

// LibraryBook is an entry in the digital wellness library.
type LibraryBook struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Title         string       `gorm:"size:200;not null;index" json:"title"`
	Author        string       `gorm:"size:200;not null" json:"author"`
	Description   string       `gorm:"type:text" json:"description"`
	Category      BookCategory `gorm:"type:varchar(20);not null;default:'other';index" json:"category"`
	CoverImage    string       `gorm:"size:500" json:"cover_image"`
	PDFURL        string       `gorm:"column:pdf_url;size:500" json:"pdf_url"`
	ExternalLink  string       `gorm:"size:500" json:"external_link"`
	ISBN          string       `gorm:"column:isbn;size:13" json:"isbn"`
	PublishedYear *int         `json:"published_year"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	HasPDF  bool `gorm:"-" json:"has_pdf"`
	HasLink bool `gorm:"-" json:"has_link"`
}

// TableName specifies the table name for GORM.
func (LibraryBook) TableName() string {
	return "library_books"
}

// AfterFind fills the derived availability flags.
func (b *LibraryBook) AfterFind(_ *gorm.DB) error {
	b.Resolve()
	return nil
}

// Resolve fills the derived availability flags.
func (b *LibraryBook) Resolve() {
	b.HasPDF = b.PDFURL != ""
	b.HasLink = b.ExternalLink != ""
}

// LibraryFilter narrows library listings.
type LibraryFilter struct {
	Category BookCategory
	Search   string
}
