package seed

import (
	_ "embed"
	"fmt"

	"github.com/Kellia855/mindbridge/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed library.yml
var libraryYAML []byte

type catalogEntry struct {
	Title         string `yaml:"title"`
	Author        string `yaml:"author"`
	Category      string `yaml:"category"`
	Description   string `yaml:"description"`
	ISBN          string `yaml:"isbn"`
	PublishedYear int    `yaml:"published_year"`
	PDFURL        string `yaml:"pdf_url"`
	ExternalLink  string `yaml:"external_link"`
}

// Catalog parses the embedded library catalog.
func Catalog() ([]models.LibraryBook, error) {
	return parseCatalog(libraryYAML)
}

func parseCatalog(raw []byte) ([]models.LibraryBook, error) {
	var doc struct {
		Books []catalogEntry `yaml:"books"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse library catalog: %w", err)
	}

	books := make([]models.LibraryBook, 0, len(doc.Books))
	for i, e := range doc.Books {
		if e.Title == "" || e.Author == "" {
			return nil, fmt.Errorf("library catalog entry %d: title and author are required", i)
		}
		category := models.BookCategory(e.Category)
		if category == "" {
			category = models.BookCategoryOther
		}
		if !category.Valid() {
			return nil, fmt.Errorf("library catalog entry %q: unknown category %q", e.Title, e.Category)
		}
		book := models.LibraryBook{
			Title:        e.Title,
			Author:       e.Author,
			Category:     category,
			Description:  e.Description,
			ISBN:         e.ISBN,
			PDFURL:       e.PDFURL,
			ExternalLink: e.ExternalLink,
		}
		if e.PublishedYear > 0 {
			year := e.PublishedYear
			book.PublishedYear = &year
		}
		books = append(books, book)
	}
	return books, nil
}

// Library inserts catalog books whose title is not in the table yet and
// returns how many were added.
func Library(db *gorm.DB) (int, error) {
	books, err := Catalog()
	if err != nil {
		return 0, err
	}

	added := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range books {
			var count int64
			if err := tx.Model(&models.LibraryBook{}).Where("title = ?", books[i].Title).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&books[i]).Error; err != nil {
				return fmt.Errorf("insert %q: %w", books[i].Title, err)
			}
			added++
		}
		return nil
	})
	return added, err
}
