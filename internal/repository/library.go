package repository

import (
	"context"

	"github.com/Kellia855/mindbridge/internal/cache"
	"github.com/Kellia855/mindbridge/internal/models"

	"gorm.io/gorm"
)

// LibraryRepository defines persistence operations for library books.
// Reads go through the Redis cache and writes invalidate it.
type LibraryRepository interface {
	List(ctx context.Context, filter models.LibraryFilter) ([]models.LibraryBook, error)
	GetByID(ctx context.Context, id uint) (*models.LibraryBook, error)
	Create(ctx context.Context, book *models.LibraryBook) error
	Update(ctx context.Context, book *models.LibraryBook) error
	SetCover(ctx context.Context, id uint, coverURL string) (*models.LibraryBook, error)
	Delete(ctx context.Context, id uint) error
}

type libraryRepository struct {
	db *gorm.DB
}

// NewLibraryRepository returns a new LibraryRepository implementation.
func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{db: db}
}

func (r *libraryRepository) List(ctx context.Context, filter models.LibraryFilter) ([]models.LibraryBook, error) {
	books := []models.LibraryBook{}
	key := cache.LibraryListKey(string(filter.Category), filter.Search)

	err := cache.Aside(ctx, key, &books, cache.LibraryListTTL, func() error {
		q := r.db.WithContext(ctx).Model(&models.LibraryBook{})
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(author) LIKE ? ESCAPE '\\')", pattern, pattern)
		}
		if err := q.Order("title ASC").Find(&books).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *libraryRepository) GetByID(ctx context.Context, id uint) (*models.LibraryBook, error) {
	var book models.LibraryBook
	err := cache.Aside(ctx, cache.LibraryBookKey(id), &book, cache.LibraryBookTTL, func() error {
		return dbError(r.db.WithContext(ctx).First(&book, id).Error, "Book", id)
	})
	if err != nil {
		return nil, err
	}
	book.Resolve()
	return &book, nil
}

func (r *libraryRepository) Create(ctx context.Context, book *models.LibraryBook) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return dbError(err, "Book", book.ID)
	}
	book.Resolve()
	cache.InvalidateLibrary(ctx, 0)
	return nil
}

func (r *libraryRepository) Update(ctx context.Context, book *models.LibraryBook) error {
	res := r.db.WithContext(ctx).Model(book).
		Select("title", "author", "description", "category", "pdf_url", "external_link", "isbn", "published_year").
		Updates(book)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Book", book.ID)
	}
	book.Resolve()
	cache.InvalidateLibrary(ctx, book.ID)
	return nil
}

func (r *libraryRepository) SetCover(ctx context.Context, id uint, coverURL string) (*models.LibraryBook, error) {
	res := r.db.WithContext(ctx).Model(&models.LibraryBook{}).Where("id = ?", id).Update("cover_image", coverURL)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Book", id)
	}
	cache.InvalidateLibrary(ctx, id)
	return r.GetByID(ctx, id)
}

func (r *libraryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.LibraryBook{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Book", id)
	}
	cache.InvalidateLibrary(ctx, id)
	return nil
}
