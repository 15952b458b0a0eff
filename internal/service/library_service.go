package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/repository"
	"github.com/Kellia855/mindbridge/internal/validation"
)

const (
	DefaultMediaDir          = "/tmp/mindbridge/media"
	DefaultMaxUploadSizeMB   = 5
	DefaultPublicMediaPrefix = "/media"
)

var errInvalidImage = errors.New("invalid image")

// LibraryConfig locates uploaded cover files.
type LibraryConfig struct {
	MediaDir          string
	MaxUploadSizeMB   int
	PublicMediaPrefix string
}

type LibraryService struct {
	repo        repository.LibraryRepository
	mediaDir    string
	maxUpload   int64
	mediaPrefix string
}

func NewLibraryService(repo repository.LibraryRepository, cfg LibraryConfig) *LibraryService {
	if cfg.MediaDir == "" {
		cfg.MediaDir = DefaultMediaDir
	}
	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	if cfg.PublicMediaPrefix == "" {
		cfg.PublicMediaPrefix = DefaultPublicMediaPrefix
	}
	return &LibraryService{
		repo:        repo,
		mediaDir:    cfg.MediaDir,
		maxUpload:   int64(cfg.MaxUploadSizeMB) * 1024 * 1024,
		mediaPrefix: strings.TrimRight(cfg.PublicMediaPrefix, "/"),
	}
}

// BookInput is the body for creating or replacing a library entry.
type BookInput struct {
	Title         string              `json:"title" validate:"required,max=200"`
	Author        string              `json:"author" validate:"required,max=200"`
	Description   string              `json:"description"`
	Category      models.BookCategory `json:"category" validate:"omitempty,book_category"`
	PDFURL        string              `json:"pdf_url" validate:"omitempty,url,max=500"`
	ExternalLink  string              `json:"external_link" validate:"omitempty,url,max=500"`
	ISBN          string              `json:"isbn" validate:"omitempty,max=13"`
	PublishedYear *int                `json:"published_year" validate:"omitempty,min=1000,max=9999"`
}

func (in BookInput) apply(b *models.LibraryBook) {
	b.Title = strings.TrimSpace(in.Title)
	b.Author = strings.TrimSpace(in.Author)
	b.Description = in.Description
	b.Category = in.Category
	if b.Category == "" {
		b.Category = models.BookCategoryOther
	}
	b.PDFURL = in.PDFURL
	b.ExternalLink = in.ExternalLink
	b.ISBN = strings.TrimSpace(in.ISBN)
	b.PublishedYear = in.PublishedYear
}

func (s *LibraryService) Categories() []CategoryOption {
	out := make([]CategoryOption, 0, len(models.BookCategories))
	for _, c := range models.BookCategories {
		out = append(out, CategoryOption{Value: string(c), Label: c.DisplayName()})
	}
	return out
}

func (s *LibraryService) List(ctx context.Context, filter models.LibraryFilter) ([]models.LibraryBook, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, models.NewValidationError("Invalid category")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

func (s *LibraryService) Get(ctx context.Context, id uint) (*models.LibraryBook, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *LibraryService) Create(ctx context.Context, actor Actor, in BookInput) (*models.LibraryBook, error) {
	if err := requireStaff(actor, "manage the library"); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	book := &models.LibraryBook{}
	in.apply(book)
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *LibraryService) Update(ctx context.Context, actor Actor, id uint, in BookInput) (*models.LibraryBook, error) {
	if err := requireStaff(actor, "manage the library"); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(book)
	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *LibraryService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := requireStaff(actor, "manage the library"); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// UploadCover stores a resized WebP cover plus a JPEG fallback and points
// the book at the WebP file.
func (s *LibraryService) UploadCover(ctx context.Context, actor Actor, id uint, content []byte) (*models.LibraryBook, error) {
	if err := requireStaff(actor, "manage the library"); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxUpload {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUpload/(1024*1024)))
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	cover, err := processCover(content)
	if errors.Is(err, errInvalidImage) {
		return nil, models.NewValidationError("Invalid image file")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	name := coverName(id, content)
	webpRel := path.Join(coverDir, name+".webp")
	jpegRel := path.Join(coverDir, name+".jpg")
	if err := writeBytesToFile(filepath.Join(s.mediaDir, filepath.FromSlash(webpRel)), cover.WebP); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(filepath.Join(s.mediaDir, filepath.FromSlash(jpegRel)), cover.JPEG); err != nil {
		return nil, models.NewInternalError(err)
	}

	book, err := s.repo.SetCover(ctx, id, s.mediaPrefix+"/"+webpRel)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "library cover uploaded",
		slog.Uint64("book_id", uint64(id)),
		slog.Int("webp_bytes", len(cover.WebP)),
	)
	return book, nil
}
