package service

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/repository"
	"github.com/Kellia855/mindbridge/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibraryService(t *testing.T, mediaDir string) (*LibraryService, Actor, Actor) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := NewLibraryService(repository.NewLibraryRepository(db), LibraryConfig{
		MediaDir:          mediaDir,
		MaxUploadSizeMB:   1,
		PublicMediaPrefix: "/media/",
	})
	staff := testutil.CreateUser(t, db, "librarian", models.RoleWellnessTeam)
	student := testutil.CreateUser(t, db, "amina", models.RoleStudent)
	return svc, ActorFor(staff), ActorFor(student)
}

func TestLibraryCRUD(t *testing.T) {
	svc, staff, student := newLibraryService(t, t.TempDir())
	ctx := context.Background()
	year := 2015
	in := BookInput{
		Title:         "The Anxiety Toolkit",
		Author:        "Alice Boyes",
		Category:      models.BookCategorySelfHelp,
		ExternalLink:  "https://example.org/toolkit",
		PublishedYear: &year,
	}

	_, err := svc.Create(ctx, student, in)
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	book, err := svc.Create(ctx, staff, in)
	require.NoError(t, err)
	assert.True(t, book.HasLink)
	assert.False(t, book.HasPDF)

	in.PDFURL = "https://example.org/toolkit.pdf"
	updated, err := svc.Update(ctx, staff, book.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.HasPDF)

	found, err := svc.List(ctx, models.LibraryFilter{Search: "anxiety"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	found, err = svc.List(ctx, models.LibraryFilter{Category: models.BookCategoryPsychology})
	require.NoError(t, err)
	assert.Empty(t, found)
	_, err = svc.List(ctx, models.LibraryFilter{Category: "comics"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	require.NoError(t, svc.Delete(ctx, staff, book.ID))
	_, err = svc.Get(ctx, book.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestLibraryCreate_DefaultsCategory(t *testing.T) {
	svc, staff, _ := newLibraryService(t, t.TempDir())
	book, err := svc.Create(context.Background(), staff, BookInput{Title: "Untitled", Author: "Anon"})
	require.NoError(t, err)
	assert.Equal(t, models.BookCategoryOther, book.Category)

	_, err = svc.Create(context.Background(), staff, BookInput{Title: "x", Author: "y", ISBN: "97801234567890"})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestLibraryUploadCover(t *testing.T) {
	dir := t.TempDir()
	svc, staff, student := newLibraryService(t, dir)
	ctx := context.Background()
	book, err := svc.Create(ctx, staff, BookInput{Title: "Quiet", Author: "Susan Cain", Category: models.BookCategoryPsychology})
	require.NoError(t, err)

	content := testutil.TinyPNG(t, 1200, 1200)

	_, err = svc.UploadCover(ctx, student, book.ID, content)
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	got, err := svc.UploadCover(ctx, staff, book.ID, content)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got.CoverImage, "/media/covers/book-"), got.CoverImage)
	require.True(t, strings.HasSuffix(got.CoverImage, ".webp"))

	rel := strings.TrimPrefix(got.CoverImage, "/media/")
	webpPath := filepath.Join(dir, filepath.FromSlash(rel))
	_, err = os.Stat(webpPath)
	require.NoError(t, err)
	_, err = os.Stat(strings.TrimSuffix(webpPath, ".webp") + ".jpg")
	require.NoError(t, err)
}

func TestLibraryUploadCover_Rejections(t *testing.T) {
	svc, staff, _ := newLibraryService(t, t.TempDir())
	ctx := context.Background()
	book, err := svc.Create(ctx, staff, BookInput{Title: "Quiet", Author: "Susan Cain"})
	require.NoError(t, err)

	_, err = svc.UploadCover(ctx, staff, book.ID, nil)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.UploadCover(ctx, staff, book.ID, []byte("%PDF-1.4 not an image"))
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.UploadCover(ctx, staff, book.ID, make([]byte, 2*1024*1024))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	_, err = svc.UploadCover(ctx, staff, 999, testutil.TinyPNG(t, 10, 10))
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestResizeToFit_KeepsAspect(t *testing.T) {
	wide := resizeToFit(image.NewRGBA(image.Rect(0, 0, 1800, 900)), coverMaxWidth, coverMaxHeight)
	assert.Equal(t, 600, wide.Bounds().Dx())
	assert.Equal(t, 300, wide.Bounds().Dy())

	tall := resizeToFit(image.NewRGBA(image.Rect(0, 0, 1000, 3000)), coverMaxWidth, coverMaxHeight)
	assert.Equal(t, 300, tall.Bounds().Dx())
	assert.Equal(t, 900, tall.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 100, 150))
	assert.Same(t, small, resizeToFit(small, coverMaxWidth, coverMaxHeight))
}
