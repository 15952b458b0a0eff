// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Password#123"

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// Session slots offered by the wellness team.
var sessionSlots = []string{"09:00", "10:00", "11:00", "13:30", "14:30", "15:30", "16:30"}

var bookingReasons = []string{
	"Feeling overwhelmed by coursework and deadlines",
	"Trouble sleeping before exams",
	"Homesickness since moving to campus",
	"Conflict with a roommate",
	"Low motivation and mood for the past few weeks",
	"Anxiety about presentations",
	"Want to talk through a family situation",
	"Burnout from balancing work and studies",
}

var eventTitles = []string{
	"Mindful Mondays", "Exam Stress Workshop", "Peer Support Circle",
	"Sleep Hygiene 101", "Art Therapy Evening", "Yoga on the Lawn",
	"Journaling for Wellbeing", "Healthy Boundaries Talk",
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	rng   *rand.Rand
	now   time.Time
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(db *gorm.DB, seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:    db,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
		now:   time.Now().UTC(),
	}
}

// BuildStudent constructs a student account without saving it.
func (f *Factory) BuildStudent() *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	handle := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, f.faker.Number(10, 9999)))
	handle = strings.NewReplacer(" ", "", "'", "").Replace(handle)
	sid := fmt.Sprintf("ALU-%06d", f.faker.Number(1, 999999))
	return &models.User{
		Username:    handle,
		Email:       handle + "@alustudent.com",
		Password:    passwordHash,
		FirstName:   first,
		LastName:    last,
		Role:        models.RoleStudent,
		PhoneNumber: f.faker.Numerify("+2507########"),
		StudentID:   &sid,
	}
}

// CreateStudent persists a student. Overrides run before saving.
func (f *Factory) CreateStudent(overrides ...func(*models.User)) (*models.User, error) {
	u := f.BuildStudent()
	for _, o := range overrides {
		o(u)
	}
	if err := f.db.Create(u).Error; err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return u, nil
}

// BuildBooking constructs a booking for student within 30 days either
// side of now. Past slots only get terminal statuses.
func (f *Factory) BuildBooking(student *models.User) *models.Booking {
	offset := f.rng.Intn(61) - 30
	day := f.now.AddDate(0, 0, offset)

	var status models.BookingStatus
	if offset < 0 {
		status = pick(f.rng, []models.BookingStatus{
			models.BookingStatusCompleted, models.BookingStatusCompleted,
			models.BookingStatusCancelled, models.BookingStatusRejected,
		})
	} else {
		status = pick(f.rng, []models.BookingStatus{
			models.BookingStatusPending, models.BookingStatusPending, models.BookingStatusApproved,
		})
	}

	b := &models.Booking{
		StudentID:   student.ID,
		Date:        day.Format(models.DateLayout),
		Time:        pick(f.rng, sessionSlots),
		SessionType: pick(f.rng, models.SessionTypes),
		Reason:      pick(f.rng, bookingReasons),
		Status:      status,
	}
	if f.rng.Intn(3) == 0 {
		b.AdditionalNotes = f.faker.Sentence(10)
	}
	if status == models.BookingStatusRejected {
		b.Notes = "Please book a group session for this topic."
	}
	b.BackfillContact(student)
	return b
}

// CreateBooking persists a booking for student.
func (f *Factory) CreateBooking(student *models.User, overrides ...func(*models.Booking)) (*models.Booking, error) {
	b := f.BuildBooking(student)
	for _, o := range overrides {
		o(b)
	}
	if err := f.db.Omit("Student").Create(b).Error; err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return b, nil
}

// CreateEvent persists an upcoming wellness event organised by organizer.
func (f *Factory) CreateEvent(organizer *models.User) (*models.Event, error) {
	start := 9 + f.rng.Intn(8)
	e := &models.Event{
		Title:           pick(f.rng, eventTitles),
		Description:     f.faker.Paragraph(1, 3, 12, " "),
		Date:            f.now.AddDate(0, 0, 1+f.rng.Intn(45)).Format(models.DateLayout),
		StartTime:       fmt.Sprintf("%02d:00", start),
		EndTime:         fmt.Sprintf("%02d:30", start+1),
		Location:        pick(f.rng, []string{"Wellness Centre", "Library Hall", "Room B12", "Online"}),
		MaxParticipants: 10 + f.rng.Intn(41),
		IsActive:        true,
	}
	if organizer != nil {
		e.OrganizerID = &organizer.ID
	}
	if err := f.db.Omit("Organizer").Create(e).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// CreatePost persists a community story by author.
func (f *Factory) CreatePost(author *models.User, approved bool) (*models.Post, error) {
	p := &models.Post{
		AuthorID:    author.ID,
		Content:     f.faker.Paragraph(1, 4, 14, " "),
		Category:    pick(f.rng, models.PostCategories),
		IsAnonymous: f.rng.Intn(2) == 0,
		IsApproved:  approved,
	}
	// Select keeps false booleans from being replaced by column defaults
	err := f.db.Select("AuthorID", "Content", "Category", "IsAnonymous", "IsApproved", "CreatedAt", "UpdatedAt").
		Create(p).Error
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
