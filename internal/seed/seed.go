package seed

import (
	"fmt"
	"log/slog"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Students int
	// BookingsPerStudent is the upper bound; each student gets 0..n.
	BookingsPerStudent int
	Events             int
	Posts              int
	Clean              bool
	// Seed makes the generated data reproducible. Zero is random.
	Seed int64
}

// DefaultOptions is a small but populated dataset.
var DefaultOptions = Options{
	Students:           25,
	BookingsPerStudent: 3,
	Events:             6,
	Posts:              30,
}

// Summary counts what a run created.
type Summary struct {
	Students int
	Bookings int
	Events   int
	Posts    int
	Books    int
}

// Seeder populates a database with demo data.
type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll deletes application data in foreign key order. Staff accounts
// are kept so the dashboard stays reachable.
func (s *Seeder) ClearAll() error {
	steps := []struct {
		name  string
		model any
		where string
	}{
		{"event registrations", &models.EventRegistration{}, "1 = 1"},
		{"events", &models.Event{}, "1 = 1"},
		{"bookings", &models.Booking{}, "1 = 1"},
		{"posts", &models.Post{}, "1 = 1"},
		{"library books", &models.LibraryBook{}, "1 = 1"},
		{"students", &models.User{}, "role = 'student'"},
	}
	for _, step := range steps {
		if err := s.db.Where(step.where).Delete(step.model).Error; err != nil {
			return fmt.Errorf("clear %s: %w", step.name, err)
		}
	}
	return nil
}

// Run seeds according to opts. Bookings, events and posts are spread over
// the generated students.
func (s *Seeder) Run(opts Options) (*Summary, error) {
	if opts.Clean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	sum := &Summary{}
	books, err := Library(s.db)
	if err != nil {
		return nil, err
	}
	sum.Books = books

	f := NewFactory(s.db, opts.Seed)
	var organizer *models.User
	var staff models.User
	if err := s.db.Where("role = ?", models.RoleWellnessTeam).Order("id").Limit(1).Find(&staff).Error; err != nil {
		return nil, fmt.Errorf("find organizer: %w", err)
	}
	if staff.ID != 0 {
		organizer = &staff
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		f.db = tx
		students := make([]*models.User, 0, opts.Students)
		for i := 0; i < opts.Students; i++ {
			u, err := f.CreateStudent()
			if err != nil {
				return err
			}
			students = append(students, u)
		}
		sum.Students = len(students)

		for _, u := range students {
			if opts.BookingsPerStudent <= 0 {
				break
			}
			for n := f.rng.Intn(opts.BookingsPerStudent + 1); n > 0; n-- {
				if _, err := f.CreateBooking(u); err != nil {
					return err
				}
				sum.Bookings++
			}
		}

		for i := 0; i < opts.Events; i++ {
			e, err := f.CreateEvent(organizer)
			if err != nil {
				return err
			}
			sum.Events++
			capacity := e.MaxParticipants
			for _, u := range students {
				if f.rng.Intn(4) != 0 || capacity == 0 {
					continue
				}
				reg := models.EventRegistration{EventID: e.ID, StudentID: u.ID}
				if err := tx.Omit("Event", "Student").Create(&reg).Error; err != nil {
					return fmt.Errorf("register for event: %w", err)
				}
				capacity--
			}
		}

		if len(students) > 0 {
			for i := 0; i < opts.Posts; i++ {
				if _, err := f.CreatePost(pick(f.rng, students), f.rng.Intn(4) != 0); err != nil {
					return err
				}
				sum.Posts++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("students", sum.Students),
		slog.Int("bookings", sum.Bookings),
		slog.Int("events", sum.Events),
		slog.Int("posts", sum.Posts),
		slog.Int("books", sum.Books),
	)
	return sum, nil
}
