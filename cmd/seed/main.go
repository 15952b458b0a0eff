// Command seed populates the database with demo students, bookings,
// events, stories and the built-in library catalog.
package main

import (
	"flag"
	"log"

	"github.com/Kellia855/mindbridge/internal/bootstrap"
	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Students, "students", opts.Students, "Number of students to create")
	flag.IntVar(&opts.BookingsPerStudent, "bookings", opts.BookingsPerStudent, "Maximum bookings per student")
	flag.IntVar(&opts.Events, "events", opts.Events, "Number of wellness events to create")
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "Number of community stories to create")
	flag.BoolVar(&opts.Clean, "clean", false, "Delete existing non-staff data before seeding")
	flag.Int64Var(&opts.Seed, "seed", 0, "Random seed for reproducible data (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Seeded events need an organizer, so make sure the dev staff account exists
	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sum, err := seed.NewSeeder(db).Run(opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d students, %d bookings, %d events, %d stories and %d library books",
		sum.Students, sum.Bookings, sum.Events, sum.Posts, sum.Books)
	log.Printf("All seeded students have the password: %s", seed.DefaultPassword)
}
