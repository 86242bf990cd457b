package service

import (
	"context"
	"fmt"
	"math"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/repository"
)

// SeedOptions sizes a demo data set. The same Seed value yields the same data.
type SeedOptions struct {
	Customers     int
	Professionals int
	Seed          int64
	StartThreads  bool
}

// SeedReport counts what a seed run wrote.
type SeedReport struct {
	Users      int
	Profiles   int
	Categories int
	Threads    int
	Messages   int
}

// SeedService fills a development database with demo marketplace data.
type SeedService interface {
	Seed(ctx context.Context, opts SeedOptions) (SeedReport, error)
}

type seedService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	catalog  CatalogService
	chat     ChatService
	logger   zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, profiles repository.ProfileRepository, catalog CatalogService, chat ChatService, logger zerolog.Logger) SeedService {
	return &seedService{
		users:    users,
		profiles: profiles,
		catalog:  catalog,
		chat:     chat,
		logger:   logger.With().Str("component", "seed_service").Logger(),
	}
}

// DefaultCategories is the demo catalog. Childcare has no services.
func DefaultCategories() []models.Category {
	return []models.Category{
		{Slug: "diy", Name: "DIY", Description: "Repairs, assembly and small jobs around the house", Position: 1, Services: []models.Service{
			{Slug: "shelves", Name: "Shelf mounting"},
			{Slug: "painting", Name: "Painting"},
			{Slug: "furniture-assembly", Name: "Furniture assembly"},
		}},
		{Slug: "cleaning", Name: "Cleaning", Description: "Regular and one-off cleaning", Position: 2, Services: []models.Service{
			{Slug: "windows", Name: "Window cleaning"},
			{Slug: "deep-clean", Name: "Deep clean"},
		}},
		{Slug: "childcare", Name: "Childcare", Description: "Babysitting and after-school care", Position: 3},
	}
}

func (s *seedService) Seed(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	faker := gofakeit.New(opts.Seed)
	report := SeedReport{}

	categories, err := s.catalog.Seed(ctx, DefaultCategories())
	if err != nil {
		return report, fmt.Errorf("seed catalog: %w", err)
	}
	report.Categories = categories

	customers := make([]string, 0, opts.Customers)
	for i := 1; i <= opts.Customers; i++ {
		user := fakeUser(faker, fmt.Sprintf("cust-%d", i), models.RoleCustomer)
		if err := s.users.Upsert(ctx, &user); err != nil {
			return report, fmt.Errorf("seed customer %s: %w", user.ID, err)
		}
		customers = append(customers, user.ID)
		report.Users++
	}

	professionals := make([]string, 0, opts.Professionals)
	for i := 1; i <= opts.Professionals; i++ {
		user := fakeUser(faker, fmt.Sprintf("pro-%d", i), models.RoleProfessional)
		if err := s.users.Upsert(ctx, &user); err != nil {
			return report, fmt.Errorf("seed professional %s: %w", user.ID, err)
		}
		report.Users++

		profile := models.ProfessionalProfile{
			UserID:     user.ID,
			Headline:   faker.JobTitle(),
			Bio:        faker.Paragraph(1, 3, 12, " "),
			City:       faker.City(),
			HourlyRate: math.Round(faker.Float64Range(15, 90)),
			PhotoURL:   user.AvatarURL,
		}
		if err := s.profiles.Save(ctx, &profile); err != nil {
			return report, fmt.Errorf("seed profile %s: %w", user.ID, err)
		}
		professionals = append(professionals, user.ID)
		report.Profiles++
	}

	if opts.StartThreads && len(professionals) > 0 {
		for i, customerID := range customers {
			professionalID := professionals[i%len(professionals)]
			thread, err := s.chat.StartChat(ctx, customerID, professionalID)
			if err != nil {
				return report, fmt.Errorf("seed thread %s/%s: %w", customerID, professionalID, err)
			}
			report.Threads++

			if _, err := s.chat.SendMessage(ctx, dto.SendMessageRequest{
				ThreadID: thread.ID,
				SenderID: customerID,
				Text:     faker.Sentence(10),
			}); err != nil {
				return report, fmt.Errorf("seed message %s: %w", thread.ID, err)
			}
			report.Messages++
		}
	}

	s.logger.Info().
		Int("users", report.Users).
		Int("profiles", report.Profiles).
		Int("categories", report.Categories).
		Int("threads", report.Threads).
		Msg("demo data seeded")
	return report, nil
}

// fakeUser leaves every other avatar empty so chat renders both avatar paths.
func fakeUser(faker *gofakeit.Faker, id, role string) models.UserProfile {
	user := models.UserProfile{
		ID:          id,
		DisplayName: faker.Name(),
		Email:       faker.Email(),
		Role:        role,
	}
	if faker.Bool() {
		user.AvatarURL = "https://i.pravatar.cc/150?u=" + id
	}
	return user
}
