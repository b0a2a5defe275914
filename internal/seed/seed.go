package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/engnotes/internal/app/models"
	appServices "github.com/yigit/engnotes/internal/app/services"
	"github.com/yigit/engnotes/internal/config"
)

// CreateDefaultData creates the configured admin account and, when enabled,
// a small demo catalog. Failures are collected so one step does not block the other.
func CreateDefaultData(ctx context.Context, cfg *config.Config, authService *appServices.AuthService, catalogService *appServices.CatalogService, lgr zerolog.Logger) error {
	var finalErr error

	if err := EnsureAdmin(ctx, cfg, authService, lgr); err != nil {
		lgr.Error().Err(err).Msg("Error creating default admin")
		finalErr = errors.Join(finalErr, err)
	}

	if cfg.Seed.DemoCatalog {
		if err := DemoCatalog(ctx, catalogService, lgr); err != nil {
			lgr.Error().Err(err).Msg("Error creating demo catalog")
			finalErr = errors.Join(finalErr, err)
		}
	}
	return finalErr
}

// EnsureAdmin creates the admin account from config unless it exists.
func EnsureAdmin(ctx context.Context, cfg *config.Config, authService *appServices.AuthService, lgr zerolog.Logger) error {
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		lgr.Debug().Msg("No default admin configured, skipping")
		return nil
	}

	created, err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		return err
	}
	if created {
		lgr.Info().Str("username", cfg.Admin.Username).Msg("Default admin created")
	}
	return nil
}

type demoSemester struct {
	number   int
	name     string
	subjects [][2]string
}

var demoDegrees = []struct {
	name      appModels.DegreeName
	shortName string
	semesters []demoSemester
}{
	{
		name:      appModels.DegreeCivil,
		shortName: "CE",
		semesters: []demoSemester{
			{1, "Fall", [][2]string{{"Engineering Mathematics I", "MATH101"}, {"Statics", "CE101"}}},
			{2, "Spring", [][2]string{{"Strength of Materials", "CE102"}, {"Surveying", "CE104"}}},
		},
	},
	{
		name:      appModels.DegreeComputer,
		shortName: "CENG",
		semesters: []demoSemester{
			{1, "Fall", [][2]string{{"Introduction to Programming", "CENG101"}, {"Discrete Mathematics", "CENG103"}}},
			{2, "Spring", [][2]string{{"Data Structures", "CENG102"}}},
		},
	},
}

// DemoCatalog creates demo degrees, semesters and subjects when the catalog
// is empty. Notes need real PDFs and are left to the admin.
func DemoCatalog(ctx context.Context, catalogService *appServices.CatalogService, lgr zerolog.Logger) error {
	existing, err := catalogService.ListDegrees(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		lgr.Debug().Int("degrees", len(existing)).Msg("Catalog not empty, skipping demo data")
		return nil
	}

	lgr.Info().Msg("Creating demo catalog...")
	for _, d := range demoDegrees {
		degree := &appModels.Degree{Name: d.name, ShortName: d.shortName}
		if err := catalogService.CreateDegree(ctx, degree); err != nil {
			return fmt.Errorf("degree %s: %w", d.name, err)
		}
		for _, s := range d.semesters {
			semester := &appModels.Semester{Number: s.number, Name: s.name, DegreeID: degree.ID}
			if err := catalogService.CreateSemester(ctx, semester); err != nil {
				return fmt.Errorf("semester %d of %s: %w", s.number, d.name, err)
			}
			for _, sub := range s.subjects {
				subject := &appModels.Subject{Name: sub[0], Code: sub[1], SemesterID: semester.ID}
				if err := catalogService.CreateSubject(ctx, subject); err != nil {
					return fmt.Errorf("subject %s: %w", sub[1], err)
				}
			}
		}
	}
	return nil
}
