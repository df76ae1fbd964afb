package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cinema/internal/access"
	"cinema/internal/apperr"
	"cinema/internal/models"
	"cinema/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var movieSortColumns = map[string]bool{
	"name":  true,
	"year":  true,
	"price": true,
	"imdb":  true,
	"votes": true,
	"time":  true,
}

// MovieQuery are the public listing filters.
type MovieQuery struct {
	Search string
	Year   int
	SortBy string
	Order  string // asc or desc
	Skip   int
	Limit  int
}

// MovieInput carries every field of a new movie.
type MovieInput struct {
	Name            string
	Year            int
	Time            int
	IMDb            float64
	Votes           int
	MetaScore       *float64
	Gross           *float64
	Description     string
	Price           decimal.Decimal
	CertificationID string
	GenreIDs        []string
	DirectorIDs     []string
	StarIDs         []string
}

// MovieUpdate changes only the fields that are set.
type MovieUpdate struct {
	Name            *string
	Year            *int
	Time            *int
	IMDb            *float64
	Votes           *int
	MetaScore       *float64
	Gross           *float64
	Description     *string
	Price           *decimal.Decimal
	CertificationID *string
	GenreIDs        *[]string
	DirectorIDs     *[]string
	StarIDs         *[]string
}

// CatalogService handles business logic related to movies and their lookups.
type CatalogService struct {
	movies  repositories.MovieRepository
	catalog repositories.CatalogRepository
	tx      Transactor
	log     *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(movies repositories.MovieRepository, catalog repositories.CatalogRepository, tx Transactor, log *zap.Logger) *CatalogService {
	return &CatalogService{
		movies:  movies,
		catalog: catalog,
		tx:      tx,
		log:     log.Named("catalog"),
	}
}

// ListMovies retrieves one page of movies.
func (s *CatalogService) ListMovies(ctx context.Context, q MovieQuery) ([]models.Movie, int64, error) {
	sortBy := strings.ToLower(q.SortBy)
	if sortBy == "" {
		sortBy = "name"
	}
	if !movieSortColumns[sortBy] {
		return nil, 0, apperr.ErrValidation.With(fmt.Errorf("cannot sort by %q", q.SortBy))
	}
	order := strings.ToLower(q.Order)
	if order != "" && order != "asc" && order != "desc" {
		return nil, 0, apperr.ErrValidation.With(fmt.Errorf("order must be asc or desc"))
	}

	return s.movies.List(ctx, repositories.MovieFilter{
		Search: strings.TrimSpace(q.Search),
		Year:   q.Year,
		SortBy: sortBy,
		Desc:   order == "desc",
		Page:   ListParams{Skip: q.Skip, Limit: q.Limit}.page(),
	})
}

// GetMovie retrieves a single movie with its genres, directors, stars and certification.
func (s *CatalogService) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, apperr.ErrMovieNotFound)
	}
	return movie, nil
}

// CreateMovie adds a movie. Unknown genre, director and star ids are ignored;
// the certification must exist.
func (s *CatalogService) CreateMovie(ctx context.Context, actor access.Actor, in MovieInput) (*models.Movie, error) {
	if !actor.Can(access.ManageCatalog) {
		return nil, apperr.ErrForbidden
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}

	movie := &models.Movie{
		Name:            strings.TrimSpace(in.Name),
		Year:            in.Year,
		Time:            in.Time,
		IMDb:            in.IMDb,
		Votes:           in.Votes,
		MetaScore:       in.MetaScore,
		Gross:           in.Gross,
		Description:     in.Description,
		Price:           in.Price.Round(2),
		CertificationID: in.CertificationID,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.catalog.GetCertification(ctx, in.CertificationID); err != nil {
			return notFoundAs(err, apperr.ErrCertificationNotFound)
		}

		var err error
		if movie.Genres, err = s.catalog.FindGenres(ctx, in.GenreIDs); err != nil {
			return err
		}
		if movie.Directors, err = s.catalog.FindDirectors(ctx, in.DirectorIDs); err != nil {
			return err
		}
		if movie.Stars, err = s.catalog.FindStars(ctx, in.StarIDs); err != nil {
			return err
		}

		if err := s.movies.Create(ctx, movie); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperr.ErrDuplicateMovie
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Movie created", zap.String("movie_id", movie.ID), zap.String("by", actor.UserID))
	return s.GetMovie(ctx, movie.ID)
}

// UpdateMovie applies a partial update.
func (s *CatalogService) UpdateMovie(ctx context.Context, actor access.Actor, id string, upd MovieUpdate) (*models.Movie, error) {
	if !actor.Can(access.ManageCatalog) {
		return nil, apperr.ErrForbidden
	}
	if upd.Price != nil {
		if err := checkPrice(*upd.Price); err != nil {
			return nil, err
		}
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		movie, err := s.movies.GetByID(ctx, id)
		if err != nil {
			return notFoundAs(err, apperr.ErrMovieNotFound)
		}

		applyMovieUpdate(movie, upd)
		if upd.CertificationID != nil {
			if _, err := s.catalog.GetCertification(ctx, *upd.CertificationID); err != nil {
				return notFoundAs(err, apperr.ErrCertificationNotFound)
			}
			movie.Certification = nil
		}

		if err := s.movies.Update(ctx, movie); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperr.ErrDuplicateMovie
			}
			return err
		}

		if upd.GenreIDs != nil {
			genres, err := s.catalog.FindGenres(ctx, *upd.GenreIDs)
			if err != nil {
				return err
			}
			if err := s.movies.ReplaceAssociation(ctx, movie, "Genres", genres); err != nil {
				return err
			}
		}
		if upd.DirectorIDs != nil {
			directors, err := s.catalog.FindDirectors(ctx, *upd.DirectorIDs)
			if err != nil {
				return err
			}
			if err := s.movies.ReplaceAssociation(ctx, movie, "Directors", directors); err != nil {
				return err
			}
		}
		if upd.StarIDs != nil {
			stars, err := s.catalog.FindStars(ctx, *upd.StarIDs)
			if err != nil {
				return err
			}
			if err := s.movies.ReplaceAssociation(ctx, movie, "Stars", stars); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMovie(ctx, id)
}

// checkPrice rejects prices that round to zero cents or less.
func checkPrice(price decimal.Decimal) error {
	if !price.Round(2).IsPositive() {
		return apperr.ErrValidation.With(fmt.Errorf("price %s is not a positive amount of cents", price))
	}
	return nil
}

func applyMovieUpdate(m *models.Movie, upd MovieUpdate) {
	if upd.Name != nil {
		m.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Year != nil {
		m.Year = *upd.Year
	}
	if upd.Time != nil {
		m.Time = *upd.Time
	}
	if upd.IMDb != nil {
		m.IMDb = *upd.IMDb
	}
	if upd.Votes != nil {
		m.Votes = *upd.Votes
	}
	if upd.MetaScore != nil {
		m.MetaScore = upd.MetaScore
	}
	if upd.Gross != nil {
		m.Gross = upd.Gross
	}
	if upd.Description != nil {
		m.Description = *upd.Description
	}
	if upd.Price != nil {
		m.Price = upd.Price.Round(2)
	}
	if upd.CertificationID != nil {
		m.CertificationID = *upd.CertificationID
	}
}

// DeleteMovie removes a movie nobody has ordered.
func (s *CatalogService) DeleteMovie(ctx context.Context, actor access.Actor, id string) error {
	if !actor.Can(access.ManageCatalog) {
		return apperr.ErrForbidden
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := s.movies.CountPurchases(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.ErrMoviePurchased
		}
		if err := s.movies.Delete(ctx, id); err != nil {
			return notFoundAs(err, apperr.ErrMovieNotFound)
		}
		s.log.Info("Movie deleted", zap.String("movie_id", id), zap.String("by", actor.UserID))
		return nil
	})
}

func (s *CatalogService) CreateGenre(ctx context.Context, actor access.Actor, name string) (*models.Genre, error) {
	if !actor.Can(access.ManageCatalog) {
		return nil, apperr.ErrForbidden
	}
	genre := &models.Genre{Name: strings.TrimSpace(name)}
	if err := s.catalog.CreateGenre(ctx, genre); err != nil {
		return nil, duplicateName(err)
	}
	return genre, nil
}

func (s *CatalogService) CreateDirector(ctx context.Context, actor access.Actor, name string) (*models.Director, error) {
	if !actor.Can(access.ManageCatalog) {
		return nil, apperr.ErrForbidden
	}
	director := &models.Director{Name: strings.TrimSpace(name)}
	if err := s.catalog.CreateDirector(ctx, director); err != nil {
		return nil, duplicateName(err)
	}
	return director, nil
}

func (s *CatalogService) CreateStar(ctx context.Context, actor access.Actor, name string) (*models.Star, error) {
	if !actor.Can(access.ManageCatalog) {
		return nil, apperr.ErrForbidden
	}
	star := &models.Star{Name: strings.TrimSpace(name)}
	if err := s.catalog.CreateStar(ctx, star); err != nil {
		return nil, duplicateName(err)
	}
	return star, nil
}

func (s *CatalogService) CreateCertification(ctx context.Context, actor access.Actor, name string) (*models.Certification, error) {
	if !actor.Can(access.ManageCertifications) {
		return nil, apperr.ErrForbidden
	}
	cert := &models.Certification{Name: strings.TrimSpace(name)}
	if err := s.catalog.CreateCertification(ctx, cert); err != nil {
		return nil, duplicateName(err)
	}
	return cert, nil
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]models.GenreCount, error) {
	return s.catalog.GenresWithCount(ctx)
}

func (s *CatalogService) ListCertifications(ctx context.Context) ([]models.Certification, error) {
	return s.catalog.ListCertifications(ctx)
}

func duplicateName(err error) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return apperr.ErrDuplicateName
	}
	return err
}
