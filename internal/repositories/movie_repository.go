package repositories

import (
	"context"

	"cinema/internal/models"
)

// MovieFilter narrows and orders a movie listing.
type MovieFilter struct {
	Search string // matched against name and description
	Year   int
	SortBy string // column name, already validated by the caller
	Desc   bool
	Page
}

// MovieRepository defines the interface for movie data access.
type MovieRepository interface {
	List(ctx context.Context, filter MovieFilter) ([]models.Movie, int64, error)
	GetByID(ctx context.Context, id string) (*models.Movie, error)
	Create(ctx context.Context, movie *models.Movie) error
	Update(ctx context.Context, movie *models.Movie) error
	ReplaceAssociation(ctx context.Context, movie *models.Movie, name string, values interface{}) error
	Delete(ctx context.Context, id string) error
	CountPurchases(ctx context.Context, movieID string) (int64, error)
}

// CatalogRepository stores the lookup entities movies refer to.
type CatalogRepository interface {
	CreateGenre(ctx context.Context, genre *models.Genre) error
	CreateDirector(ctx context.Context, director *models.Director) error
	CreateStar(ctx context.Context, star *models.Star) error
	CreateCertification(ctx context.Context, cert *models.Certification) error
	FindGenres(ctx context.Context, ids []string) ([]models.Genre, error)
	FindDirectors(ctx context.Context, ids []string) ([]models.Director, error)
	FindStars(ctx context.Context, ids []string) ([]models.Star, error)
	GetCertification(ctx context.Context, id string) (*models.Certification, error)
	ListCertifications(ctx context.Context) ([]models.Certification, error)
	GenresWithCount(ctx context.Context) ([]models.GenreCount, error)
}
