package repositories

import (
	"context"
	"fmt"
	"strings"

	"cinema/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMMovieRepository is a GORM implementation of MovieRepository.
type GORMMovieRepository struct {
	db *gorm.DB
}

// NewGORMMovieRepository creates a new instance of GORMMovieRepository.
func NewGORMMovieRepository(db *gorm.DB) *GORMMovieRepository {
	return &GORMMovieRepository{
		db: db,
	}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Certification").Preload("Genres").Preload("Directors").Preload("Stars")
}

// List retrieves one page of movies and the total match count.
func (r *GORMMovieRepository) List(ctx context.Context, filter MovieFilter) ([]models.Movie, int64, error) {
	q := conn(ctx, r.db).Model(&models.Movie{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Year != 0 {
		q = q.Where("year = ?", filter.Year)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count movies: %w", err)
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: filter.Desc}).Order("id")

	var movies []models.Movie
	if err := withDetails(paginate(q, filter.Page)).Find(&movies).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, total, nil
}

// GetByID retrieves a single movie with its associations.
func (r *GORMMovieRepository) GetByID(ctx context.Context, id string) (*models.Movie, error) {
	var movie models.Movie
	if err := withDetails(conn(ctx, r.db)).First(&movie, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get movie by ID %s: %w", id, translate(err))
	}
	return &movie, nil
}

// Create creates a movie and links the genres, directors and stars it carries.
func (r *GORMMovieRepository) Create(ctx context.Context, movie *models.Movie) error {
	if err := conn(ctx, r.db).Omit("Certification").Create(movie).Error; err != nil {
		return fmt.Errorf("failed to create movie: %w", translate(err))
	}
	return nil
}

// Update saves the scalar columns of an existing movie.
func (r *GORMMovieRepository) Update(ctx context.Context, movie *models.Movie) error {
	res := conn(ctx, r.db).Omit(clause.Associations).Save(movie)
	if res.Error != nil {
		return fmt.Errorf("failed to update movie: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("movie with ID %s: %w", movie.ID, ErrNotFound)
	}
	return nil
}

// ReplaceAssociation replaces the many-to-many association name ("Genres",
// "Directors" or "Stars") of movie with values.
func (r *GORMMovieRepository) ReplaceAssociation(ctx context.Context, movie *models.Movie, name string, values interface{}) error {
	if err := conn(ctx, r.db).Model(movie).Association(name).Replace(values); err != nil {
		return fmt.Errorf("failed to replace %s of movie %s: %w", strings.ToLower(name), movie.ID, err)
	}
	return nil
}

// Delete removes a movie, its association rows and any cart items pointing at it.
func (r *GORMMovieRepository) Delete(ctx context.Context, id string) error {
	db := conn(ctx, r.db)
	if err := db.Delete(&models.CartItem{}, "movie_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete cart items of movie %s: %w", id, err)
	}
	res := db.Select("Genres", "Directors", "Stars").Delete(&models.Movie{Base: models.Base{ID: id}})
	if res.Error != nil {
		return fmt.Errorf("failed to delete movie: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("movie with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountPurchases counts the order items that reference the movie.
func (r *GORMMovieRepository) CountPurchases(ctx context.Context, movieID string) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&models.OrderItem{}).Where("movie_id = ?", movieID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count order items of movie %s: %w", movieID, err)
	}
	return n, nil
}

// GORMCatalogRepository is a GORM implementation of CatalogRepository.
type GORMCatalogRepository struct {
	db *gorm.DB
}

// NewGORMCatalogRepository creates a new instance of GORMCatalogRepository.
func NewGORMCatalogRepository(db *gorm.DB) *GORMCatalogRepository {
	return &GORMCatalogRepository{db: db}
}

func (r *GORMCatalogRepository) create(ctx context.Context, kind string, value interface{}) error {
	if err := conn(ctx, r.db).Create(value).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", kind, translate(err))
	}
	return nil
}

func (r *GORMCatalogRepository) CreateGenre(ctx context.Context, genre *models.Genre) error {
	return r.create(ctx, "genre", genre)
}

func (r *GORMCatalogRepository) CreateDirector(ctx context.Context, director *models.Director) error {
	return r.create(ctx, "director", director)
}

func (r *GORMCatalogRepository) CreateStar(ctx context.Context, star *models.Star) error {
	return r.create(ctx, "star", star)
}

func (r *GORMCatalogRepository) CreateCertification(ctx context.Context, cert *models.Certification) error {
	return r.create(ctx, "certification", cert)
}

func (r *GORMCatalogRepository) FindGenres(ctx context.Context, ids []string) ([]models.Genre, error) {
	genres := []models.Genre{}
	if len(ids) == 0 {
		return genres, nil
	}
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("failed to find genres: %w", err)
	}
	return genres, nil
}

func (r *GORMCatalogRepository) FindDirectors(ctx context.Context, ids []string) ([]models.Director, error) {
	directors := []models.Director{}
	if len(ids) == 0 {
		return directors, nil
	}
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&directors).Error; err != nil {
		return nil, fmt.Errorf("failed to find directors: %w", err)
	}
	return directors, nil
}

func (r *GORMCatalogRepository) FindStars(ctx context.Context, ids []string) ([]models.Star, error) {
	stars := []models.Star{}
	if len(ids) == 0 {
		return stars, nil
	}
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&stars).Error; err != nil {
		return nil, fmt.Errorf("failed to find stars: %w", err)
	}
	return stars, nil
}

func (r *GORMCatalogRepository) GetCertification(ctx context.Context, id string) (*models.Certification, error) {
	var cert models.Certification
	if err := conn(ctx, r.db).First(&cert, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get certification %s: %w", id, translate(err))
	}
	return &cert, nil
}

func (r *GORMCatalogRepository) ListCertifications(ctx context.Context) ([]models.Certification, error) {
	var certs []models.Certification
	if err := conn(ctx, r.db).Order("name").Find(&certs).Error; err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	return certs, nil
}

// GenresWithCount lists every genre with the number of movies linked to it.
func (r *GORMCatalogRepository) GenresWithCount(ctx context.Context) ([]models.GenreCount, error) {
	var out []models.GenreCount
	err := conn(ctx, r.db).Model(&models.Genre{}).
		Select("genres.id, genres.name, COUNT(movie_genres.movie_id) AS movie_count").
		Joins("LEFT JOIN movie_genres ON movie_genres.genre_id = genres.id").
		Group("genres.id, genres.name").
		Order("genres.name").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return out, nil
}
