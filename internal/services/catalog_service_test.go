package services_test

import (
	"context"
	"errors"
	"testing"

	"cinema/internal/access"
	"cinema/internal/apperr"
	"cinema/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCreateAndUpdateMovie(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	admin := s.user(t, "admin@example.com", access.RoleAdmin)
	mod := s.user(t, "mod@example.com", access.RoleModerator)
	alice := s.user(t, "alice@example.com", access.RoleUser)

	_, err := s.catalog.CreateCertification(ctx, mod, "R")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	cert, err := s.catalog.CreateCertification(ctx, admin, "R")
	require.NoError(t, err)
	_, err = s.catalog.CreateCertification(ctx, admin, "R")
	assert.True(t, errors.Is(err, apperr.ErrDuplicateName))

	scifi, err := s.catalog.CreateGenre(ctx, mod, "Sci-Fi")
	require.NoError(t, err)
	action, err := s.catalog.CreateGenre(ctx, mod, "Action")
	require.NoError(t, err)
	wachowski, err := s.catalog.CreateDirector(ctx, mod, "Lana Wachowski")
	require.NoError(t, err)
	keanu, err := s.catalog.CreateStar(ctx, mod, "Keanu Reeves")
	require.NoError(t, err)

	in := services.MovieInput{
		Name:            "The Matrix",
		Year:            1999,
		Time:            136,
		IMDb:            8.7,
		Votes:           2000000,
		Description:     "Wake up",
		Price:           decimal.RequireFromString("9.99"),
		CertificationID: cert.ID,
		GenreIDs:        []string{scifi.ID, "unknown"},
		DirectorIDs:     []string{wachowski.ID},
		StarIDs:         []string{keanu.ID},
	}
	_, err = s.catalog.CreateMovie(ctx, alice, in)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	movie, err := s.catalog.CreateMovie(ctx, mod, in)
	require.NoError(t, err)
	assert.Len(t, movie.Genres, 1)
	assert.Len(t, movie.Directors, 1)
	assert.Len(t, movie.Stars, 1)
	require.NotNil(t, movie.Certification)
	assert.Equal(t, "R", movie.Certification.Name)

	_, err = s.catalog.CreateMovie(ctx, mod, in)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateMovie))

	bad := in
	bad.Name = "Other"
	bad.CertificationID = "missing"
	_, err = s.catalog.CreateMovie(ctx, mod, bad)
	assert.True(t, errors.Is(err, apperr.ErrCertificationNotFound))

	price := decimal.RequireFromString("12.50")
	genres := []string{action.ID}
	updated, err := s.catalog.UpdateMovie(ctx, mod, movie.ID, services.MovieUpdate{Price: &price, GenreIDs: &genres})
	require.NoError(t, err)
	assert.True(t, price.Equal(updated.Price))
	require.Len(t, updated.Genres, 1)
	assert.Equal(t, "Action", updated.Genres[0].Name)
	assert.Equal(t, "The Matrix", updated.Name)
	assert.Len(t, updated.Stars, 1)

	counts, err := s.catalog.ListGenres(ctx)
	require.NoError(t, err)
	for _, g := range counts {
		switch g.Name {
		case "Action":
			assert.EqualValues(t, 1, g.MovieCount)
		case "Sci-Fi":
			assert.EqualValues(t, 0, g.MovieCount)
		}
	}
}

func TestCatalogRejectsSubCentPrice(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	mod := s.user(t, "mod@example.com", access.RoleModerator)
	cert, err := s.catalog.CreateCertification(ctx, s.user(t, "admin@example.com", access.RoleAdmin), "PG")
	require.NoError(t, err)

	in := services.MovieInput{
		Name:            "Heat",
		Year:            1995,
		Time:            170,
		Description:     "LA",
		Price:           decimal.RequireFromString("0.004"),
		CertificationID: cert.ID,
	}
	_, err = s.catalog.CreateMovie(ctx, mod, in)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	in.Price = decimal.RequireFromString("0.005")
	movie, err := s.catalog.CreateMovie(ctx, mod, in)
	require.NoError(t, err)
	assert.Equal(t, "0.01", movie.Price.StringFixed(2))

	tiny := decimal.RequireFromString("0.001")
	_, err = s.catalog.UpdateMovie(ctx, mod, movie.ID, services.MovieUpdate{Price: &tiny})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	stored, err := s.catalog.GetMovie(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.01", stored.Price.StringFixed(2))
}

func TestCatalogListMovies(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	s.movie(t, "Heat", "4.99")
	s.movie(t, "The Matrix", "9.99")
	s.movie(t, "Alien", "7.50")

	movies, total, err := s.catalog.ListMovies(ctx, services.MovieQuery{SortBy: "price", Order: "desc", Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, movies, 2)
	assert.Equal(t, "The Matrix", movies[0].Name)
	assert.Equal(t, "Alien", movies[1].Name)

	movies, total, err = s.catalog.ListMovies(ctx, services.MovieQuery{Search: "matrix"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, movies, 1)

	_, _, err = s.catalog.ListMovies(ctx, services.MovieQuery{SortBy: "password"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, _, err = s.catalog.ListMovies(ctx, services.MovieQuery{Order: "sideways"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestCatalogDeleteMovie(t *testing.T) {
	s := newMockShop(t)
	ctx := context.Background()
	mod := s.user(t, "mod@example.com", access.RoleModerator)
	alice := s.user(t, "alice@example.com", access.RoleUser)
	bob := s.user(t, "bob@example.com", access.RoleUser)
	matrix := s.movie(t, "The Matrix", "9.99")
	heat := s.movie(t, "Heat", "4.99")

	s.checkout(t, alice, matrix)
	err := s.catalog.DeleteMovie(ctx, mod, matrix.ID)
	assert.True(t, errors.Is(err, apperr.ErrMoviePurchased))

	_, err = s.carts.AddItem(ctx, bob.UserID, heat.ID)
	require.NoError(t, err)
	assert.True(t, errors.Is(s.catalog.DeleteMovie(ctx, alice, heat.ID), apperr.ErrForbidden))
	require.NoError(t, s.catalog.DeleteMovie(ctx, mod, heat.ID))

	cart, err := s.carts.Get(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = s.catalog.GetMovie(ctx, heat.ID)
	assert.True(t, errors.Is(err, apperr.ErrMovieNotFound))
}
