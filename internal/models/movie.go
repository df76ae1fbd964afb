package models

import "github.com/shopspring/decimal"

// Certification is an age rating such as PG-13.
type Certification struct {
	Base
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(100);not null" validate:"required,min=1,max=100"`
}

// Genre groups movies by kind.
type Genre struct {
	Base
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(100);not null" validate:"required,min=1,max=100"`
}

// Director is a person credited with directing a movie.
type Director struct {
	Base
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(100);not null" validate:"required,min=1,max=100"`
}

// Star is a person credited as a cast member.
type Star struct {
	Base
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(100);not null" validate:"required,min=1,max=100"`
}

// GenreCount is a genre with the number of movies attached to it.
type GenreCount struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MovieCount int64  `json:"movie_count"`
}

// Movie represents a purchasable title in the catalog.
type Movie struct {
	Base
	Name            string          `json:"name" gorm:"uniqueIndex:idx_movie_identity;type:varchar(255);not null"`
	Year            int             `json:"year" gorm:"uniqueIndex:idx_movie_identity;not null"`
	Time            int             `json:"time" gorm:"uniqueIndex:idx_movie_identity;not null"` // minutes
	IMDb            float64         `json:"imdb" gorm:"column:imdb;not null"`
	Votes           int             `json:"votes" gorm:"not null"`
	MetaScore       *float64        `json:"meta_score"`
	Gross           *float64        `json:"gross"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	Price           decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	CertificationID string          `json:"certification_id" gorm:"type:varchar(36);index;not null"`
	Certification   *Certification  `json:"certification,omitempty"`
	Genres          []Genre         `json:"genres" gorm:"many2many:movie_genres;"`
	Directors       []Director      `json:"directors" gorm:"many2many:movie_directors;"`
	Stars           []Star          `json:"stars" gorm:"many2many:movie_stars;"`
}
