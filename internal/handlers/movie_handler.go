package handlers

import (
	"cinema/internal/access"
	"cinema/internal/middleware"
	"cinema/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MovieHandler handles HTTP requests for the movie catalog.
type MovieHandler struct {
	service  *services.CatalogService
	validate *validator.Validate
	log      *zap.Logger
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(service *services.CatalogService, validate *validator.Validate, log *zap.Logger) *MovieHandler {
	return &MovieHandler{
		service:  service,
		validate: validate,
		log:      log.Named("movie_handler"),
	}
}

// RegisterRoutes registers the catalog routes. Reads are public.
func (h *MovieHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	manage := middleware.RequireCapability(access.ManageCatalog)

	movieRoutes := router.Group("/movies")
	movieRoutes.Get("/", h.HandleListMovies)
	movieRoutes.Get("/:id", h.HandleGetMovie)
	movieRoutes.Post("/", auth, manage, h.HandleCreateMovie)
	movieRoutes.Put("/:id", auth, manage, h.HandleUpdateMovie)
	movieRoutes.Delete("/:id", auth, manage, h.HandleDeleteMovie)

	router.Get("/genres", h.HandleListGenres)
	router.Post("/genres", auth, manage, h.HandleCreateGenre)
	router.Post("/directors", auth, manage, h.HandleCreateDirector)
	router.Post("/stars", auth, manage, h.HandleCreateStar)
	router.Get("/certifications", h.HandleListCertifications)
	router.Post("/certifications", auth, middleware.RequireCapability(access.ManageCertifications), h.HandleCreateCertification)
}

type movieListQuery struct {
	Search string `query:"search"`
	Year   int    `query:"year" validate:"omitempty,gte=1888"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=name year price imdb votes time"`
	Order  string `query:"order" validate:"omitempty,oneof=asc desc"`
	Skip   int    `query:"skip" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

// HandleListMovies retrieves one page of movies.
func (h *MovieHandler) HandleListMovies(c *fiber.Ctx) error {
	var q movieListQuery
	if err := c.QueryParser(&q); err != nil {
		return writeError(c, h.log, errInvalidBody.With(err))
	}
	if err := check(h.validate, q); err != nil {
		return writeError(c, h.log, err)
	}

	movies, total, err := h.service.ListMovies(c.UserContext(), services.MovieQuery{
		Search: q.Search,
		Year:   q.Year,
		SortBy: q.SortBy,
		Order:  q.Order,
		Skip:   q.Skip,
		Limit:  q.Limit,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(page(total, "movies", movies))
}

// HandleGetMovie retrieves a single movie by its ID.
func (h *MovieHandler) HandleGetMovie(c *fiber.Ctx) error {
	movie, err := h.service.GetMovie(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(movie)
}

// MovieRequest is the body of a new movie.
type MovieRequest struct {
	Name            string          `json:"name" validate:"required,max=255"`
	Year            int             `json:"year" validate:"required,gte=1888"`
	Time            int             `json:"time" validate:"required,gt=0"`
	IMDb            float64         `json:"imdb" validate:"gte=0,lte=10"`
	Votes           int             `json:"votes" validate:"gte=0"`
	MetaScore       *float64        `json:"meta_score" validate:"omitempty,gte=0,lte=100"`
	Gross           *float64        `json:"gross" validate:"omitempty,gte=0"`
	Description     string          `json:"description" validate:"required"`
	Price           decimal.Decimal `json:"price"`
	CertificationID string          `json:"certification_id" validate:"required"`
	GenreIDs        []string        `json:"genre_ids"`
	DirectorIDs     []string        `json:"director_ids"`
	StarIDs         []string        `json:"star_ids"`
}

// HandleCreateMovie creates a new movie.
func (h *MovieHandler) HandleCreateMovie(c *fiber.Ctx) error {
	var req MovieRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}
	if !req.Price.Round(2).IsPositive() {
		return writeError(c, h.log, priceFailure())
	}

	movie, err := h.service.CreateMovie(c.UserContext(), middleware.ActorFrom(c), services.MovieInput{
		Name:            req.Name,
		Year:            req.Year,
		Time:            req.Time,
		IMDb:            req.IMDb,
		Votes:           req.Votes,
		MetaScore:       req.MetaScore,
		Gross:           req.Gross,
		Description:     req.Description,
		Price:           req.Price,
		CertificationID: req.CertificationID,
		GenreIDs:        req.GenreIDs,
		DirectorIDs:     req.DirectorIDs,
		StarIDs:         req.StarIDs,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(movie)
}

// MovieUpdateRequest changes only the fields present in the body.
type MovieUpdateRequest struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Year            *int             `json:"year" validate:"omitempty,gte=1888"`
	Time            *int             `json:"time" validate:"omitempty,gt=0"`
	IMDb            *float64         `json:"imdb" validate:"omitempty,gte=0,lte=10"`
	Votes           *int             `json:"votes" validate:"omitempty,gte=0"`
	MetaScore       *float64         `json:"meta_score" validate:"omitempty,gte=0,lte=100"`
	Gross           *float64         `json:"gross" validate:"omitempty,gte=0"`
	Description     *string          `json:"description" validate:"omitempty,min=1"`
	Price           *decimal.Decimal `json:"price"`
	CertificationID *string          `json:"certification_id" validate:"omitempty,min=1"`
	GenreIDs        *[]string        `json:"genre_ids"`
	DirectorIDs     *[]string        `json:"director_ids"`
	StarIDs         *[]string        `json:"star_ids"`
}

// HandleUpdateMovie applies a partial update to a movie.
func (h *MovieHandler) HandleUpdateMovie(c *fiber.Ctx) error {
	var req MovieUpdateRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}
	if req.Price != nil && !req.Price.Round(2).IsPositive() {
		return writeError(c, h.log, priceFailure())
	}

	movie, err := h.service.UpdateMovie(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), services.MovieUpdate{
		Name:            req.Name,
		Year:            req.Year,
		Time:            req.Time,
		IMDb:            req.IMDb,
		Votes:           req.Votes,
		MetaScore:       req.MetaScore,
		Gross:           req.Gross,
		Description:     req.Description,
		Price:           req.Price,
		CertificationID: req.CertificationID,
		GenreIDs:        req.GenreIDs,
		DirectorIDs:     req.DirectorIDs,
		StarIDs:         req.StarIDs,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(movie)
}

// HandleDeleteMovie deletes a movie nobody has ordered.
func (h *MovieHandler) HandleDeleteMovie(c *fiber.Ctx) error {
	if err := h.service.DeleteMovie(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type nameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

func (h *MovieHandler) createNamed(c *fiber.Ctx, create func(name string) (interface{}, error)) error {
	var req nameRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}
	created, err := create(req.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *MovieHandler) HandleCreateGenre(c *fiber.Ctx) error {
	return h.createNamed(c, func(name string) (interface{}, error) {
		return h.service.CreateGenre(c.UserContext(), middleware.ActorFrom(c), name)
	})
}

func (h *MovieHandler) HandleCreateDirector(c *fiber.Ctx) error {
	return h.createNamed(c, func(name string) (interface{}, error) {
		return h.service.CreateDirector(c.UserContext(), middleware.ActorFrom(c), name)
	})
}

func (h *MovieHandler) HandleCreateStar(c *fiber.Ctx) error {
	return h.createNamed(c, func(name string) (interface{}, error) {
		return h.service.CreateStar(c.UserContext(), middleware.ActorFrom(c), name)
	})
}

func (h *MovieHandler) HandleCreateCertification(c *fiber.Ctx) error {
	return h.createNamed(c, func(name string) (interface{}, error) {
		return h.service.CreateCertification(c.UserContext(), middleware.ActorFrom(c), name)
	})
}

// HandleListGenres lists genres with the number of movies in each.
func (h *MovieHandler) HandleListGenres(c *fiber.Ctx) error {
	genres, err := h.service.ListGenres(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(genres)
}

func (h *MovieHandler) HandleListCertifications(c *fiber.Ctx) error {
	certs, err := h.service.ListCertifications(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(certs)
}

func priceFailure() error {
	return &validationFailure{fields: map[string]string{
		"Price": "Field 'Price' failed on the 'gt' tag",
	}}
}
