package httpapi

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cwwmbm/skycast/internal/forecast"
	"github.com/cwwmbm/skycast/internal/geo"
	"github.com/cwwmbm/skycast/internal/search"
	"github.com/cwwmbm/skycast/internal/session"
	"github.com/cwwmbm/skycast/internal/store"
)

var validate = validator.New()

// Deps are the core components the facade exposes. Session may be nil when
// no positioning sources exist; the resolve endpoint then reports 503.
type Deps struct {
	Forecast forecast.Client
	Searcher search.Searcher
	Saved    *store.SavedStore
	Session  *session.Session
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		var req forecastQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var (
			daily  *forecast.DailyForecast
			hourly *forecast.HourlyForecast
		)
		g, ctx := errgroup.WithContext(c.Context())
		g.Go(func() error {
			d, err := deps.Forecast.FetchDaily(ctx, req.Lat, req.Lon, req.Days)
			daily = d
			return err
		})
		g.Go(func() error {
			h, err := deps.Forecast.FetchHourly(ctx, req.Lat, req.Lon, req.Hours)
			hourly = h
			return err
		})
		if err := g.Wait(); err != nil {
			log.Printf("forecast facade fetch failed: %v", err)
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch forecast data")
		}

		return c.JSON(fiber.Map{
			"daily":  daily,
			"hourly": hourly,
		})
	})

	v1.Get("/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
		}
		limit := c.QueryInt("limit", 5)
		if limit < 1 || limit > 20 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 20")
		}

		results, err := deps.Searcher.Search(c.Context(), query, limit)
		if err != nil {
			// Search failures degrade to an empty result list.
			log.Printf("search facade: query %q failed: %v", query, err)
			results = nil
		}
		if results == nil {
			results = []geo.GeocodeResult{}
		}
		return c.JSON(fiber.Map{"results": results})
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		locations := deps.Saved.List()
		if locations == nil {
			locations = []geo.SavedLocation{}
		}
		return c.JSON(fiber.Map{"locations": locations})
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		var place saveLocationBody
		if err := c.BodyParser(&place); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(place); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := deps.Saved.Add(place.toGeocodeResult()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"saved": true})
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id must be an integer")
		}
		if err := deps.Saved.Remove(id); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove location")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/location/resolve", func(c *fiber.Ctx) error {
		if deps.Session == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "location resolution is not configured")
		}
		res := deps.Session.UseCurrentLocation(context.Background())
		return c.JSON(fiber.Map{
			"coordinate": res.Coordinate,
			"fallback":   res.UsedFallback,
			"notice":     res.Notice,
		})
	})
}

// forecastQuery holds and validates the forecast endpoint parameters.
type forecastQuery struct {
	Lat   float64 `validate:"gte=-90,lte=90"`
	Lon   float64 `validate:"gte=-180,lte=180"`
	Days  int     `validate:"min=1,max=16"`
	Hours int     `validate:"min=1,max=168"`
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return errors.New("lon must be a number")
	}

	q.Lat = lat
	q.Lon = lon
	q.Days = c.QueryInt("days", 14)
	q.Hours = c.QueryInt("hours", 48)

	return validate.Struct(q)
}

// saveLocationBody mirrors a GeocodeResult with validation tags.
type saveLocationBody struct {
	ID        int64   `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Country   string  `json:"country" validate:"required"`
	Admin1    string  `json:"admin1"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

func (b saveLocationBody) toGeocodeResult() geo.GeocodeResult {
	return geo.GeocodeResult{
		ID:        b.ID,
		Name:      b.Name,
		Country:   b.Country,
		Admin1:    b.Admin1,
		Latitude:  b.Latitude,
		Longitude: b.Longitude,
	}
}
