package http

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

// HeatPointView is one rendered heatmap bin.
type HeatPointView struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Count     int     `json:"count"`
	Intensity float64 `json:"intensity"`
}

// HeatmapResponse is the heatmap layer with its rendering settings.
type HeatmapResponse struct {
	Points     []HeatPointView      `json:"points"`
	Status     domain.HeatmapStatus `json:"status"`
	Radius     int                  `json:"radius"`
	BlurRadius int                  `json:"blur_radius"`
}

// DotsResponse holds one position per matching item.
type DotsResponse struct {
	Dots  [][2]float64 `json:"dots"`
	Count int          `json:"count"`
}

func heatmapResponse(deps *Dependencies) HeatmapResponse {
	hm := deps.Heatmap.Points()
	cfg := deps.Heatmap.Config()
	points := make([]HeatPointView, len(hm.Points))
	for i, p := range hm.Points {
		points[i] = HeatPointView{Lon: p.C[0], Lat: p.C[1], Count: p.I, Intensity: p.Intensity()}
	}
	return HeatmapResponse{
		Points:     points,
		Status:     hm.Status,
		Radius:     cfg.Radius,
		BlurRadius: cfg.BlurRadius,
	}
}

// heatmapScope resolves the map-wide filter panel.
func heatmapScope(deps *Dependencies) scopeResolver {
	return func(c *fiber.Ctx) (*filterScope, error) {
		state := deps.Heatmap.Filters()
		return &filterScope{
			state: state,
			query: func() string { return state.QueryObject().Encode() },
			changed: func(ctx context.Context) (any, error) {
				deps.Heatmap.FiltersChanged(ctx)
				return heatmapResponse(deps), nil
			},
		}, nil
	}
}

// HeatmapHandler returns the current heatmap bins.
func HeatmapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache")
		return c.JSON(heatmapResponse(deps))
	}
}

// HeatmapDotsHandler returns item positions inside a region.
func HeatmapDotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var region domain.Region
		if err := c.BodyParser(&region); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		dots, err := deps.Heatmap.Dots(c.UserContext(), region)
		if err != nil {
			return serviceError(c, err)
		}
		if dots == nil {
			dots = [][2]float64{}
		}
		return c.JSON(DotsResponse{Dots: dots, Count: len(dots)})
	}
}

// HeatmapExportHandler renders the heatmap as a standalone HTML page.
func HeatmapExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hm := deps.Heatmap.Points()

		data := make([]opts.GeoData, 0, len(hm.Points))
		maxCount := 1
		for _, p := range hm.Points {
			data = append(data, opts.GeoData{
				Name:  fmt.Sprintf("%.4g, %.4g", p.C[1], p.C[0]),
				Value: []float64{p.C[0], p.C[1], float64(p.I)},
			})
			if p.I > maxCount {
				maxCount = p.I
			}
		}

		geo := charts.NewGeo()
		geo.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				PageTitle: "geofacet heatmap",
				Width:     "1200px",
				Height:    "700px",
			}),
			charts.WithTitleOpts(opts.Title{
				Title:    "Item density",
				Subtitle: "query " + hm.Status.Query,
			}),
			charts.WithGeoComponentOpts(opts.GeoComponent{
				Map:    "world",
				Silent: opts.Bool(true),
			}),
			charts.WithVisualMapOpts(opts.VisualMap{
				Calculable: opts.Bool(true),
				Min:        1,
				Max:        float32(maxCount),
			}),
		)
		geo.AddSeries("Items", types.ChartScatter, data)

		var buf bytes.Buffer
		if err := geo.Render(&buf); err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Content-Type", "text/html; charset=utf-8")
		c.Set("Cache-Control", "no-cache")
		return c.Send(buf.Bytes())
	}
}
