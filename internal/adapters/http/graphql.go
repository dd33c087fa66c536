package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	rangeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Range",
		Fields: graphql.Fields{
			"min": &graphql.Field{Type: graphql.Float},
			"max": &graphql.Field{Type: graphql.Float},
		},
	})

	heatPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HeatPoint",
		Fields: graphql.Fields{
			"lon":       &graphql.Field{Type: graphql.Float},
			"lat":       &graphql.Field{Type: graphql.Float},
			"count":     &graphql.Field{Type: graphql.Int},
			"intensity": &graphql.Field{Type: graphql.Float},
		},
	})

	heatmapType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Heatmap",
		Fields: graphql.Fields{
			"points":           &graphql.Field{Type: graphql.NewList(heatPointType)},
			"query":            &graphql.Field{Type: graphql.String},
			"base_sampling":    &graphql.Field{Type: graphql.Boolean},
			"current_sampling": &graphql.Field{Type: graphql.Boolean},
			"radius":           &graphql.Field{Type: graphql.Int},
			"blur_radius":      &graphql.Field{Type: graphql.Int},
		},
	})

	facetValueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FacetValue",
		Fields: graphql.Fields{
			"value":    &graphql.Field{Type: graphql.String},
			"label":    &graphql.Field{Type: graphql.String},
			"count":    &graphql.Field{Type: graphql.Int},
			"selected": &graphql.Field{Type: graphql.Boolean},
			"overflow": &graphql.Field{Type: graphql.Boolean},
		},
	})

	stringFacetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StringFacet",
		Fields: graphql.Fields{
			"key":            &graphql.Field{Type: graphql.String},
			"name":           &graphql.Field{Type: graphql.String},
			"selected_label": &graphql.Field{Type: graphql.String},
			"has_more":       &graphql.Field{Type: graphql.Boolean},
			"values":         &graphql.Field{Type: graphql.NewList(facetValueType)},
		},
	})

	rangeFacetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RangeFacet",
		Fields: graphql.Fields{
			"key":      &graphql.Field{Type: graphql.String},
			"min":      &graphql.Field{Type: graphql.Float},
			"max":      &graphql.Field{Type: graphql.Float},
			"value":    &graphql.Field{Type: rangeType},
			"disabled": &graphql.Field{Type: graphql.Boolean},
		},
	})

	filtersType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Filters",
		Fields: graphql.Fields{
			"strings": &graphql.Field{Type: graphql.NewList(stringFacetType)},
			"ranges":  &graphql.Field{Type: graphql.NewList(rangeFacetType)},
			"query":   &graphql.Field{Type: graphql.String},
		},
	})

	rowType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ResultRow",
		Fields: graphql.Fields{
			"index":           &graphql.Field{Type: graphql.Int},
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"sensor_modality": &graphql.Field{Type: graphql.String},
			"timestamp":       &graphql.Field{Type: graphql.String},
			"image_path":      &graphql.Field{Type: graphql.String},
			"thumbnail_id":    &graphql.Field{Type: graphql.String},
			"view_url":        &graphql.Field{Type: graphql.String},
		},
	})

	pageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ResultsPage",
		Fields: graphql.Fields{
			"session_id": &graphql.Field{Type: graphql.String},
			"offset":     &graphql.Field{Type: graphql.Int},
			"limit":      &graphql.Field{Type: graphql.Int},
			"query":      &graphql.Field{Type: graphql.String},
			"range":      &graphql.Field{Type: graphql.String},
			"rows":       &graphql.Field{Type: graphql.NewList(rowType)},
		},
	})

	sessionField := func(t graphql.Output, get func(*usecases.ResultsSession) interface{}) *graphql.Field {
		return &graphql.Field{
			Type: t,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return get(p.Source.(*usecases.ResultsSession)), nil
			},
		}
	}

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ResultsSession",
		Fields: graphql.Fields{
			"id":       sessionField(graphql.String, func(s *usecases.ResultsSession) interface{} { return s.ID() }),
			"offset":   sessionField(graphql.Int, func(s *usecases.ResultsSession) interface{} { return s.Offset() }),
			"query":    sessionField(graphql.String, func(s *usecases.ResultsSession) interface{} { return s.QueryString() }),
			"sampling": sessionField(graphql.Boolean, func(s *usecases.ResultsSession) interface{} { return s.Sampling() }),
			"filters": sessionField(filtersType, func(s *usecases.ResultsSession) interface{} {
				return filtersMap(s.Filters(), s.QueryString())
			}),
			"page": &graphql.Field{
				Type: pageType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*usecases.ResultsSession).Page(p.Context)
				},
			},
		},
	})

	savedSearchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SavedSearch",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"string_keys":  &graphql.Field{Type: graphql.NewList(graphql.String)},
			"numeric_keys": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"created_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(domain.SavedSearch).CreatedAt.Format(time.RFC3339), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"heatmap": &graphql.Field{
				Type:        heatmapType,
				Description: "Current heatmap bins and sampling status",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					hm := heatmapResponse(deps)
					points := make([]map[string]interface{}, len(hm.Points))
					for i, pt := range hm.Points {
						points[i] = map[string]interface{}{
							"lon":       pt.Lon,
							"lat":       pt.Lat,
							"count":     pt.Count,
							"intensity": pt.Intensity,
						}
					}
					return map[string]interface{}{
						"points":           points,
						"query":            hm.Status.Query,
						"base_sampling":    hm.Status.BaseSampling,
						"current_sampling": hm.Status.CurrentSampling,
						"radius":           hm.Radius,
						"blur_radius":      hm.BlurRadius,
					}, nil
				},
			},
			"heatmapFilters": &graphql.Field{
				Type:        filtersType,
				Description: "Filter panel of the heatmap",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					state := deps.Heatmap.Filters()
					return filtersMap(state, state.QueryObject().Encode()), nil
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "An open results session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Search.Get(p.Args["id"].(string))
				},
			},
			"savedSearches": &graphql.Field{
				Type:        graphql.NewList(savedSearchType),
				Description: "Saved searches, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.SavedSearches == nil {
						return nil, fmt.Errorf("database not available")
					}
					return deps.SavedSearches.List(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// filtersMap flattens a filter panel for the default resolvers.
func filtersMap(state *usecases.FilterState, query string) map[string]interface{} {
	view := state.View()
	return map[string]interface{}{
		"strings": view.Strings,
		"ranges":  view.Ranges,
		"query":   query,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
