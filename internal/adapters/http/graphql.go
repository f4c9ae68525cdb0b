package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
			"center": &graphql.Field{
				Type: geoPointType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b, ok := p.Source.(domain.Bounds)
					if !ok {
						return nil, nil
					}
					c := b.Center()
					return domain.GeoPoint{Lat: c.Lat(), Lon: c.Lon()}, nil
				},
			},
		},
	})

	siteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Site",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"project_id":  &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"site_type":   &graphql.Field{Type: graphql.String},
			"area":        &graphql.Field{Type: graphql.Float},
			"location":    &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.String},
			"geolocation": &graphql.Field{Type: graphql.NewList(geoPointType)},
			"created_by":  &graphql.Field{Type: graphql.String},
			"perimeter_m": &graphql.Field{
				Type:        graphql.Float,
				Description: "Boundary perimeter in meters, closing edge included",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geospatial.Perimeter(siteRing(p.Source)), nil
				},
			},
			"area_m2": &graphql.Field{
				Type:        graphql.Float,
				Description: "Boundary area in square meters",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geospatial.Area(siteRing(p.Source)), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"site": &graphql.Field{
				Type:        siteType,
				Description: "Get a site by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					site, err := deps.Sites.GetByID(p.Context, id)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					return site, err
				},
			},
			"sites": &graphql.Field{
				Type:        graphql.NewList(siteType),
				Description: "List the sites of a project",
				Args: graphql.FieldConfigArgument{
					"projectId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					projectID := p.Args["projectId"].(string)
					return deps.Sites.ListByProject(p.Context, projectID)
				},
			},
			"siteBounds": &graphql.Field{
				Type:        boundsType,
				Description: "Bounding box of a site boundary; null when the site has none",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					b, ok, err := deps.Sites.Bounds(p.Context, id)
					if err != nil || !ok {
						return nil, err
					}
					return b, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func siteRing(source interface{}) []domain.LatLng {
	switch s := source.(type) {
	case *domain.Site:
		return geospatial.ToInteractionForm(s.Geolocation)
	case domain.Site:
		return geospatial.ToInteractionForm(s.Geolocation)
	}
	return nil
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
