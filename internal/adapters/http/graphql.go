package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/florapix/devicehub/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinatesType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinates",
		Fields: graphql.Fields{
			"latitude":          &graphql.Field{Type: graphql.Float},
			"longitude":         &graphql.Field{Type: graphql.Float},
			"accuracy":          &graphql.Field{Type: graphql.Float},
			"altitude":          &graphql.Field{Type: graphql.Float},
			"altitude_accuracy": &graphql.Field{Type: graphql.Float},
			"heading":           &graphql.Field{Type: graphql.Float},
			"speed":             &graphql.Field{Type: graphql.Float},
		},
	})

	fixType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PositionFix",
		Fields: graphql.Fields{
			"time":      &graphql.Field{Type: graphql.String},
			"device_id": &graphql.Field{Type: graphql.String},
			"source":    &graphql.Field{Type: graphql.String},
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	cameraType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Camera",
		Fields: graphql.Fields{
			"id":     &graphql.Field{Type: graphql.String},
			"label":  &graphql.Field{Type: graphql.String},
			"facing": &graphql.Field{Type: graphql.String},
		},
	})

	networkStatusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NetworkStatus",
		Fields: graphql.Fields{
			"online":         &graphql.Field{Type: graphql.Boolean},
			"effective_type": &graphql.Field{Type: graphql.String},
			"downlink_mbps":  &graphql.Field{Type: graphql.Float},
			"rtt_ms":         &graphql.Field{Type: graphql.Int},
		},
	})

	installStatusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "InstallStatus",
		Fields: graphql.Fields{
			"can_install": &graphql.Field{Type: graphql.Boolean},
			"standalone":  &graphql.Field{Type: graphql.Boolean},
			"ios":         &graphql.Field{Type: graphql.Boolean},
			"android":     &graphql.Field{Type: graphql.Boolean},
			"prompt_seen": &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"savedLocation": &graphql.Field{
				Type:        coordinatesType,
				Description: "The saved user location, if any",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Location.SavedLocation(), nil
				},
			},
			"placeName": &graphql.Field{
				Type:        graphql.String,
				Description: "Reverse-geocoded place name for a coordinate pair",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					coords := domain.Coordinates{
						Latitude:  p.Args["lat"].(float64),
						Longitude: p.Args["lon"].(float64),
					}
					return deps.Location.PlaceName(p.Context, coords), nil
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance between two points, in kilometers",
				Args: graphql.FieldConfigArgument{
					"from_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"from_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from := domain.Coordinates{
						Latitude:  p.Args["from_lat"].(float64),
						Longitude: p.Args["from_lon"].(float64),
					}
					to := domain.Coordinates{
						Latitude:  p.Args["to_lat"].(float64),
						Longitude: p.Args["to_lon"].(float64),
					}
					return deps.Location.Distance(from, to), nil
				},
			},
			"latestFixes": &graphql.Field{
				Type:        graphql.NewList(fixType),
				Description: "Most recent position fixes for a device",
				Args: graphql.FieldConfigArgument{
					"device": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Fixes == nil {
						return nil, nil
					}
					device := p.Args["device"].(string)
					limit := p.Args["limit"].(int)
					return deps.Fixes.Latest(p.Context, device, limit)
				},
			},
			"cameras": &graphql.Field{
				Type:        graphql.NewList(cameraType),
				Description: "Attached video-input devices",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Camera.AvailableCameras(p.Context), nil
				},
			},
			"networkStatus": &graphql.Field{
				Type:        networkStatusType,
				Description: "Connectivity and quality hints",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Install.NetworkStatus(), nil
				},
			},
			"installStatus": &graphql.Field{
				Type:        installStatusType,
				Description: "App install and platform probes",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return map[string]interface{}{
						"can_install": deps.Install.CanInstall(),
						"standalone":  deps.Install.IsStandalone(),
						"ios":         deps.Install.IsIOS(),
						"android":     deps.Install.IsAndroid(),
						"prompt_seen": deps.Install.PromptSeen(),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
