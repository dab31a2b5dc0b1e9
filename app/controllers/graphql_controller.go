package controllers

import (
	"errors"
	"math"
	"net/http"
	"sort"

	"github.com/graphql-go/graphql"

	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/geo"
	gql "github.com/farmdirect/farmdirect/pkg/graphql"
	"github.com/farmdirect/farmdirect/pkg/middleware"
)

var errInvalidCoordinates = errors.New("Invalid coordinates. Latitude must be between -90 and 90, longitude between -180 and 180")

// GraphQLController serves the read-only query API:
//
//	{ nearbyProducts(lat: 28.61, lng: 77.2, radiusKm: 10) { total products { title distance farmerName } } }
//	{ presence { onlineUsers online(userId: "...") } }
type GraphQLController struct {
	schema graphql.Schema
}

func NewGraphQLController(search GeoSearcher, presence PresenceReader) (*GraphQLController, error) {
	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"title":             &graphql.Field{Type: graphql.String},
			"description":       &graphql.Field{Type: graphql.String},
			"category":          &graphql.Field{Type: graphql.String},
			"pricePerUnit":      &graphql.Field{Type: graphql.Float},
			"availableQuantity": &graphql.Field{Type: graphql.Float},
			"unit":              &graphql.Field{Type: graphql.String},
			"isOrganic":         &graphql.Field{Type: graphql.Boolean},
			"distance":          &graphql.Field{Type: graphql.Float},
			"farmerId":          &graphql.Field{Type: graphql.String},
			"farmerName":        &graphql.Field{Type: graphql.String},
			"farmName":          &graphql.Field{Type: graphql.String},
			"averageRating":     &graphql.Field{Type: graphql.String},
		},
	})

	pageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ProductPage",
		Fields: graphql.Fields{
			"products": &graphql.Field{Type: graphql.NewList(productType)},
			"page":     &graphql.Field{Type: graphql.Int},
			"limit":    &graphql.Field{Type: graphql.Int},
			"total":    &graphql.Field{Type: graphql.Int},
			"pages":    &graphql.Field{Type: graphql.Int},
		},
	})

	presenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Presence",
		Fields: graphql.Fields{
			"onlineUsers": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return presence.OnlineUsersCount(), nil
				},
			},
			"online": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["userId"].(string)
					return presence.IsUserOnline(id), nil
				},
			},
			"users": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if claims, ok := middleware.ClaimsFrom(p.Context); !ok || claims.Role != auth.RoleAdmin {
						return nil, services.ErrForbidden
					}
					users := presence.ConnectedUsers()
					sort.Strings(users)
					return users, nil
				},
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"nearbyProducts": &graphql.Field{
				Type: pageType,
				Args: graphql.FieldConfigArgument{
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radiusKm": &graphql.ArgumentConfig{Type: graphql.Float},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"minPrice": &graphql.ArgumentConfig{Type: graphql.Float},
					"maxPrice": &graphql.ArgumentConfig{Type: graphql.Float},
					"q":        &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"sortBy":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(geo.SortDistance)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return nearbyProducts(p, search)
				},
			},
			"presence": &graphql.Field{
				Type: presenceType,
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return struct{}{}, nil
				},
			},
		},
	})

	schema, err := gql.NewSchema(query)
	if err != nil {
		return nil, err
	}
	return &GraphQLController{schema: schema}, nil
}

// Handler serves POST /graphql.
func (g *GraphQLController) Handler() http.HandlerFunc {
	return gql.Handler(g.schema)
}

func nearbyProducts(p graphql.ResolveParams, search GeoSearcher) (interface{}, error) {
	lat, _ := p.Args["lat"].(float64)
	lng, _ := p.Args["lng"].(float64)
	if !geo.ValidCoordinates(lat, lng) {
		return nil, errInvalidCoordinates
	}

	sp := services.SearchParams{
		Lat:      lat,
		Lng:      lng,
		RadiusKm: math.NaN(),
		MinPrice: floatArg(p.Args, "minPrice"),
		MaxPrice: floatArg(p.Args, "maxPrice"),
	}
	if r, ok := p.Args["radiusKm"].(float64); ok {
		sp.RadiusKm = r
	}
	sp.Category, _ = p.Args["category"].(string)
	sp.Query, _ = p.Args["q"].(string)
	sp.Page, _ = p.Args["page"].(int)
	sp.Limit, _ = p.Args["limit"].(int)
	sp.SortBy, _ = p.Args["sortBy"].(string)
	if claims, ok := middleware.ClaimsFrom(p.Context); ok {
		sp.Viewer = &geo.Viewer{ID: claims.UserID, Role: claims.Role}
	}

	res, err := search.Search(p.Context, sp)
	if err != nil {
		return nil, err
	}

	products := make([]map[string]interface{}, 0, len(res.Products))
	for _, row := range res.Products {
		products = append(products, map[string]interface{}{
			"id":                row.ID,
			"title":             row.Title,
			"description":       row.Description,
			"category":          row.Category,
			"pricePerUnit":      row.PricePerUnit,
			"availableQuantity": row.AvailableQuantity,
			"unit":              row.Unit,
			"isOrganic":         row.IsOrganic,
			"distance":          row.Distance,
			"farmerId":          row.Farmer.ID,
			"farmerName":        row.Farmer.Name,
			"farmName":          row.Farmer.FarmName,
			"averageRating":     row.Farmer.AverageRating,
		})
	}
	return map[string]interface{}{
		"products": products,
		"page":     res.Pagination.Page,
		"limit":    res.Pagination.Limit,
		"total":    res.Pagination.Total,
		"pages":    res.Pagination.Pages,
	}, nil
}

func floatArg(args map[string]interface{}, key string) *float64 {
	if f, ok := args[key].(float64); ok {
		return &f
	}
	return nil
}
