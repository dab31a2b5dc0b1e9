package graphql_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gql "github.com/farmdirect/farmdirect/pkg/graphql"
)

type ctxKey struct{}

func testSchema(t *testing.T) graphql.Schema {
	t.Helper()
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"echo": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"msg": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Args["msg"], nil
				},
			},
			"caller": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Context.Value(ctxKey{}), nil
				},
			},
		},
	})
	schema, err := gql.NewSchema(query)
	require.NoError(t, err)
	return schema
}

func post(t *testing.T, h http.HandlerFunc, body string, ctx context.Context) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestHandlerRunsQueryWithVariables(t *testing.T) {
	h := gql.Handler(testSchema(t))
	code, out := post(t, h, `{"query":"query Q($m: String) { echo(msg: $m) }","variables":{"m":"hello"},"operationName":"Q"}`, context.Background())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", out["data"].(map[string]any)["echo"])
}

func TestHandlerPassesRequestContext(t *testing.T) {
	h := gql.Handler(testSchema(t))
	ctx := context.WithValue(context.Background(), ctxKey{}, "u1")
	_, out := post(t, h, `{"query":"{ caller }"}`, ctx)
	assert.Equal(t, "u1", out["data"].(map[string]any)["caller"])
}

func TestHandlerRejectsBadBodies(t *testing.T) {
	h := gql.Handler(testSchema(t))
	for _, body := range []string{``, `{`, `{"query":""}`} {
		code, out := post(t, h, body, context.Background())
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.NotEmpty(t, out["errors"], body)
	}

	code, out := post(t, h, `{"query":"{ missing }"}`, context.Background())
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, out["errors"])
}
