package qualys

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-qualys/internal/auth"
	"github.com/tphakala/go-qualys/internal/schema"
	"github.com/tphakala/go-qualys/internal/xmlbody"
)

func testBuilder() *builder {
	return &builder{
		signers: map[schema.AuthMode]auth.Signer{
			schema.AuthBasic: &auth.Basic{Username: "user", Password: "pass"},
			schema.AuthToken: auth.NewStaticToken("tok"),
		},
		renderer: xmlbody.New(),
	}
}

func buildFor(t *testing.T, b *builder, module, endpoint string, raw Params, cur *pageCursor, method string) (*CallRequest, error) {
	t.Helper()
	c := mustContract(t, module, endpoint)
	vp, err := validate(c, raw)
	require.NoError(t, err)
	return b.build(context.Background(), c, vp, cur, method)
}

func TestBuildQueryRequest(t *testing.T) {
	req, err := buildFor(t, testBuilder(), "vmdr", "get_host_list", Params{"ids": "10-20", "show_tags": true}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, schema.HostAPI, req.Host)
	assert.Equal(t, "/api/2.0/fo/asset/host/", req.Path)
	assert.Equal(t, url.Values{"action": {"list"}, "ids": {"10-20"}, "show_tags": {"1"}}, req.Query)
	assert.Empty(t, req.Body)
	assert.Equal(t, "application/xml", req.Headers.Get("Accept"))
	assert.Equal(t, "go-qualys", req.Headers.Get("X-Requested-With"))
	assert.Equal(t, "Basic dXNlcjpwYXNz", req.Headers.Get("Authorization"))
}

func TestBuildFormRequest(t *testing.T) {
	req, err := buildFor(t, testBuilder(), "vmdr", "launch_scan", Params{"scan_title": "weekly", "ip": "10.0.0.1"}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Headers.Get("Content-Type"))
	form, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)
	assert.Equal(t, "launch", form.Get("action"))
	assert.Equal(t, "weekly", form.Get("scan_title"))
	assert.Empty(t, req.Query)
}

func TestBuildTokenRequest(t *testing.T) {
	req, err := buildFor(t, testBuilder(), "gav", "count_assets", Params{"filter": "asset.name:web01"}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, schema.HostGateway, req.Host)
	assert.Equal(t, "Bearer tok", req.Headers.Get("Authorization"))
	assert.Equal(t, "application/json", req.Headers.Get("Accept"))
	assert.Empty(t, req.Headers.Get("X-Requested-With"))
	assert.Equal(t, "asset.name:web01", req.Query.Get("filter"))
}

func TestBuildXMLBody(t *testing.T) {
	req, err := buildFor(t, testBuilder(), "was", "get_findings", Params{"qid": 150001, "verbose": true, "limitResults": 100}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, "text/xml", req.Headers.Get("Content-Type"))
	assert.Equal(t,
		`<ServiceRequest><filters><Criteria field="qid" operator="EQUALS">150001</Criteria></filters>`+
			`<preferences><limitResults>100</limitResults><verbose>true</verbose></preferences></ServiceRequest>`,
		string(req.Body))
}

func TestBuildPlaceholder(t *testing.T) {
	t.Run("escaped into path", func(t *testing.T) {
		req, err := buildFor(t, testBuilder(), "cloudview", "get_aws_connector_details", Params{"placeholder": "a/b c"}, nil, "")
		require.NoError(t, err)
		assert.Equal(t, "/cloudview-api/rest/v1/aws/connectors/a%2Fb%20c", req.Path)
		assert.Empty(t, req.Query)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := buildFor(t, testBuilder(), "cloudview", "get_aws_connector_details", nil, nil, "")
		var missing *MissingPathParameterError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("blank", func(t *testing.T) {
		_, err := buildFor(t, testBuilder(), "cloudview", "get_aws_connector_details", Params{"placeholder": "  "}, nil, "")
		var missing *MissingPathParameterError
		require.ErrorAs(t, err, &missing)
	})

	for _, seg := range []string{".", "..", " .. "} {
		t.Run("dot segment "+seg, func(t *testing.T) {
			_, err := buildFor(t, testBuilder(), "cloud_agent", "purge_agent", Params{"placeholder": seg}, nil, "")
			var invalid *InvalidParameterError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, schema.PlaceholderParam, invalid.Param)
		})
	}
}

func TestBuildMethodSelection(t *testing.T) {
	t.Run("override allowed", func(t *testing.T) {
		req, err := buildFor(t, testBuilder(), "vmdr", "get_host_list", nil, nil, "post")
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, req.Method)
	})

	t.Run("override rejected", func(t *testing.T) {
		_, err := buildFor(t, testBuilder(), "pm", "list_jobs", nil, nil, http.MethodDelete)
		var invalid *InvalidParameterError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "method", invalid.Param)
	})
}

func TestBuildMissingSigner(t *testing.T) {
	b := testBuilder()
	delete(b.signers, schema.AuthToken)

	_, err := buildFor(t, b, "pm", "get_version", nil, nil, "")
	assert.True(t, errors.Is(err, ErrNoCredentials))
}

func TestBuildAppliesCursor(t *testing.T) {
	t.Run("id cursor with operator", func(t *testing.T) {
		cur := &pageCursor{token: &cursorSignal{Field: "id", Operator: "GREATER", Value: "202"}}
		req, err := buildFor(t, testBuilder(), "cloud_agent", "list_agents", nil, cur, "")
		require.NoError(t, err)
		assert.Contains(t, string(req.Body), `<Criteria field="id" operator="GREATER">202</Criteria>`)
	})

	t.Run("url cursor keeps caller params", func(t *testing.T) {
		cur := &pageCursor{token: &cursorSignal{Field: "id_min", Value: "12"}}
		req, err := buildFor(t, testBuilder(), "vmdr", "get_host_list", Params{"ids": "10-20"}, cur, "")
		require.NoError(t, err)
		assert.Equal(t, "10-20", req.Query.Get("ids"))
		assert.Equal(t, "12", req.Query.Get("id_min"))
	})

	t.Run("page counter", func(t *testing.T) {
		cur := &pageCursor{pageIndex: 3}
		req, err := buildFor(t, testBuilder(), "pm", "list_jobs", nil, cur, "")
		require.NoError(t, err)
		assert.Equal(t, "3", req.Query.Get("pageNumber"))
	})

	t.Run("same inputs same request", func(t *testing.T) {
		b := testBuilder()
		cur := &pageCursor{pageIndex: 2}
		first, err := buildFor(t, b, "cloudview", "get_aws_connectors", Params{"pageSize": 50}, cur, "")
		require.NoError(t, err)
		second, err := buildFor(t, b, "cloudview", "get_aws_connectors", Params{"pageSize": 50}, cur, "")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestBuildJSONBody(t *testing.T) {
	reg, err := schema.New(schema.Contract{
		Module:         "custom",
		Name:           "create_tag",
		Host:           schema.HostGateway,
		URLTemplate:    "/qps/rest/2.0/create/am/tag",
		Methods:        []string{"GET", "POST"},
		QueryParams:    []string{"dryRun"},
		BodyParams:     []string{"name", "color", "enabled"},
		BodyEncoding:   schema.BodyJSON,
		ResponseFormat: schema.FormatJSON,
		AuthMode:       schema.AuthToken,
		BoolStyle:      schema.BoolWord,
	})
	require.NoError(t, err)
	c, err := reg.Lookup("custom", "create_tag")
	require.NoError(t, err)

	t.Run("body selects POST", func(t *testing.T) {
		vp, err := validate(c, Params{"name": "prod", "enabled": true, "dryRun": false})
		require.NoError(t, err)
		req, err := testBuilder().build(context.Background(), c, vp, nil, "")
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"prod","enabled":"true"}`, string(req.Body))
		assert.Equal(t, "false", req.Query.Get("dryRun"))
	})

	t.Run("no body selects GET", func(t *testing.T) {
		vp, err := validate(c, Params{"dryRun": true})
		require.NoError(t, err)
		req, err := testBuilder().build(context.Background(), c, vp, nil, "")
		require.NoError(t, err)

		assert.Equal(t, http.MethodGet, req.Method)
		assert.Empty(t, req.Body)
		assert.Empty(t, req.Headers.Get("Content-Type"))
	})
}
