package qualys_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-qualys"
)

// newTestClient serves both hosts from one httptest server.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...qualys.ClientOption) *qualys.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []qualys.ClientOption{
		qualys.WithBaseURL(srv.URL),
		qualys.WithGatewayURL(srv.URL),
		qualys.WithBasicAuth("user", "pass"),
		qualys.WithToken("static-token"),
	}
	client, err := qualys.NewClient(append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func findingsPage(more bool, ids ...int) string {
	return qpsPage("Finding", more, ids...)
}

func agentsPage(more bool, ids ...int) string {
	return qpsPage("HostAsset", more, ids...)
}

// qpsPage renders a QPS search response with one elem per id.
func qpsPage(elem string, more bool, ids ...int) string {
	var b strings.Builder
	b.WriteString("<ServiceResponse><responseCode>SUCCESS</responseCode>")
	fmt.Fprintf(&b, "<count>%d</count><hasMoreRecords>%t</hasMoreRecords>", len(ids), more)
	if len(ids) > 0 {
		fmt.Fprintf(&b, "<lastId>%d</lastId><data>", ids[len(ids)-1])
		for _, id := range ids {
			fmt.Fprintf(&b, "<%s><id>%d</id><qid>%d</qid></%s>", elem, id, 150000+id, elem)
		}
		b.WriteString("</data>")
	}
	b.WriteString("</ServiceResponse>")
	return b.String()
}

func TestExecutePaginatedPageLimit(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := int(requests.Add(1))
		assert.Equal(t, "/qps/rest/3.0/search/was/finding", r.URL.Path)
		_, _ = io.WriteString(w, findingsPage(true, n*10+1, n*10+2))
	})

	res, err := qualys.ExecutePaginated(context.Background(), client, "was", "get_findings", 2, nil, qualys.FindingFromRecord)
	require.NoError(t, err)

	assert.EqualValues(t, 2, requests.Load())
	assert.Equal(t, 2, res.Pages())
	assert.Equal(t, qualys.ReasonLimitReached, res.Reason())
	require.Equal(t, 4, res.Len())
	assert.Equal(t, int64(11), res.Items()[0].ID)
	assert.Equal(t, int64(22), res.Items()[3].ID)
}

func TestExecutePaginatedEmptyPageStops(t *testing.T) {
	var requests atomic.Int32
	var bodies []string
	var mu sync.Mutex
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()

		switch requests.Add(1) {
		case 1:
			_, _ = io.WriteString(w, agentsPage(true, 1, 2))
		case 2:
			_, _ = io.WriteString(w, agentsPage(true, 3))
		default:
			_, _ = io.WriteString(w, `<ServiceResponse><responseCode>SUCCESS</responseCode><count>0</count><hasMoreRecords>true</hasMoreRecords></ServiceResponse>`)
		}
	})

	res, err := qualys.ExecutePaginated(context.Background(), client, "cloud_agent", "list_agents", 0, qualys.Params{"name": "web", "name_operator": "contains"}, qualys.RawRecord)
	require.NoError(t, err)

	assert.EqualValues(t, 3, requests.Load())
	assert.Equal(t, qualys.ReasonExhausted, res.Reason())
	assert.Equal(t, 3, res.Len())

	require.Len(t, bodies, 3)
	assert.Contains(t, bodies[0], `<Criteria field="name" operator="CONTAINS">web</Criteria>`)
	assert.NotContains(t, bodies[0], `field="id"`)
	assert.Contains(t, bodies[1], `<Criteria field="id" operator="GREATER">2</Criteria>`)
	assert.Contains(t, bodies[2], `<Criteria field="id" operator="GREATER">3</Criteria>`)
	assert.Contains(t, bodies[2], `<Criteria field="name" operator="CONTAINS">web</Criteria>`)
}

func TestHostListFollowsNextURL(t *testing.T) {
	var queries []string
	var mu sync.Mutex
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()

		assert.Equal(t, "go-qualys", r.Header.Get("X-Requested-With"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)

		if r.URL.Query().Get("id_min") == "" {
			_, _ = io.WriteString(w, `<HOST_LIST_OUTPUT><RESPONSE><HOST_LIST>
				<HOST><ID>10</ID><IP>10.0.0.10</IP></HOST>
				<HOST><ID>11</ID><IP>10.0.0.11</IP></HOST>
			</HOST_LIST><WARNING><CODE>1980</CODE>
			<URL><![CDATA[https://qualysapi.example.com/api/2.0/fo/asset/host/?action=list&ids=10-20&id_min=12]]></URL>
			</WARNING></RESPONSE></HOST_LIST_OUTPUT>`)
			return
		}
		_, _ = io.WriteString(w, `<HOST_LIST_OUTPUT><RESPONSE><HOST_LIST>
			<HOST><ID>12</ID><IP>10.0.0.12</IP></HOST>
		</HOST_LIST></RESPONSE></HOST_LIST_OUTPUT>`)
	})

	hosts, err := qualys.Collect(client.Hosts.List(context.Background(), &qualys.HostListOptions{IDs: "10-20", ShowTags: true}))
	require.NoError(t, err)

	require.Len(t, hosts, 3)
	assert.Equal(t, []int64{10, 11, 12}, []int64{hosts[0].ID, hosts[1].ID, hosts[2].ID})

	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "ids=10-20")
	assert.Contains(t, queries[0], "show_tags=1")
	assert.NotContains(t, queries[0], "id_min")
	assert.Contains(t, queries[1], "ids=10-20")
	assert.Contains(t, queries[1], "id_min=12")
	assert.Contains(t, queries[1], "action=list")
}

func TestValidationFailsBeforeRequest(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	_, err := client.Assets.Count(context.Background(), &qualys.AssetCountOptions{Filter: "bad_key:foo"})
	var unknown *qualys.UnknownParameterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "bad_key", unknown.Key)

	_, err = qualys.Execute(context.Background(), client, "gav", "count_assets", qualys.Params{"nope": 1}, qualys.CountFromRecord)
	require.ErrorAs(t, err, &unknown)

	_, err = qualys.Execute(context.Background(), client, "gav", "missing", nil, qualys.RawRecord)
	require.ErrorIs(t, err, qualys.ErrUnknownEndpoint)

	assert.EqualValues(t, 0, requests.Load())
}

func TestExecutePaginatedCancellation(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, findingsPage(true, 1, 2))
	}

	run := func(t *testing.T, opts ...qualys.RequestOption) (*qualys.ResultCollection[qualys.Record], error) {
		client := newTestClient(t, handler)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		factory := func(r qualys.Record) (qualys.Record, error) {
			cancel()
			return r, nil
		}
		return qualys.ExecutePaginated(ctx, client, "was", "get_findings", 0, nil, factory, opts...)
	}

	t.Run("discards by default", func(t *testing.T) {
		res, err := run(t)
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res)
	})

	t.Run("keeps partial on request", func(t *testing.T) {
		res, err := run(t, qualys.KeepPartial())
		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, res)
		assert.Equal(t, 2, res.Len())
		assert.Equal(t, 1, res.Pages())
		assert.Equal(t, qualys.ReasonCanceled, res.Reason())
	})
}

func TestCloudViewLastFlag(t *testing.T) {
	var pages []string
	var mu sync.Mutex
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pageNo")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		last := page == "1"
		fmt.Fprintf(w, `{"content":[{"connectorId":"c%s","name":"n%s","state":"SUCCESS"}],"last":%t}`, page, page, last)
	})

	var names []string
	for c, err := range client.Connectors.List(context.Background(), &qualys.ConnectorListOptions{Filter: "state:success"}) {
		require.NoError(t, err)
		names = append(names, c.Name)
	}

	assert.Equal(t, []string{"n0", "n1"}, names)
	assert.Equal(t, []string{"0", "1"}, pages)
}

func TestPatchJobsPageNumbers(t *testing.T) {
	var pages []string
	var mu sync.Mutex
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
		page := r.URL.Query().Get("pageNumber")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()

		switch page {
		case "0":
			_, _ = io.WriteString(w, `[{"id":"j1","name":"a"},{"id":"j2","name":"b"}]`)
		case "1":
			_, _ = io.WriteString(w, `[{"id":"j3","name":"c"}]`)
		default:
			_, _ = io.WriteString(w, `[]`)
		}
	})

	res, err := qualys.ExecutePaginated(context.Background(), client, "pm", "list_jobs", 0, qualys.Params{"pageSize": 2}, qualys.JobFromRecord)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2"}, pages)
	assert.Equal(t, 3, res.Len())
	assert.Equal(t, "j3", res.Items()[2].ID)
	assert.Equal(t, qualys.ReasonExhausted, res.Reason())
}

func TestPaginateStopsWhenConsumerBreaks(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := int(requests.Add(1))
		_, _ = io.WriteString(w, findingsPage(true, n*10+1, n*10+2))
	})

	first, err := qualys.First(qualys.Paginate(context.Background(), client, "was", "get_findings", nil, qualys.FindingFromRecord))
	require.NoError(t, err)
	assert.Equal(t, int64(11), first.ID)
	assert.EqualValues(t, 1, requests.Load())
}

func TestPaginateWithPageLimitOption(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := int(requests.Add(1))
		_, _ = io.WriteString(w, findingsPage(true, n*10+1))
	})

	items, err := qualys.Collect(client.Findings.List(context.Background(), nil, qualys.WithPageLimit(3)))
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.EqualValues(t, 3, requests.Load())
}

func TestCursorMustAdvance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, findingsPage(true, 5))
	})

	_, err := qualys.ExecutePaginated(context.Background(), client, "was", "get_findings", 0, nil, qualys.RawRecord)
	var malformed *qualys.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "did not advance")
}

func TestPageNumberMustAdvance(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = io.WriteString(w, `[{"id":"j1","name":"a"},{"id":"j2","name":"b"}]`)
	})

	res, err := qualys.ExecutePaginated(context.Background(), client, "pm", "list_jobs", 0, nil, qualys.JobFromRecord)
	assert.Nil(t, res)
	var malformed *qualys.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "repeated the previous page")
	assert.EqualValues(t, 2, requests.Load())
}

func TestExecutePaginatedFailureDiscardsResults(t *testing.T) {
	tests := []struct {
		name   string
		second func(w http.ResponseWriter)
		check  func(t *testing.T, err error)
	}{
		{
			name: "server error",
			second: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, "boom")
			},
			check: func(t *testing.T, err error) {
				var serverErr *qualys.ServerError
				require.ErrorAs(t, err, &serverErr)
				assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
			},
		},
		{
			name: "api reported",
			second: func(w http.ResponseWriter) {
				_, _ = io.WriteString(w, `<ServiceResponse><responseCode>INVALID_REQUEST</responseCode><responseErrorDetails><errorMessage>bad page</errorMessage></responseErrorDetails></ServiceResponse>`)
			},
			check: func(t *testing.T, err error) {
				var reported *qualys.APIReportedError
				require.ErrorAs(t, err, &reported)
				assert.Equal(t, "bad page", reported.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if requests.Add(1) == 1 {
					_, _ = io.WriteString(w, findingsPage(true, 1, 2))
					return
				}
				tt.second(w)
			})

			res, err := qualys.ExecutePaginated(context.Background(), client, "was", "get_findings", 0, nil, qualys.FindingFromRecord)
			assert.Nil(t, res)
			tt.check(t, err)
			assert.EqualValues(t, 2, requests.Load())
		})
	}
}

func TestPlaceholderDotSegmentRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	_, err := qualys.ExecutePaginated(context.Background(), client, "cloud_agent", "purge_agent", 0, qualys.Params{"placeholder": ".."}, qualys.RawRecord)
	var invalid *qualys.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "placeholder", invalid.Param)
}

func TestExecutePaginatedSinglePageEndpoint(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = io.WriteString(w, `<SCAN_LIST_OUTPUT><RESPONSE><SCAN_LIST><SCAN><REF>scan/1</REF></SCAN></SCAN_LIST></RESPONSE></SCAN_LIST_OUTPUT>`)
	})

	res, err := qualys.ExecutePaginated(context.Background(), client, "vmdr", "list_scans", 0, nil, qualys.RawRecord)
	require.NoError(t, err)
	assert.EqualValues(t, 1, requests.Load())
	assert.Equal(t, 1, res.Len())
	assert.Equal(t, "scan/1", res.Items()[0]["REF"])
	assert.Equal(t, qualys.ReasonExhausted, res.Reason())
}

func TestExecute(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/am/v1/assets/host/count", r.URL.Path)
			assert.Equal(t, "asset.name:web01", r.URL.Query().Get("filter"))
			_, _ = io.WriteString(w, `{"responseCode":"SUCCESS","count":42}`)
		})

		n, err := client.Assets.Count(context.Background(), &qualys.AssetCountOptions{Filter: "asset.name:web01"})
		require.NoError(t, err)
		assert.Equal(t, 42, n)
	})

	t.Run("no records", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"responseCode":"SUCCESS","count":0,"assetListData":{"asset":[]}}`)
		})

		_, err := client.Assets.Get(context.Background(), 7)
		require.ErrorIs(t, err, qualys.ErrNoRecords)
	})

	t.Run("api reported failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<ServiceResponse><responseCode>UNAUTHORIZED</responseCode><responseErrorDetails><errorMessage>no access</errorMessage></responseErrorDetails></ServiceResponse>`)
		})

		_, err := client.Findings.Count(context.Background(), nil)
		var reported *qualys.APIReportedError
		require.ErrorAs(t, err, &reported)
		assert.Equal(t, "no access", reported.Message)
	})

	t.Run("rate limited", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "12")
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `<SIMPLE_RETURN><RESPONSE><CODE>1960</CODE><TEXT>concurrency limit</TEXT></RESPONSE></SIMPLE_RETURN>`)
		})

		_, err := client.Hosts.ListPages(context.Background(), 1, nil)
		var rl *qualys.RateLimitError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, "12s", rl.RetryAfter.String())
		assert.Equal(t, "1960", rl.Code)
	})

	t.Run("custom headers", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "trace-1", r.Header.Get("X-Request-ID"))
			assert.Equal(t, "yes", r.Header.Get("X-Custom"))
			_, _ = io.WriteString(w, `{"version":"3.1"}`)
		})

		rec, err := qualys.Execute(context.Background(), client, "pm", "get_version", nil, qualys.RawRecord,
			qualys.WithRequestID("trace-1"), qualys.WithHeader("X-Custom", "yes"))
		require.NoError(t, err)
		assert.Equal(t, "3.1", rec["version"])
	})
}

func TestTokenAcquisition(t *testing.T) {
	var authCalls atomic.Int32
	var failNext atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth" {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "user", r.PostForm.Get("username"))
			assert.Equal(t, "pass", r.PostForm.Get("password"))
			assert.Equal(t, "true", r.PostForm.Get("token"))
			n := authCalls.Add(1)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, "jwt-%d\n", n)
			return
		}
		if failNext.CompareAndSwap(true, false) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"auth":%q}`, r.Header.Get("Authorization"))
	}))
	t.Cleanup(srv.Close)

	client, err := qualys.NewClient(
		qualys.WithGatewayURL(srv.URL),
		qualys.WithBasicAuth("user", "pass"),
	)
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := qualys.Execute(ctx, client, "pm", "get_version", nil, qualys.RawRecord)
	require.NoError(t, err)
	assert.Equal(t, "Bearer jwt-1", rec["auth"])

	_, err = qualys.Execute(ctx, client, "pm", "get_version", nil, qualys.RawRecord)
	require.NoError(t, err)
	assert.EqualValues(t, 1, authCalls.Load())

	failNext.Store(true)
	_, err = qualys.Execute(ctx, client, "pm", "get_version", nil, qualys.RawRecord)
	var authErr *qualys.AuthenticationError
	require.ErrorAs(t, err, &authErr)

	rec, err = qualys.Execute(ctx, client, "pm", "get_version", nil, qualys.RawRecord)
	require.NoError(t, err)
	assert.Equal(t, "Bearer jwt-2", rec["auth"])
	assert.EqualValues(t, 2, authCalls.Load())
}

func TestTokenAcquisitionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"bad credentials"}`)
	}))
	t.Cleanup(srv.Close)

	client, err := qualys.NewClient(
		qualys.WithGatewayURL(srv.URL),
		qualys.WithBasicAuth("user", "wrong"),
	)
	require.NoError(t, err)

	_, err = qualys.Execute(context.Background(), client, "pm", "get_version", nil, qualys.RawRecord)
	var authErr *qualys.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "bad credentials", authErr.Message)
}
