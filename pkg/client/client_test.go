package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/fruitsalade/hubmirror/pkg/models"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
	"github.com/fruitsalade/hubmirror/pkg/retry"
)

const (
	hubID     = "1a2b3c4d-0000-1111-2222-333344445555"
	projectID = "9f8e7d6c-0000-1111-2222-333344445555"
)

func testClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(Config{
		BaseURL: ts.URL,
		RetryConfig: retry.Config{
			MaxAttempts: 3,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok", TokenType: "Bearer"}),
	})
	return c, ts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	json.NewEncoder(w).Encode(v)
}

func item(id, name, tip string) map[string]any {
	return map[string]any{
		"type":       "items",
		"id":         id,
		"attributes": map[string]any{"displayName": name},
		"relationships": map[string]any{
			"tip": map[string]any{"data": map[string]any{"type": "versions", "id": tip}},
		},
	}
}

func TestGetProject(t *testing.T) {
	var gotPath, gotAuth string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, map[string]any{
			"data": map[string]any{
				"type": "projects",
				"id":   "b." + projectID,
				"attributes": map[string]any{
					"name":      "Tower",
					"extension": map[string]any{"data": map[string]any{"projectType": "ACC"}},
				},
				"relationships": map[string]any{
					"rootFolder": map[string]any{"data": map[string]any{"type": "folders", "id": "urn:root"}},
				},
			},
		})
	}))
	defer ts.Close()

	obj, err := c.GetProject(context.Background(), remoteid.NewPair(hubID, projectID))
	require.NoError(t, err)
	assert.Equal(t, "/project/v1/hubs/b."+hubID+"/projects/b."+projectID, gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "Tower", obj.Name())
	assert.Equal(t, "urn:root", obj.RootFolderID())
	assert.Equal(t, models.PlatformACC, obj.Platform())
}

func TestInvalidIDsMakeNoRequest(t *testing.T) {
	var calls atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	ctx := context.Background()
	_, err := c.GetProject(ctx, remoteid.NewPair("nope", projectID))
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = c.GetFolderByProject(ctx, remoteid.Parse(projectID), " ")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = c.GetFolderContents(ctx, remoteid.ID{}, "urn:f")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = c.ListProjects(ctx, remoteid.ID{}, "")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.Zero(t, calls.Load())
}

func TestGetFolderContentsFollowsPages(t *testing.T) {
	var srv *httptest.Server
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "":
			writeJSON(w, map[string]any{
				"links": map[string]any{"next": map[string]any{"href": srv.URL + r.URL.Path + "?page=2"}},
				"data": []any{
					map[string]any{"type": "folders", "id": "f1", "attributes": map[string]any{"name": "Drawings"}},
				},
			})
		case "2":
			writeJSON(w, map[string]any{
				"data": []any{item("i1", "spec.pdf", "urn:v?version=4")},
			})
		}
	}))
	srv = ts
	defer ts.Close()

	objs, err := c.GetFolderContents(context.Background(), remoteid.Parse(projectID), "urn:root")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "Drawings", objs[0].Name())
	n := objs[1].Node()
	require.NotNil(t, n)
	assert.Equal(t, 4, n.Version)
}

func TestGetFolderContentsStopsAtMaxLoops(t *testing.T) {
	var calls atomic.Int32
	var srv *httptest.Server
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		writeJSON(w, map[string]any{
			"links": map[string]any{"next": map[string]any{"href": fmt.Sprintf("%s%s?page=%d", srv.URL, r.URL.Path, n+1)}},
			"data":  []any{item(fmt.Sprintf("i%d", n), "x", "")},
		})
	}))
	srv = ts
	defer ts.Close()

	objs, err := c.GetFolderContents(context.Background(), remoteid.Parse(projectID), "urn:root")
	require.NoError(t, err)
	assert.Len(t, objs, MaxLoops)
	assert.EqualValues(t, MaxLoops, calls.Load())
}

func TestEmptyFolderIsNotAnError(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": []any{}})
	}))
	defer ts.Close()

	objs, err := c.GetFolderContents(context.Background(), remoteid.Parse(projectID), "urn:empty")
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"data": []any{}})
	}))
	defer ts.Close()

	_, err := c.ListHubs(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"developerMessage":"no access"}`))
	}))
	defer ts.Close()

	_, err := c.GetFolderByProject(context.Background(), remoteid.Parse(projectID), "urn:f")
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, apiErr.Body, "no access")
	assert.EqualValues(t, 1, calls.Load())
}

func TestListProjectsFilter(t *testing.T) {
	var gotFilter string
	var calls atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotFilter = r.URL.Query().Get("filter[name]-contains")
		writeJSON(w, map[string]any{"data": []any{
			map[string]any{"type": "projects", "id": "b." + projectID, "attributes": map[string]any{"name": "Tower A"}},
		}})
	}))
	defer ts.Close()

	hub := remoteid.Parse(hubID)
	objs, err := c.ListProjects(context.Background(), hub, "ab")
	require.NoError(t, err)
	assert.Empty(t, objs)
	assert.Zero(t, calls.Load())

	objs, err = c.ListProjects(context.Background(), hub, "   ab  ")
	require.NoError(t, err)
	assert.Empty(t, objs, "padding does not count toward the minimum length")
	assert.Zero(t, calls.Load())

	objs, err = c.ListProjects(context.Background(), hub, " Tower ")
	require.NoError(t, err)
	assert.Len(t, objs, 1)
	assert.Equal(t, "Tower", gotFilter)
}

func TestRoutingHeaders(t *testing.T) {
	var region, user string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		region = r.Header.Get("x-ads-region")
		user = r.Header.Get("x-user-id")
		writeJSON(w, map[string]any{"data": []any{}})
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, Region: "EMEA", UserID: "u-1"})
	_, err := c.ListHubs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EMEA", region)
	assert.Equal(t, "u-1", user)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Zero(t, retryAfter(""))
	assert.Zero(t, retryAfter("soon"))
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	assert.Greater(t, retryAfter(future), 50*time.Minute)
}
