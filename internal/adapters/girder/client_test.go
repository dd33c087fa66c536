package girder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		APIRoot:            srv.URL + "/api/v1",
		WebRoot:            srv.URL + "/",
		FilterInfoEndpoint: srv.URL + "/api/v1/item/geometa/distinct",
		Token:              "secret",
		Timeout:            2 * time.Second,
	})
}

func TestSearchGeospatial(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/item/geospatial", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Girder-Token"))
		assert.Equal(t, `{"meta.platform":{"$in":["A"]}}`, r.URL.Query().Get("q"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "100", r.URL.Query().Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"_id":"i1","name":"one","baseParentId":"c1","meta":{"platform":"A"},
			 "geo":{"geometry":{"type":"Point","coordinates":[1.5,2.5]}},"_thumbnails":["t1"]}
		]`))
	})

	items, err := client.SearchGeospatial(context.Background(), `{"meta.platform":{"$in":["A"]}}`, 50, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i1", items[0].ID)
	assert.Equal(t, "c1", items[0].BaseParentID)
	assert.Equal(t, "A", items[0].Meta["platform"])
	assert.True(t, items[0].HasGeometry())
	assert.True(t, items[0].Geo.Geometry.IsPoint())
	assert.Equal(t, []string{"t1"}, items[0].Thumbnails)
}

func TestDistinct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/item/geometa/distinct", r.URL.Path)
		assert.Equal(t, []string{"meta.platform"}, r.URL.Query()["field_names[]"])
		_, _ = w.Write([]byte(`{"meta.platform":["A","B",3]}`))
	})

	values, err := client.Distinct(context.Background(), "meta.platform")
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "B", float64(3)}, values)
}

func TestDistinct_MissingFieldIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	values, err := client.Distinct(context.Background(), "meta.unknown")
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.NotNil(t, values)
}

func TestGetItem_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/item/missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Invalid item id"}`))
	})

	_, err := client.GetItem(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestGetCollectionAndFiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/collection/c1":
			_, _ = w.Write([]byte(`{"_id":"c1","name":"Flights"}`))
		case "/api/v1/item/i1/files":
			_, _ = w.Write([]byte(`[{"_id":"f1","name":"a.TIF","itemId":"i1","exts":["TIF"],"size":10}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	col, err := client.GetCollection(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Flights", col.Name)

	files, err := client.ListItemFiles(context.Background(), "i1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []string{"TIF"}, files[0].Exts)
}

func TestCreateThumbnail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/thumbnail", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "f1", r.PostForm.Get("fileId"))
		assert.Equal(t, "100", r.PostForm.Get("width"))
		assert.Equal(t, "80", r.PostForm.Get("height"))
		assert.Equal(t, "i1", r.PostForm.Get("attachToId"))
		assert.Equal(t, "item", r.PostForm.Get("attachToType"))
		_, _ = w.Write([]byte(`{"_id":"job1","status":0}`))
	})

	require.NoError(t, client.CreateThumbnail(context.Background(), "f1", "i1", 100, 80))
}

func TestURLs(t *testing.T) {
	client := New(Config{APIRoot: "http://girder/api/v1/", WebRoot: "http://girder/"})

	assert.Equal(t, "http://girder/#item/i1", client.ItemURL("i1"))
	assert.Equal(t, "http://girder/api/v1/file/f1/download", client.FileDownloadURL("f1"))

	u, err := url.Parse(client.DownloadURL([]string{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/resource/download", u.Path)

	var resources map[string][]string
	require.NoError(t, json.Unmarshal([]byte(u.Query().Get("resources")), &resources))
	assert.Equal(t, []string{"a", "b"}, resources["item"])
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 10; i++ {
		err := client.Ping(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUpstream))
	}

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Equal(t, int32(10), hits.Load())
}

func TestNotFoundDoesNotTripCircuit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 12; i++ {
		_, err := client.GetItem(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	}
}
