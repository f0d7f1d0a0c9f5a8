package catalog

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/studymirror/pkg/errors"
)

const testToken = "session-token"

var studyTime = time.Date(2019, 3, 4, 10, 30, 0, 0, time.UTC)

// newTestServer returns a catalog server that serves one study, "s1". Studies
// other than "s1" don't exist, and "broken" always fails with a 500.
func newTestServer(t *testing.T, apiVersion string) *httptest.Server {
	router := mux.NewRouter()
	router.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]string{"version": apiVersion})
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["username"] != "alice" || creds["password"] != "secret" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, map[string]string{"token": testToken})
	}).Methods(http.MethodPost)
	router.HandleFunc("/api/studies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []studyJSON{
			{ID: "s1", Label: "Study one", Timestamp: studyTime},
			{ID: "s2", Label: "Study two", Timestamp: studyTime.Add(time.Hour)},
		})
	}).Methods(http.MethodGet)

	studies := router.PathPrefix("/api/studies/{id}").Subrouter()
	studies.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch mux.Vars(r)["id"] {
			case "s1":
				next.ServeHTTP(w, r)
			case "broken":
				http.Error(w, "internal error", http.StatusInternalServerError)
			default:
				http.NotFound(w, r)
			}
		})
	})
	studies.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, studyJSON{ID: "s1", Label: "Study one", Timestamp: studyTime})
	}).Methods(http.MethodGet)
	studies.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, "login required", http.StatusForbidden)
			return
		}
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Write([]byte("zipped-bytes"))
	}).Methods(http.MethodGet)
	studies.HandleFunc("/variables", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []variableJSON{
			{
				ID: "V1", Label: "Gender", Name: "gender",
				Categories: []categoryJSON{
					{ID: "C1", Label: "Male", Value: "1"},
					{ID: "C2", Label: "Female", Value: "2"},
				},
			},
			{ID: "V2", Label: "Age", Name: "age"},
		})
	}).Methods(http.MethodGet)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewHTTPClient(t *testing.T) {
	_, err := NewHTTPClient("", nil)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = NewHTTPClient("not a url", nil)
	assert.True(t, errors.IsConfigurationError(err))

	c, err := NewHTTPClient("http://catalog.example.com/root/", nil)
	assert.NoError(t, err)
	assert.Equal(t, "/root", c.endpoint.Path)
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version  string
		expError bool
	}{
		{version: "1.0.0", expError: false},
		{version: "1.4.2", expError: false},
		{version: "0.9.0", expError: true},
		{version: "2.0.0", expError: true},
	}

	for _, test := range tests {
		server := newTestServer(t, test.version)
		c, err := NewHTTPClient(server.URL, server.Client())
		require.NoError(t, err)

		err = c.CheckVersion(context.Background())
		if test.expError {
			assert.True(t, errors.IsConfigurationError(err), test.version)
		} else {
			assert.NoError(t, err, test.version)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	server := newTestServer(t, "1.0.0")
	ctx := context.Background()

	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)

	err = c.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong"})
	assert.True(t, errors.IsAuthError(err))
	assert.Empty(t, c.token)

	// Anonymous sessions can't download the data.
	_, err = c.FetchData(ctx, Study{ID: "s1"})
	assert.True(t, errors.IsTransportError(err))

	assert.NoError(t, c.Authenticate(ctx, Credentials{Username: "alice", Password: "secret"}))
	assert.Equal(t, testToken, c.token)

	data, err := c.FetchData(ctx, Study{ID: "s1"})
	require.NoError(t, err)
	defer data.Close()

	contents, err := ioutil.ReadAll(data)
	assert.NoError(t, err)
	assert.Equal(t, "zipped-bytes", string(contents))
}

func TestListStudies(t *testing.T) {
	server := newTestServer(t, "1.0.0")
	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)

	studies, err := c.ListStudies(context.Background())
	assert.NoError(t, err)
	assert.Len(t, studies, 2)
	assert.Equal(t, "s1", studies[0].ID)
	assert.Equal(t, "Study two", studies[1].Label)
	assert.True(t, studyTime.Equal(studies[0].Timestamp))

	server.Close()
	_, err = c.ListStudies(context.Background())
	assert.True(t, errors.IsCatalogUnavailable(err))
}

func TestGetStudy(t *testing.T) {
	server := newTestServer(t, "1.0.0")
	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)
	ctx := context.Background()

	study, err := c.GetStudy(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, "Study one", study.Label)

	_, err = c.GetStudy(ctx, "missing")
	assert.Equal(t, errors.NotFound{ID: "missing"}, err)

	_, err = c.GetStudy(ctx, "broken")
	assert.True(t, errors.IsTransportError(err))
}

func TestFetchVariables(t *testing.T) {
	server := newTestServer(t, "1.0.0")
	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)
	ctx := context.Background()

	variables, err := c.FetchVariables(ctx, Study{ID: "s1"})
	assert.NoError(t, err)
	assert.Equal(t, []Variable{
		{
			ID: "V1", Label: "Gender", Name: "gender",
			Categories: []Category{
				{ID: "C1", Label: "Male", Value: "1"},
				{ID: "C2", Label: "Female", Value: "2"},
			},
		},
		{ID: "V2", Label: "Age", Name: "age", Categories: []Category{}},
	}, variables)

	_, err = c.FetchVariables(ctx, Study{ID: "broken"})
	assert.True(t, errors.IsTransportError(err))
}
