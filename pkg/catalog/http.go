package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/studymirror/pkg/errors"
	"github.com/sidkik/studymirror/pkg/version"
)

// SupportedAPIVersions is the range of catalog API versions this client can
// talk to.
const SupportedAPIVersions = ">= 1.0, < 2.0"

// dataFormat is the export format requested for the tabular artifact. The
// catalog returns it zipped.
const dataFormat = "csv"

// HTTPClient talks to a catalog server over its JSON API.
type HTTPClient struct {
	endpoint   *url.URL
	httpClient *http.Client

	// token is set by Authenticate. Requests are anonymous while it's empty.
	token string
}

type studyJSON struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

type variableJSON struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Name       string         `json:"name"`
	Categories []categoryJSON `json:"categories"`
}

type categoryJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type statusError struct {
	code   int
	status string
	body   string
}

func (err statusError) Error() string {
	if err.body == "" {
		return fmt.Sprintf("server responded with %s", err.status)
	}
	return fmt.Sprintf("server responded with %s (%s)", err.status, err.body)
}

// NewHTTPClient creates a client for the catalog at `endpoint`. If
// `httpClient` is nil, http.DefaultClient is used.
func NewHTTPClient(endpoint string, httpClient *http.Client) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, errors.ConfigurationError{Field: "server", Reason: "required"}
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ConfigurationError{Field: "server",
			Reason: fmt.Sprintf("%q is not an absolute URL", endpoint)}
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{endpoint: u, httpClient: httpClient}, nil
}

// CheckVersion makes sure that the catalog speaks a supported API version.
func (c *HTTPClient) CheckVersion(ctx context.Context) error {
	var body struct {
		Version string `json:"version"`
	}
	if err := c.getJSON(ctx, "/api/version", &body); err != nil {
		return errors.WithContext(err, "get catalog version")
	}

	serverVersion, err := goversion.NewVersion(body.Version)
	if err != nil {
		return errors.WithContext(err, "parse catalog version")
	}

	constraints, err := goversion.NewConstraint(SupportedAPIVersions)
	if err != nil {
		return errors.WithContext(err, "parse supported versions")
	}

	if !constraints.Check(serverVersion) {
		return errors.ConfigurationError{Field: "server",
			Reason: fmt.Sprintf("catalog API version %s is not supported (need %s)",
				serverVersion, SupportedAPIVersions)}
	}
	log.WithField("version", serverVersion.String()).Debug("Catalog API version is supported")
	return nil
}

// Authenticate logs in and uses the returned token for all later requests.
func (c *HTTPClient) Authenticate(ctx context.Context, creds Credentials) error {
	payload, err := json.Marshal(map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return errors.WithContext(err, "create payload")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/login", bytes.NewReader(payload))
	if err != nil {
		return errors.WithContext(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithContext(err, "connect to catalog")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.AuthError{Username: creds.Username, Err: readStatusError(resp)}
	default:
		return errors.WithContext(readStatusError(resp), "login")
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.WithContext(err, "parse login response")
	}
	if body.Token == "" {
		return errors.AuthError{Username: creds.Username, Err: errors.New("empty session token")}
	}

	c.token = body.Token
	return nil
}

// ListStudies returns every study in the catalog, in catalog order. The
// studies don't include their variables.
func (c *HTTPClient) ListStudies(ctx context.Context) ([]Study, error) {
	var body []studyJSON
	if err := c.getJSON(ctx, "/api/studies", &body); err != nil {
		return nil, errors.CatalogUnavailable{Err: err}
	}

	studies := make([]Study, 0, len(body))
	for _, s := range body {
		studies = append(studies, s.toStudy())
	}
	return studies, nil
}

// GetStudy returns the study with the given identifier.
func (c *HTTPClient) GetStudy(ctx context.Context, id string) (Study, error) {
	var body studyJSON
	err := c.getJSON(ctx, studyPath(id), &body)
	if err != nil {
		if statusErr, ok := errors.RootCause(err).(statusError); ok &&
			statusErr.code == http.StatusNotFound {
			return Study{}, errors.NotFound{ID: id}
		}
		return Study{}, errors.TransportError{Op: "get study", Study: id, Err: err}
	}
	return body.toStudy(), nil
}

// FetchData downloads the zipped tabular export of the study. The caller is
// responsible for closing the returned stream.
func (c *HTTPClient) FetchData(ctx context.Context, study Study) (io.ReadCloser, error) {
	path := fmt.Sprintf("%s/download?format=%s", studyPath(study.ID), dataFormat)
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, errors.TransportError{Op: "fetch data", Study: study.ID, Err: err}
	}
	return resp.Body, nil
}

// FetchVariables downloads the variables and categories of the study.
func (c *HTTPClient) FetchVariables(ctx context.Context, study Study) ([]Variable, error) {
	var body []variableJSON
	if err := c.getJSON(ctx, studyPath(study.ID)+"/variables", &body); err != nil {
		return nil, errors.TransportError{Op: "fetch variables", Study: study.ID, Err: err}
	}

	variables := make([]Variable, 0, len(body))
	for _, v := range body {
		categories := make([]Category, 0, len(v.Categories))
		for _, c := range v.Categories {
			categories = append(categories, Category{ID: c.ID, Label: c.Label, Value: c.Value})
		}
		variables = append(variables, Variable{
			ID:         v.ID,
			Label:      v.Label,
			Name:       v.Name,
			Categories: categories,
		})
	}
	return variables, nil
}

func (s studyJSON) toStudy() Study {
	return Study{ID: s.ID, Label: s.Label, Timestamp: s.Timestamp}
}

func studyPath(id string) string {
	return "/api/studies/" + url.PathEscape(id)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target, err := c.endpoint.Parse(c.endpoint.Path + path)
	if err != nil {
		return nil, errors.WithContext(err, "build url")
	}

	req, err := http.NewRequest(method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	req.Header.Set("User-Agent", "studymirror/"+version.Version)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// get performs a GET request, and returns the response if the server
// responded with 200. Otherwise, the response body is consumed and closed.
func (c *HTTPClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, errors.WithContext(err, "create request")
	}

	log.WithField("path", path).Debug("Requesting from catalog")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithContext(err, "connect to catalog")
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}
	return resp, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WithContext(err, "parse response")
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	// Only keep the start of the body since it's just for context.
	body, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 512))
	return statusError{code: resp.StatusCode, status: resp.Status, body: strings.TrimSpace(string(body))}
}
