// Package kara talks to the kara.moe karaoke database.
package kara

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://kara.moe/"
	DefaultUserAgent = "karaluxer/1.0"
	DefaultTimeout   = 60 * time.Second
)

// ErrInvalidID is returned by ParseID for input that is neither a kara page
// URL nor a kara ID.
var ErrInvalidID = errors.New("invalid kara.moe URL or ID")

var (
	pageURLPattern = regexp.MustCompile(`^https://kara\.moe/kara/[\w-]+/([\w-]+)/?(?:[?#].*)?$`)
	idPattern      = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// ParseID extracts the kara ID from a page URL such as
// https://kara.moe/kara/<slug>/<id>, or accepts a bare ID.
func ParseID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if m := pageURLPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if idPattern.MatchString(s) {
		return strings.ToLower(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
}

// StatusError reports a response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kara.moe request %s: unexpected status %s", e.URL, e.Status)
}

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Client fetches song metadata and files.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	UserAgent string
	Logger    Logger
}

// NewClient returns a client for baseURL, falling back to the defaults for
// empty values.
func NewClient(baseURL string, timeout time.Duration, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		BaseURL:   baseURL,
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Logger:    noopLogger{},
	}
}

func (c *Client) logf(format string, v ...any) {
	if c.Logger == nil {
		return
	}
	c.Logger.Printf(format, v...)
}

// Song is the metadata the converter needs from a kara entry.
type Song struct {
	ID           string
	Title        string
	SubFile      string
	MediaFile    string
	Language     string
	Year         int
	Artists      []string
	Authors      []string
	Tags         []string
	OffVocalFile string
}

type tag struct {
	Name string            `json:"name"`
	I18n map[string]string `json:"i18n"`
}

func (t tag) label() string {
	if v := t.I18n["eng"]; v != "" {
		return v
	}
	return t.Name
}

type karaResponse struct {
	KID                   string            `json:"kid"`
	Titles                map[string]string `json:"titles"`
	TitlesDefaultLanguage string            `json:"titles_default_language"`
	SubFile               string            `json:"subfile"`
	MediaFile             string            `json:"mediafile"`
	Year                  int               `json:"year"`
	Langs                 []tag             `json:"langs"`
	Singers               []tag             `json:"singers"`
	Authors               []tag             `json:"authors"`
	Genres                []tag             `json:"genres"`
	Misc                  []tag             `json:"misc"`
	Versions              []tag             `json:"versions"`
	Children              []string          `json:"children"`
}

func (r karaResponse) title() string {
	if t := r.Titles[r.TitlesDefaultLanguage]; t != "" {
		return t
	}
	return r.Titles["eng"]
}

func (r karaResponse) isOffVocal() bool {
	for _, v := range r.Versions {
		if strings.Contains(strings.ToLower(v.Name), "off vocal") ||
			strings.Contains(strings.ToLower(v.label()), "off vocal") {
			return true
		}
	}
	return false
}

// Song fetches the metadata of one kara. The off-vocal file comes from a
// child kara tagged as an off vocal version, when there is one.
func (c *Client) Song(ctx context.Context, id string) (Song, error) {
	data, err := c.fetch(ctx, id)
	if err != nil {
		return Song{}, err
	}

	song := Song{
		ID:        firstNonEmpty(data.KID, id),
		Title:     data.title(),
		SubFile:   data.SubFile,
		MediaFile: data.MediaFile,
		Year:      data.Year,
		Artists:   names(data.Singers),
		Authors:   names(data.Authors),
	}
	if len(data.Langs) > 0 {
		song.Language = data.Langs[0].label()
	}
	for _, t := range append(append([]tag(nil), data.Genres...), data.Misc...) {
		song.Tags = append(song.Tags, t.label())
	}

	for _, child := range data.Children {
		childData, err := c.fetch(ctx, child)
		if err != nil {
			c.logf("kara: skipping child %s: %v", child, err)
			continue
		}
		if childData.isOffVocal() && childData.MediaFile != "" {
			song.OffVocalFile = childData.MediaFile
			break
		}
	}
	return song, nil
}

func (c *Client) fetch(ctx context.Context, id string) (karaResponse, error) {
	endpoint, err := c.endpoint("api/karas/" + url.PathEscape(id))
	if err != nil {
		return karaResponse{}, err
	}
	c.logf("kara: GET %s", endpoint)

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return karaResponse{}, err
	}
	defer resp.Body.Close()

	var data karaResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return karaResponse{}, fmt.Errorf("decode kara %s: %w", id, err)
	}
	return data, nil
}

// Download saves a subtitle (.ass) or media file into destDir and returns
// the written path.
func (c *Client) Download(ctx context.Context, filename, destDir string) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid file name %q", filename)
	}

	folder := "downloads/medias/"
	if strings.EqualFold(filepath.Ext(name), ".ass") {
		folder = "downloads/lyrics/"
	}
	endpoint, err := c.endpoint(folder + url.PathEscape(name))
	if err != nil {
		return "", err
	}
	c.logf("kara: download %s", endpoint)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare download destination: %w", err)
	}

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	dest := filepath.Join(destDir, name)
	tmpFile, err := os.CreateTemp(destDir, "download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("move %s into place: %w", name, err)
	}
	return dest, nil
}

func (c *Client) endpoint(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse kara base URL: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("build kara URL: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kara.moe request %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

func names(tags []tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Name != "" {
			out = append(out, t.Name)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
