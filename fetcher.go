package flagcore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPI        = "https://statsigapi.net/v1"
	fetchMaxRetries   = 5
	fetchBaseBackoff  = time.Second
	backoffMultiplier = 10
)

// idListLookupEntry is one row of the id-lists lookup response: where
// to range-GET the list's delta from, and enough identity to detect
// that the whole file was rotated server-side.
type idListLookupEntry struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	CreationTime int64  `json:"creationTime"`
	FileID       string `json:"fileID"`
}

// Fetcher is the network collaborator the Spec Store polls through.
// The default implementation talks to the config-specs and id-lists
// endpoints over HTTP with retry/backoff; tests substitute a fake.
type Fetcher interface {
	DownloadConfigSpecs(ctx context.Context, sinceTime int64) (*downloadConfigSpecResponse, bool, error)
	GetIDListLookup(ctx context.Context) (map[string]idListLookupEntry, error)
	FetchIDListRange(ctx context.Context, url string, fromByte int64) (io.ReadCloser, int64, error)
	PostException(ctx context.Context, payload interface{}) error
}

// httpFetcher is the reference Fetcher, grounded on the teacher's
// transport.go retry loop but generalized from POST-only to GET (for
// config specs and ranged ID-list downloads) alongside POST (for
// exception reporting, used by the error boundary).
type httpFetcher struct {
	apiBase  string
	apiKey   string
	client   *http.Client
	metadata Metadata
}

func newHTTPFetcher(apiBase, apiKey string, client *http.Client) *httpFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	apiBase = strings.TrimSuffix(defaultString(apiBase, defaultAPI), "/")
	return &httpFetcher{apiBase: apiBase, apiKey: apiKey, client: client, metadata: currentMetadata()}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (f *httpFetcher) DownloadConfigSpecs(ctx context.Context, sinceTime int64) (*downloadConfigSpecResponse, bool, error) {
	endpoint := fmt.Sprintf("%s/download_config_specs/%s.json?sinceTime=%d", f.apiBase, f.apiKey, sinceTime)

	var out downloadConfigSpecResponse
	notModified, err := f.retryableGET(ctx, endpoint, func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return nil, false, newCoreError(KindInvalidConfigSpecsResp, "download config specs", err)
	}
	if notModified {
		return nil, false, nil
	}
	return &out, true, nil
}

func (f *httpFetcher) GetIDListLookup(ctx context.Context) (map[string]idListLookupEntry, error) {
	endpoint := fmt.Sprintf("%s/get_id_lists", f.apiBase)

	var raw map[string]idListLookupEntry
	_, err := f.retryableGET(ctx, endpoint, func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(&raw)
	})
	if err != nil {
		return nil, newCoreError(KindInvalidIDListsResponse, "get id list lookup", err)
	}
	return raw, nil
}

// FetchIDListRange issues a ranged GET starting at fromByte (or a
// plain GET when fromByte is 0) and returns the response body for the
// caller to stream-scan, plus the Content-Length reported so the
// caller can update its readBytes accounting even if the body read is
// short.
func (f *httpFetcher) FetchIDListRange(ctx context.Context, url string, fromByte int64) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	if fromByte > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", fromByte))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("id list range fetch: http status %d", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

// PostException reports payload to the exception endpoint. Used by the
// error boundary, rate limited at the caller.
func (f *httpFetcher) PostException(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/sdk_exception", f.apiBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	f.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return newCoreError(KindTooManyRequests, "exception report throttled", nil)
	}
	return nil
}

func (f *httpFetcher) setCommonHeaders(req *http.Request) {
	req.Header.Set("STATSIG-API-KEY", f.apiKey)
	req.Header.Set("STATSIG-SDK-TYPE", f.metadata.SDKType)
	req.Header.Set("STATSIG-SDK-VERSION", f.metadata.SDKVersion)
	req.Header.Set("STATSIG-CLIENT-TIME", strconv.FormatInt(time.Now().UnixMilli(), 10))
}

// retryableGET runs a GET against endpoint with the teacher's
// exponential-backoff retry loop, calling decode on a 2xx response.
// It returns notModified=true on a 304 without invoking decode.
func (f *httpFetcher) retryableGET(ctx context.Context, endpoint string, decode func(*http.Response) error) (notModified bool, err error) {
	backoff := fetchBaseBackoff
	retriesLeft := fetchMaxRetries

	for {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if reqErr != nil {
			return false, reqErr
		}
		f.setCommonHeaders(req)

		resp, doErr := f.client.Do(req)
		if doErr != nil {
			if retriesLeft <= 0 {
				return false, doErr
			}
			retriesLeft--
			if !sleepBackoff(ctx, &backoff) {
				return false, ctx.Err()
			}
			continue
		}

		status := resp.StatusCode
		if status == http.StatusNotModified {
			resp.Body.Close()
			return true, nil
		}
		if status >= 200 && status < 300 {
			decodeErr := decode(resp)
			resp.Body.Close()
			return false, decodeErr
		}
		resp.Body.Close()

		if !shouldRetryStatus(status) || retriesLeft <= 0 {
			return false, fmt.Errorf("http response error code: %d", status)
		}
		retriesLeft--
		if !sleepBackoff(ctx, &backoff) {
			return false, ctx.Err()
		}
	}
}

func sleepBackoff(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
		*backoff *= backoffMultiplier
		return true
	}
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 408, 500, 502, 503, 504, 522, 524, 599:
		return true
	default:
		return false
	}
}
