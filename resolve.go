package lfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"

	"github.com/meigma/lfs/forge"
	lfshttp "github.com/meigma/lfs/http"
	"github.com/meigma/lfs/internal/batch"
)

// MediaType is the content type of batch API requests and responses.
const MediaType = "application/vnd.git-lfs+json"

type batchRequest struct {
	Operation string    `json:"operation"`
	Objects   []Pointer `json:"objects"`
}

type batchResponse struct {
	Objects []batchObject `json:"objects"`
}

type batchObject struct {
	OID     string `json:"oid"`
	Size    int64  `json:"size"`
	Actions *struct {
		Download *struct {
			Href string `json:"href"`
		} `json:"download"`
	} `json:"actions"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ResolveURLs asks the tree's batch API for a download URL for every
// pointer and returns them in the order of pointers.
//
// Pointers are sent in chunks of at most BatchLimit, with chunk requests
// running concurrently up to Concurrency. Response objects are matched to
// pointers by oid. If any chunk fails, the whole call fails and no URLs are
// returned. An empty pointers slice returns immediately without a request.
func (c *Client) ResolveURLs(ctx context.Context, tree forge.Tree, pointers []Pointer) ([]string, error) {
	if len(pointers) == 0 {
		return nil, nil
	}
	if err := tree.Validate(); err != nil {
		return nil, err
	}

	endpoint := tree.BatchURL()
	chunks := batch.Chunk(pointers, c.batchLimit)
	c.logger.Debug("resolving lfs object urls",
		slog.String("endpoint", endpoint),
		slog.Int("count", len(pointers)),
		slog.Int("chunks", len(chunks)))

	resolved, err := batch.All(ctx, chunks, c.concurrency, func(ctx context.Context, i int, chunk []Pointer) ([]string, error) {
		c.logger.Debug("requesting lfs batch",
			slog.Int("chunk", i),
			slog.Int("count", len(chunk)))
		return c.resolveChunk(ctx, endpoint, chunk)
	})
	if err != nil {
		c.logger.Debug("lfs batch failed", slog.Any("error", err))
		return nil, err
	}

	urls := make([]string, 0, len(pointers))
	for _, chunk := range resolved {
		urls = append(urls, chunk...)
	}
	return urls, nil
}

// ResolveBlobs sets the download URL of every blob that has none. With
// refresh, blobs that already have a URL are resolved again, for when URLs
// are known to have expired. URLs are assigned only if the whole call
// succeeds.
func (c *Client) ResolveBlobs(ctx context.Context, tree forge.Tree, blobs []*Blob, refresh bool) error {
	pending := make([]*Blob, 0, len(blobs))
	pointers := make([]Pointer, 0, len(blobs))
	for _, b := range blobs {
		if b == nil {
			continue
		}
		if _, ok := b.URL(); ok && !refresh {
			continue
		}
		pending = append(pending, b)
		pointers = append(pointers, b.Pointer)
	}

	urls, err := c.ResolveURLs(ctx, tree, pointers)
	if err != nil {
		return err
	}
	for i, b := range pending {
		b.SetURL(urls[i])
	}
	return nil
}

// resolveChunk performs one batch request and returns the download URL of
// each pointer in chunk, in order.
func (c *Client) resolveChunk(ctx context.Context, endpoint string, chunk []Pointer) ([]string, error) {
	body, err := json.Marshal(batchRequest{Operation: "download", Objects: chunk})
	if err != nil {
		return nil, fmt.Errorf("lfs: encode batch request: %w", err)
	}

	header := nethttp.Header{}
	header.Set("Accept", MediaType)
	header.Set("Content-Type", MediaType)

	data, err := c.http.Post(ctx, endpoint, header, body)
	if err != nil {
		return nil, transportError("batch", endpoint, err)
	}

	resp, err := decodeBatchResponse(endpoint, data)
	if err != nil {
		return nil, err
	}

	hrefs := make(map[string]string, len(resp.Objects))
	var objectErrs map[string]*ObjectError
	for _, obj := range resp.Objects {
		if obj.Error != nil {
			if objectErrs == nil {
				objectErrs = make(map[string]*ObjectError)
			}
			objectErrs[obj.OID] = &ObjectError{OID: obj.OID, Code: obj.Error.Code, Message: obj.Error.Message}
			continue
		}
		if obj.Actions == nil || obj.Actions.Download == nil || obj.Actions.Download.Href == "" {
			return nil, &SchemaError{
				URL: endpoint,
				Err: fmt.Errorf("object %s has no download action", obj.OID),
			}
		}
		hrefs[obj.OID] = obj.Actions.Download.Href
	}

	urls := make([]string, len(chunk))
	for i, p := range chunk {
		if href, ok := hrefs[p.OID]; ok {
			urls[i] = href
			continue
		}
		if objErr, ok := objectErrs[p.OID]; ok {
			return nil, objErr
		}
		return nil, &SchemaError{
			URL: endpoint,
			Err: fmt.Errorf("response has no object %s", p.OID),
		}
	}
	return urls, nil
}

func decodeBatchResponse(endpoint string, data []byte) (*batchResponse, error) {
	if !json.Valid(data) {
		return nil, &SchemaError{URL: endpoint, NotJSON: true, Body: snippet(data)}
	}
	var resp batchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &SchemaError{URL: endpoint, Body: snippet(data), Err: err}
	}
	if resp.Objects == nil {
		return nil, &SchemaError{URL: endpoint, Body: snippet(data), Err: errors.New(`missing "objects"`)}
	}
	return &resp, nil
}

// transportError wraps a failed request, keeping the status code when the
// server answered.
func transportError(op, url string, err error) error {
	te := &TransportError{Op: op, URL: url, Err: err}
	var statusErr *lfshttp.StatusError
	if errors.As(err, &statusErr) {
		te.StatusCode = statusErr.StatusCode
	}
	return te
}
