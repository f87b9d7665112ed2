package apiclient

import (
	"bytes"
	"context"

	"rescue-alert-service/internal/agent/media"

	"github.com/go-resty/resty/v2"
)

type mediaObject struct {
	ID string `json:"id"`
}

// UploadMedia stores one blob and returns its storage id.
func (c *Client) UploadMedia(ctx context.Context, blob media.Blob) (string, error) {
	mime := blob.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	var out mediaObject
	req := c.HTTP.R().
		SetContext(ctx).
		SetMultipartField("file", blob.Name, mime, bytes.NewReader(blob.Data))
	if err := c.do(req, resty.MethodPost, "/api/media", &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// MediaURL returns a time limited view URL for a stored blob.
func (c *Client) MediaURL(ctx context.Context, id string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.do(c.HTTP.R().SetContext(ctx).SetPathParam("id", id), resty.MethodGet, "/api/media/{id}/view", &out)
	return out.URL, err
}
