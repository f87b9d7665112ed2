// Package media uploads alert attachments, tolerating per-item failure.
package media

import (
	"context"
	"sync"

	"rescue-alert-service/internal/agent/metrics"
	Logger "rescue-alert-service/pkg/logger"
)

// Blob is one attachment held on the device. Data is base64 in JSON.
type Blob struct {
	Name         string `json:"name"`
	MimeType     string `json:"type"`
	LastModified int64  `json:"lastModified"`
	Data         []byte `json:"data"`
}

// Uploader stores one blob and returns its opaque storage id.
type Uploader interface {
	UploadMedia(ctx context.Context, blob Blob) (string, error)
}

// Result of one batch. IDs are in completion order, not input order.
type Result struct {
	IDs      []string
	Failures int
	Errors   []error
}

// Pipeline uploads blobs concurrently.
type Pipeline struct {
	Uploader Uploader
	// MaxConcurrent bounds in-flight uploads; zero means one goroutine per blob.
	MaxConcurrent int
}

// NewPipeline returns a pipeline using uploader.
func NewPipeline(uploader Uploader, maxConcurrent int) *Pipeline {
	return &Pipeline{Uploader: uploader, MaxConcurrent: maxConcurrent}
}

// Upload attempts every blob independently and waits for all of them.
// A failed item is counted and skipped; it never aborts the rest of the batch.
func (p *Pipeline) Upload(ctx context.Context, blobs []Blob) Result {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res Result
	)

	limit := p.MaxConcurrent
	if limit <= 0 || limit > len(blobs) {
		limit = len(blobs)
	}
	sem := make(chan struct{}, max(limit, 1))

	for _, blob := range blobs {
		wg.Add(1)
		go func(b Blob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			id, err := p.Uploader.UploadMedia(ctx, b)
			metrics.MediaUploads.WithLabelValues(metrics.Outcome(err)).Inc()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				Logger.Warning("[MEDIA] 上传 %s 失败: %v", b.Name, err)
				res.Failures++
				res.Errors = append(res.Errors, err)
				return
			}
			res.IDs = append(res.IDs, id)
		}(blob)
	}
	wg.Wait()
	return res
}
