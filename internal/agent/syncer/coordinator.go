// Package syncer drains the offline queue into the canonical store after connectivity returns.
package syncer

import (
	"context"
	"sync"

	"rescue-alert-service/internal/agent/apiclient"
	"rescue-alert-service/internal/agent/media"
	"rescue-alert-service/internal/agent/metrics"
	"rescue-alert-service/internal/agent/outbox"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/pkg/errors"
)

// ErrPassInProgress is returned by Sync while another pass is running.
var ErrPassInProgress = errors.New("sync pass already running")

// Committer writes canonical alerts.
type Committer interface {
	CreateAlert(ctx context.Context, req apiclient.CreateAlertRequest) (apiclient.CreateAlertResponse, error)
}

// Phase of one record inside a pass.
type Phase string

const (
	PhaseQueued     Phase = "queued"
	PhaseUploading  Phase = "uploading"
	PhaseCommitting Phase = "committing"
	PhaseDone       Phase = "done"
)

// RecordOutcome is what happened to one record.
type RecordOutcome struct {
	Key           outbox.Key
	Phase         Phase
	AlertID       uint
	MediaIDs      []string
	MediaFailures int
	Replayed      bool
	Err           error
}

// PassResult summarises one pass.
type PassResult struct {
	Committed     int
	Failed        int
	Replayed      int
	MediaFailures int
	Records       []RecordOutcome
}

// Coordinator runs sync passes. At most one pass runs at a time.
type Coordinator struct {
	Queue     *outbox.Store
	Pipeline  *media.Pipeline
	Committer Committer
	DeviceID  string

	running sync.Mutex
}

// New returns a coordinator.
func New(queue *outbox.Store, pipeline *media.Pipeline, committer Committer, deviceID string) *Coordinator {
	return &Coordinator{Queue: queue, Pipeline: pipeline, Committer: committer, DeviceID: deviceID}
}

// IdempotencyKey derives the commit dedup key of a queue record on this device when the
// record does not carry one.
func IdempotencyKey(k outbox.Key, deviceID string) string {
	return outbox.IdempotencyKey(k.BuildingID, k.EnqueuedAt, deviceID)
}

// Sync drains the queue in creation order. For each record it uploads media, commits the
// alert with the ids that uploaded, and removes the record only after the commit is
// acknowledged. A failed commit leaves the record queued for the next pass. A pass that has
// started is not cancelled by ctx; a ctx already done before the pass starts skips it.
// An unreachable backend ends the pass early.
func (c *Coordinator) Sync(ctx context.Context) (PassResult, error) {
	if !c.running.TryLock() {
		return PassResult{}, ErrPassInProgress
	}
	defer c.running.Unlock()

	var res PassResult
	if ctx.Err() != nil {
		Logger.Warning("[SYNC] 同步开始前已取消，记录留待下次")
		return res, nil
	}
	work := context.WithoutCancel(ctx)

	for rec, err := range c.Queue.ListPending() {
		if err != nil {
			Logger.Error("[SYNC] 读取离线记录 %s 失败: %v", rec.Key, err)
			res.Failed++
			res.Records = append(res.Records, RecordOutcome{Key: rec.Key, Phase: PhaseQueued, Err: err})
			continue
		}

		out := c.syncRecord(work, rec)
		res.Records = append(res.Records, out)
		res.MediaFailures += out.MediaFailures

		if out.Err != nil {
			res.Failed++
			metrics.CommitFailures.Inc()
			if errors.Is(out.Err, apiclient.ErrUnreachable) {
				Logger.Warning("[SYNC] 服务器不可达，结束本轮同步")
				break
			}
			continue
		}
		res.Committed++
		metrics.RecordsCommitted.Inc()
		if out.Replayed {
			res.Replayed++
		}
	}

	if n, err := c.Queue.Len(); err == nil {
		metrics.PendingRecords.Set(float64(n))
	}
	metrics.SyncPasses.WithLabelValues(passLabel(res)).Inc()
	Logger.Info("[SYNC] 本轮同步完成: 提交 %d, 失败 %d, 重放 %d, 媒体失败 %d",
		res.Committed, res.Failed, res.Replayed, res.MediaFailures)
	return res, nil
}

func (c *Coordinator) syncRecord(ctx context.Context, rec outbox.Record) RecordOutcome {
	out := RecordOutcome{Key: rec.Key, Phase: PhaseUploading}

	uploaded := c.Pipeline.Upload(ctx, rec.Media)
	out.MediaIDs = uploaded.IDs
	out.MediaFailures = uploaded.Failures
	if uploaded.Failures > 0 {
		Logger.Warning("[SYNC] 记录 %s 有 %d 个媒体上传失败，继续提交", rec.Key, uploaded.Failures)
	}

	out.Phase = PhaseCommitting
	resp, err := c.Committer.CreateAlert(ctx, apiclient.CreateAlertRequest{
		BuildingID:     rec.BuildingID,
		Description:    rec.Description,
		MediaIDs:       uploaded.IDs,
		IdempotencyKey: rec.CommitKey(c.DeviceID),
		SenderName:     rec.SenderName,
	})
	if err != nil {
		Logger.Error("[SYNC] 提交记录 %s 失败，保留在队列中: %v", rec.Key, err)
		out.Phase = PhaseQueued
		out.Err = err
		return out
	}
	out.AlertID = resp.Alert.ID
	out.Replayed = resp.Replayed

	if err := c.Queue.Remove(rec.Key); err != nil {
		// committed; a later pass replays onto the same record through the idempotency key
		Logger.Error("[SYNC] 删除已提交记录 %s 失败: %v", rec.Key, err)
	}
	out.Phase = PhaseDone
	Logger.Info("[SYNC] 记录 %s 已提交为警报 %d (媒体 %d 个)", rec.Key, resp.Alert.ID, len(uploaded.IDs))
	return out
}

func passLabel(res PassResult) string {
	switch {
	case res.Failed == 0:
		return "success"
	case res.Committed == 0:
		return "failure"
	default:
		return "partial"
	}
}
