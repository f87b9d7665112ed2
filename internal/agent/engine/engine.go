// Package engine raises and resolves alerts, choosing the online or offline path
// from the current network state.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"rescue-alert-service/internal/agent/apiclient"
	"rescue-alert-service/internal/agent/clock"
	"rescue-alert-service/internal/agent/directory"
	"rescue-alert-service/internal/agent/media"
	"rescue-alert-service/internal/agent/metrics"
	"rescue-alert-service/internal/agent/outbox"
	"rescue-alert-service/internal/agent/sms"
	"rescue-alert-service/internal/domain/models"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

var (
	// ErrRoleForbidden is returned when a non-responder tries to resolve.
	ErrRoleForbidden = errors.New("only responders may resolve alerts")
	// ErrOffline is returned by operations that need connectivity.
	ErrOffline = errors.New("device is offline")
	// ErrBuildingRequired is returned when no building id is given.
	ErrBuildingRequired = errors.New("building id is required")
)

// Backend is the canonical store as the engine uses it.
type Backend interface {
	CreateAlert(ctx context.Context, req apiclient.CreateAlertRequest) (apiclient.CreateAlertResponse, error)
	ResolveAlert(ctx context.Context, id uint) (apiclient.Alert, error)
	SendNotification(ctx context.Context, req apiclient.NotificationRequest) (apiclient.NotificationResult, error)
}

// Network reports the current connectivity.
type Network interface {
	Connected() bool
}

// Mode is the path a raise took.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// RaiseRequest is what the reporter submits.
type RaiseRequest struct {
	BuildingID  string
	Description string
	Media       []media.Blob
}

// RaiseResult reports what happened.
type RaiseResult struct {
	Mode          Mode
	Alert         *apiclient.Alert
	MediaFailures int
	Notification  *apiclient.NotificationResult
	QueueKey      outbox.Key
	SMS           sms.Report
	Warnings      []string
}

// Engine wires the device components together.
type Engine struct {
	Actor     models.Actor
	Backend   Backend
	Network   Network
	Pipeline  *media.Pipeline
	Queue     *outbox.Store
	Directory *directory.Cache
	SMS       *sms.Dispatcher
	Buildings Buildings
	SIMSlot   int
	// DeviceID and Clock feed the idempotency key fixed for each raise.
	DeviceID string
	Clock    clock.Clock
}

// Raise sends an alert. Online it uploads media, notifies responders and commits the alert.
// Offline, or when the backend turns out to be unreachable, it queues the alert and
// broadcasts SMS to the cached responder numbers. Both paths commit under the same
// idempotency key, so an online commit whose response was lost and the queued copy of the
// same alert end up as one canonical alert.
func (e *Engine) Raise(ctx context.Context, req RaiseRequest, progress Progress) (RaiseResult, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	req.BuildingID = strings.TrimSpace(req.BuildingID)
	if req.BuildingID == "" {
		return RaiseResult{}, ErrBuildingRequired
	}
	if strings.TrimSpace(req.Description) == "" {
		req.Description = e.Buildings.DefaultDescription(req.BuildingID)
	}

	key := e.idempotencyKey(req.BuildingID)

	if e.Network.Connected() {
		res, err := e.raiseOnline(ctx, req, key, progress)
		if !errors.Is(err, apiclient.ErrUnreachable) {
			return res, err
		}
		Logger.Warning("[ENGINE] 在线发送失败，转入离线模式: %v", err)
		progress.Warn("No internet connection, trying offline mode now...")
	}
	return e.raiseOffline(ctx, req, key, progress)
}

// idempotencyKey returns a key unique to one raise, also for raises in the same
// millisecond or in another process.
func (e *Engine) idempotencyKey(buildingID string) string {
	clk := e.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return outbox.IdempotencyKey(buildingID, clk.Now().UnixMilli(), e.DeviceID+":"+ulid.Make().String())
}

func (e *Engine) raiseOnline(ctx context.Context, req RaiseRequest, key string, progress Progress) (RaiseResult, error) {
	res := RaiseResult{Mode: ModeOnline}

	progress.Update("Uploading media")
	uploaded := e.Pipeline.Upload(ctx, req.Media)
	res.MediaFailures = uploaded.Failures
	if uploaded.Failures > 0 {
		// 全部失败且都是网络问题时交给离线路径
		if len(uploaded.IDs) == 0 && allUnreachable(uploaded.Errors) {
			return res, errors.Wrap(apiclient.ErrUnreachable, "upload media")
		}
		w := mediaWarning(uploaded, len(req.Media))
		res.Warnings = append(res.Warnings, w)
		progress.Warn(w)
	}

	progress.Update("Sending emergency alert")
	note, err := e.Backend.SendNotification(ctx, apiclient.NotificationRequest{
		Title:   NotificationTitle,
		Body:    e.Buildings.OnlineBody(req.BuildingID),
		SMSBody: SMSBody(req.BuildingID),
	})
	if errors.Is(err, apiclient.ErrUnreachable) {
		return res, err
	}
	if err != nil {
		Logger.Warning("[ENGINE] 通知发送失败: %v", err)
		w := "Failed to notify responders: " + err.Error()
		res.Warnings = append(res.Warnings, w)
		progress.Warn(w)
	} else {
		res.Notification = &note
	}

	progress.Update("Saving emergency alert")
	created, err := e.Backend.CreateAlert(ctx, apiclient.CreateAlertRequest{
		BuildingID:     req.BuildingID,
		Description:    req.Description,
		MediaIDs:       uploaded.IDs,
		IdempotencyKey: key,
		SenderName:     e.Actor.Name,
	})
	if err != nil {
		if !errors.Is(err, apiclient.ErrUnreachable) {
			progress.Fail("Failed to send emergency alert")
		}
		return res, errors.Wrap(err, "commit alert")
	}
	res.Alert = &created.Alert
	progress.Done("Emergency alert sent successfully")
	return res, nil
}

func (e *Engine) raiseOffline(ctx context.Context, req RaiseRequest, key string, progress Progress) (RaiseResult, error) {
	res := RaiseResult{Mode: ModeOffline}

	// 没有短信能力时离线路径无法兜底，直接失败
	if err := e.SMS.Ready(ctx, e.SIMSlot); err != nil {
		progress.Fail("Cannot send SMS: " + err.Error())
		return res, err
	}

	progress.Update("Saving emergency data offline...")
	queueKey, err := e.Queue.Enqueue(outbox.Record{
		BuildingID:  req.BuildingID,
		SenderID:    e.Actor.UserID,
		SenderName:  e.Actor.Name,
		Description:    req.Description,
		Media:          req.Media,
		IdempotencyKey: key,
	})
	if err != nil {
		progress.Fail("Failed to save emergency data offline")
		return res, err
	}
	res.QueueKey = queueKey
	if n, err := e.Queue.Len(); err == nil {
		metrics.PendingRecords.Set(float64(n))
	}
	progress.Update("Emergency data saved offline")

	numbers := e.Directory.Read().PhoneNumbers
	if len(numbers) == 0 {
		w := "No cached responder numbers, the alert will be delivered when the device reconnects."
		res.Warnings = append(res.Warnings, w)
		progress.Warn(w)
		return res, nil
	}

	progress.Update(fmt.Sprintf("Sending Emergency Alert SMS to %d responders...", len(numbers)))
	res.SMS = e.SMS.SendToAll(ctx, numbers, SMSBody(req.BuildingID), e.SIMSlot)
	if failed := res.SMS.Failed(); failed > 0 {
		w := fmt.Sprintf("%d of %d SMS could not be sent", failed, len(numbers))
		res.Warnings = append(res.Warnings, w)
		progress.Warn(w)
	}
	progress.Done("Emergency Alert SMS sent to all responders")
	return res, nil
}

// Resolve marks an alert resolved. Only responders may do this and only while online.
func (e *Engine) Resolve(ctx context.Context, id uint) (apiclient.Alert, error) {
	if !e.Actor.Role.CanResolve() {
		return apiclient.Alert{}, ErrRoleForbidden
	}
	if !e.Network.Connected() {
		return apiclient.Alert{}, ErrOffline
	}
	alert, err := e.Backend.ResolveAlert(ctx, id)
	if err != nil {
		return apiclient.Alert{}, errors.Wrapf(err, "resolve alert %d", id)
	}
	Logger.Info("[ENGINE] 警报 %d 已解除", id)
	return alert, nil
}

// mediaWarning describes failed uploads by their cause.
func mediaWarning(uploaded media.Result, total int) string {
	tooLarge := 0
	for _, err := range uploaded.Errors {
		if apiclient.IsStatus(err, http.StatusRequestEntityTooLarge) {
			tooLarge++
		}
	}
	switch tooLarge {
	case uploaded.Failures:
		return fmt.Sprintf("Failed to upload %d of %d media due to size exceed limit.", uploaded.Failures, total)
	case 0:
		return fmt.Sprintf("Failed to upload %d of %d media.", uploaded.Failures, total)
	default:
		return fmt.Sprintf("Failed to upload %d of %d media, %d due to size exceed limit.", uploaded.Failures, total, tooLarge)
	}
}

func allUnreachable(errs []error) bool {
	for _, err := range errs {
		if !errors.Is(err, apiclient.ErrUnreachable) {
			return false
		}
	}
	return len(errs) > 0
}
