package main

import (
	"context"
	"path/filepath"
	"time"

	"rescue-alert-service/internal/agent/apiclient"
	"rescue-alert-service/internal/agent/clock"
	agentcfg "rescue-alert-service/internal/agent/config"
	"rescue-alert-service/internal/agent/directory"
	"rescue-alert-service/internal/agent/engine"
	"rescue-alert-service/internal/agent/localstore"
	"rescue-alert-service/internal/agent/media"
	"rescue-alert-service/internal/agent/netmon"
	"rescue-alert-service/internal/agent/outbox"
	"rescue-alert-service/internal/agent/sms"
	"rescue-alert-service/internal/agent/syncer"
	"rescue-alert-service/internal/domain/models"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

const deviceDoc = "device.json"

// agentRuntime holds every component of one agent process.
type agentRuntime struct {
	Settings  agentcfg.Settings
	DeviceID  string
	Actor     models.Actor
	API       *apiclient.Client
	Docs      *localstore.Store
	Monitor   *netmon.Monitor
	Queue     *outbox.Store
	Directory *directory.Cache
	SMS       *sms.Dispatcher
	Syncer    *syncer.Coordinator
	Engine    *engine.Engine
}

func newRuntime(quietLogs bool) (*agentRuntime, error) {
	s, err := agentcfg.Load(v)
	if err != nil {
		return nil, err
	}
	setupLogging(s.DataDir, quietLogs)

	docs := localstore.New(s.DataDir)
	deviceID, err := loadDeviceID(docs)
	if err != nil {
		return nil, err
	}

	api := apiclient.New(apiclient.Config{BaseURL: s.ServerURL, AccessToken: s.AccessToken})
	actor, err := api.Identity()
	if err != nil {
		return nil, errors.Wrap(err, "read identity from access token")
	}

	var modem sms.Modem = sms.NoModem{}
	if s.SMSGatewayURL != "" {
		modem = sms.NewGatewayModem(s.SMSGatewayURL, s.SMSGatewayToken)
	}

	clk := clock.Real{}
	buildings, err := engine.LoadBuildings(filepath.Join(s.DataDir, "buildings.yaml"))
	if err != nil {
		Logger.Warning("[AGENT] 读取楼栋表失败: %v", err)
	}

	rt := &agentRuntime{
		Settings:  s,
		DeviceID:  deviceID,
		Actor:     actor,
		API:       api,
		Docs:      docs,
		Monitor:   netmon.New(api),
		Queue:     outbox.New(docs, clk),
		Directory: directory.New(api, docs, clk),
		SMS:       sms.NewDispatcher(modem, clk),
	}
	pipeline := media.NewPipeline(api, s.UploadWorkers)
	rt.Syncer = syncer.New(rt.Queue, pipeline, api, deviceID)
	rt.Engine = &engine.Engine{
		Actor:     actor,
		Backend:   api,
		Network:   rt.Monitor,
		Pipeline:  pipeline,
		Queue:     rt.Queue,
		Directory: rt.Directory,
		SMS:       rt.SMS,
		Buildings: buildings,
		SIMSlot:   s.SIMSlot,
		DeviceID:  deviceID,
		Clock:     clk,
	}
	return rt, nil
}

// probe refreshes the network state once, bounded by a short timeout.
func (rt *agentRuntime) probe(ctx context.Context) netmon.State {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return rt.Monitor.Check(ctx)
}

// loadDeviceID returns the persisted device id, generating one on first use.
func loadDeviceID(docs *localstore.Store) (string, error) {
	var doc struct {
		ID string `json:"id"`
	}
	err := docs.ReadJSON(deviceDoc, &doc)
	if err == nil && doc.ID != "" {
		return doc.ID, nil
	}
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return "", err
	}
	doc.ID = ulid.Make().String()
	if err := docs.WriteJSON(deviceDoc, doc); err != nil {
		return "", errors.Wrap(err, "persist device id")
	}
	Logger.Info("[AGENT] 生成设备ID: %s", doc.ID)
	return doc.ID, nil
}
