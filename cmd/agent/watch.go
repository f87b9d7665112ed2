package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rescue-alert-service/internal/agent/engine"
	"rescue-alert-service/internal/agent/netmon"
	"rescue-alert-service/internal/agent/realtime"
	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/mqtt"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serviceAction string

// program implements service.Interface for the long running monitor.
type program struct {
	rt     *agentRuntime
	cancel context.CancelFunc
	done   chan struct{}
	server *http.Server
	broker *mqtt.Client
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	p.server = &http.Server{Addr: p.rt.Settings.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if p.rt.Settings.MQTTBroker != "" {
		p.broker = mqtt.NewClient(mqtt.Options{
			BrokerURL: p.rt.Settings.MQTTBroker,
			ClientID:  "rescue-agent-" + p.rt.DeviceID,
			Username:  p.rt.Settings.MQTTUsername,
			Password:  p.rt.Settings.MQTTPassword,
			QoS:       1,
		})
	}

	go p.run(ctx)
	return nil
}

func (p *program) run(ctx context.Context) {
	defer close(p.done)
	rt := p.rt

	// 1 指标
	go func() {
		Logger.Info("[WATCH] 指标服务监听 %s", rt.Settings.MetricsAddr)
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("[WATCH] 指标服务错误: %v", err)
		}
	}()

	// 2 重新联网时刷新通讯录并同步离线队列
	rt.Monitor.OnReconnect(func() {
		go func() {
			_ = rt.Directory.Refresh(ctx)
			if _, err := rt.Syncer.Sync(ctx); err != nil {
				Logger.Warning("[WATCH] 同步未执行: %v", err)
			}
		}()
	})

	// 3 实时视图与推送通知
	view := realtime.New(rt.API)
	view.Subscribe(func(v realtime.View) { printView(rt.Actor, v) })
	if p.broker != nil {
		if err := view.Attach(p.broker, rt.Settings.ChangesTopic); err != nil {
			Logger.Error("[WATCH] 订阅变更通知失败: %v", err)
		}
		notifyTopic := fmt.Sprintf("%s/%s", rt.Settings.NotifyTopicBase, rt.Actor.UserID)
		if err := p.broker.Handle(notifyTopic, printNotification); err != nil {
			Logger.Error("[WATCH] 订阅推送通知失败: %v", err)
		}
		go func() {
			if err := p.broker.Connect(); err != nil {
				Logger.Error("[WATCH] MQTT连接失败，仅依赖轮询: %v", err)
			}
		}()

		tokens := make(chan string, 1)
		tokens <- "mqtt:" + rt.DeviceID
		go (&engine.PushRegistrar{Registrar: rt.API, Platform: "mqtt"}).Run(ctx, tokens)
		rt.Monitor.OnReconnect(func() {
			select {
			case tokens <- "mqtt:" + rt.DeviceID:
			default:
			}
		})
	}
	rt.Monitor.Subscribe(func(s netmon.State) {
		if s == netmon.Connected {
			view.Notify()
		}
	})

	// 4 网络监测，阻塞直到停止
	rt.Monitor.Run(ctx, rt.Settings.ProbeInterval)
}

func (p *program) Stop(s service.Service) error {
	Logger.Info("[WATCH] 正在停止...")
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			Logger.Warning("[WATCH] 指标服务强制关闭: %v", err)
		}
	}
	if p.broker != nil {
		p.broker.Disconnect()
	}
	if p.done != nil {
		select {
		case <-p.done:
		case <-ctx.Done():
		}
	}
	return nil
}

func printView(actor models.Actor, v realtime.View) {
	scope := "your unresolved alerts"
	if actor.Role.SeesAllAlerts() {
		scope = "unresolved alerts"
	}
	latest, ok := v.Latest()
	if !ok {
		fmt.Printf("[%s] no %s\n", v.FetchedAt.Format("15:04:05"), scope)
		return
	}
	fmt.Printf("[%s] %d %s, latest #%d building #%s by %s\n",
		v.FetchedAt.Format("15:04:05"), len(v.Alerts), scope, latest.ID, latest.BuildingID, latest.SenderName)
}

func printNotification(_ string, payload []byte) {
	var n models.PushNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		Logger.Warning("[WATCH] 无法解析推送通知: %v", err)
		return
	}
	fmt.Printf("\n*** %s ***\n%s\n\n", n.Title, n.Body)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor connectivity, sync on reconnect and follow alerts in real time",
	Long: `Runs until stopped. Probes the server, drains the offline queue on every reconnect,
keeps the responder directory fresh and prints the live alert view. Can be installed as a
system service with --service install.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcConfig := &service.Config{
			Name:        "rescue-agent",
			DisplayName: "Rescue Alert Agent",
			Description: "Syncs offline emergency alerts and follows the alert board",
			Arguments:   []string{"watch"},
		}
		if cfgFile != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--config", cfgFile)
		}

		if serviceAction != "" {
			s, err := service.New(&program{}, svcConfig)
			if err != nil {
				return err
			}
			if err := service.Control(s, serviceAction); err != nil {
				return fmt.Errorf("failed to %s service: %w", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return nil
		}

		rt, err := newRuntime(false)
		if err != nil {
			return err
		}
		s, err := service.New(&program{rt: rt}, svcConfig)
		if err != nil {
			return err
		}
		return s.Run()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
