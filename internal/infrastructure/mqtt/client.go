package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"rescue-alert-service/internal/infrastructure/config"
	Logger "rescue-alert-service/pkg/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MessageHandler 主题消息处理函数
type MessageHandler func(topic string, payload []byte)

// Options MQTT连接参数
type Options struct {
	BrokerURL  string
	ClientID   string // 客户端ID前缀，实际ID会追加随机后缀
	Username   string
	Password   string
	QoS        byte
	TLS        bool
	MaxRetries int // Connect 的最大重试次数，默认5
}

// OptionsFromConfig 从服务端配置构造连接参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BrokerURL: cfg.MQTTBrokerURL,
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		QoS:       byte(cfg.MQTTQoS),
		TLS:       cfg.MQTTSSLEnabled,
	}
}

// Client 封装paho客户端：自动重连、断线后重新订阅、发布加锁
type Client struct {
	opts   Options
	client paho.Client

	connectedMutex sync.RWMutex
	isConnected    bool

	publishMutex sync.Mutex
	connectMutex sync.Mutex

	handlersMutex sync.RWMutex
	handlers      map[string]MessageHandler
}

// NewClient 创建MQTT客户端，不立即连接
func NewClient(opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	c := &Client{
		opts:     opts,
		handlers: make(map[string]MessageHandler),
	}
	c.client = paho.NewClient(c.clientOptions())
	return c
}

// clientOptions 设置MQTT客户端参数
func (c *Client) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.opts.BrokerURL)
	// 使用唯一的客户端ID，避免同一服务多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", c.opts.ClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
		opts.SetPassword(c.opts.Password)
	}

	if strings.HasPrefix(c.opts.BrokerURL, "ssl://") || strings.HasPrefix(c.opts.BrokerURL, "tls://") || c.opts.TLS {
		Logger.Info("[MQTT] 使用TLS连接")
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		Logger.Warning("[MQTT] 连接丢失: %v", err)
		c.setConnected(false)
	})

	// 每次（重新）连接后重新订阅，CleanSession 下broker不会保留订阅
	opts.SetOnConnectHandler(func(_ paho.Client) {
		Logger.Info("[MQTT] 成功连接到 %s", c.opts.BrokerURL)
		c.setConnected(true)
		if err := c.subscribeAll(); err != nil {
			Logger.Error("[MQTT] 订阅主题失败: %v", err)
		}
	})

	opts.SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
		Logger.Info("[MQTT] 正在尝试重连...")
	})

	return opts
}

func (c *Client) setConnected(v bool) {
	c.connectedMutex.Lock()
	c.isConnected = v
	c.connectedMutex.Unlock()
}

// IsConnected 当前是否已连接
func (c *Client) IsConnected() bool {
	c.connectedMutex.RLock()
	defer c.connectedMutex.RUnlock()
	return c.isConnected && c.client.IsConnected()
}

// Handle 注册主题处理函数；已连接时立即订阅
func (c *Client) Handle(topic string, handler MessageHandler) error {
	c.handlersMutex.Lock()
	c.handlers[topic] = handler
	c.handlersMutex.Unlock()

	if c.IsConnected() {
		return c.subscribe(topic, handler)
	}
	return nil
}

// subscribeAll 订阅所有已注册主题
func (c *Client) subscribeAll() error {
	c.handlersMutex.RLock()
	defer c.handlersMutex.RUnlock()

	for topic, handler := range c.handlers {
		if err := c.subscribe(topic, handler); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) subscribe(topic string, handler MessageHandler) error {
	token := c.client.Subscribe(topic, c.opts.QoS, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("订阅主题失败 [%s]: %v", topic, token.Error())
	}
	Logger.Info("[MQTT] 已订阅主题: %s", topic)
	return nil
}

// Connect 连接到MQTT服务器，带有指数退避重试
func (c *Client) Connect() error {
	c.connectMutex.Lock()
	defer c.connectMutex.Unlock()

	if c.IsConnected() {
		return nil
	}

	Logger.Info("[MQTT] 正在连接到 %s...", c.opts.BrokerURL)

	var err error
	for i := 0; i < c.opts.MaxRetries; i++ {
		token := c.client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			c.setConnected(true)
			return nil
		}

		err = token.Error()
		if i == c.opts.MaxRetries-1 {
			break
		}
		backoffTime := time.Duration(1<<uint(i)) * time.Second // 指数退避: 1s, 2s, 4s, 8s
		Logger.Warning("[MQTT] 连接尝试 %d/%d 失败: %v, 将在 %v 后重试", i+1, c.opts.MaxRetries, err, backoffTime)
		time.Sleep(backoffTime)
	}

	return fmt.Errorf("[MQTT] 连接失败，已尝试 %d 次: %v", c.opts.MaxRetries, err)
}

// Disconnect 断开与MQTT服务器的连接
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
}

// Publish 序列化并发布消息，QoS取自连接参数
func (c *Client) Publish(topic string, payload interface{}) error {
	if !c.IsConnected() {
		Logger.Warning("[MQTT] 客户端未连接，尝试重新连接...")
		if err := c.Connect(); err != nil {
			return fmt.Errorf("MQTT客户端未连接: %v", err)
		}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	// 加锁保护发布过程，避免并发发布冲突
	c.publishMutex.Lock()
	defer c.publishMutex.Unlock()

	token := c.client.Publish(topic, c.opts.QoS, false, jsonData)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("发布消息超时")
	}
	if token.Error() != nil {
		return fmt.Errorf("发布消息失败: %v", token.Error())
	}

	Logger.Info("[MQTT] 已发布%T类型消息到主题: %s", payload, topic)
	return nil
}
