// Package config loads device agent settings from a YAML file, RESCUE_* environment variables and flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Settings for one device.
type Settings struct {
	ServerURL       string
	AccessToken     string
	DataDir         string
	MQTTBroker      string
	MQTTUsername    string
	MQTTPassword    string
	ChangesTopic    string
	NotifyTopicBase string
	SIMSlot         int
	DefaultBuilding string
	SMSGatewayURL   string
	SMSGatewayToken string
	ProbeInterval   time.Duration
	MetricsAddr     string
	UploadWorkers   int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("data_dir", filepath.Join(home, ".rescue-agent"))
	v.SetDefault("changes_topic", "rescue/alerts/changes")
	v.SetDefault("notify_topic_base", "rescue/notify")
	v.SetDefault("sim_slot", -1)
	v.SetDefault("default_building", "25")
	v.SetDefault("probe_interval", "10s")
	v.SetDefault("metrics_addr", ":9102")
	v.SetDefault("upload_workers", 4)
}

// Init points v at cfgFile, or at $HOME/.rescue-agent.yaml when empty, and enables RESCUE_* env overrides.
// A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".rescue-agent")
	}

	v.SetEnvPrefix("RESCUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && os.IsNotExist(err)) {
			return nil
		}
		return errors.Wrap(err, "read agent config")
	}
	return nil
}

// Load reads Settings out of v.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		ServerURL:       strings.TrimRight(v.GetString("server_url"), "/"),
		AccessToken:     v.GetString("access_token"),
		DataDir:         v.GetString("data_dir"),
		MQTTBroker:      v.GetString("mqtt_broker"),
		MQTTUsername:    v.GetString("mqtt_username"),
		MQTTPassword:    v.GetString("mqtt_password"),
		ChangesTopic:    v.GetString("changes_topic"),
		NotifyTopicBase: v.GetString("notify_topic_base"),
		SIMSlot:         v.GetInt("sim_slot"),
		DefaultBuilding: v.GetString("default_building"),
		SMSGatewayURL:   v.GetString("sms_gateway_url"),
		SMSGatewayToken: v.GetString("sms_gateway_token"),
		ProbeInterval:   v.GetDuration("probe_interval"),
		MetricsAddr:     v.GetString("metrics_addr"),
		UploadWorkers:   v.GetInt("upload_workers"),
	}
	if s.DataDir == "" {
		return s, errors.New("data_dir must be set")
	}
	if s.ProbeInterval <= 0 {
		s.ProbeInterval = 10 * time.Second
	}
	return s, nil
}

// Save writes key=value back to the active config file, creating it when needed.
func Save(v *viper.Viper, key string, value interface{}) error {
	v.Set(key, value)
	if err := v.WriteConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v.SafeWriteConfig()
		}
		home, _ := os.UserHomeDir()
		return v.WriteConfigAs(filepath.Join(home, ".rescue-agent.yaml"))
	}
	return nil
}
