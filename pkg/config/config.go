package config

import (
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

type Config struct {
	// Port Settings
	Host        string `json:"host"`        // The public base URL of the frontend, used in emailed links.
	ServerAddr  string `json:"serverAddr"`  // The address the server endpoint binds to.
	MetricsPath string `json:"metricsPath"` // The path the prometheus handler is mounted on.

	Auth struct {
		AccessTokenSecret     string `json:"accessTokenSecret"`
		AccessTokenExpiryHour int    `json:"accessTokenExpiryHour"`
	} `json:"auth"`

	Postgres struct {
		Host     string `json:"host"`
		Port     string `json:"port"`
		DBName   string `json:"dbname"`
		User     string `json:"user"`
		Password string `json:"password"`
		SSLMode  string `json:"sslmode"`
		TimeZone string `json:"TimeZone"`
	} `json:"postgres"`

	// Blob storage for generated PDFs and uploads
	Storage struct {
		Provider string `json:"provider"` // local or s3
		Local    struct {
			RootDir string `json:"rootDir"`
		} `json:"local"`
		S3 struct {
			Endpoint  string `json:"endpoint"`
			AccessKey string `json:"accessKey"`
			SecretKey string `json:"secretKey"`
			Bucket    string `json:"bucket"`
			Region    string `json:"region"`
			UseSSL    bool   `json:"useSSL"`
		} `json:"s3"`
	} `json:"storage"`

	SMTP struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
		From     string `json:"from"`
	} `json:"smtp"`

	Notification struct {
		DefaultLocale   string `json:"defaultLocale"`
		ReminderDays    []int  `json:"reminderDays"`    // Days before the BLI-04 due date on which a reminder is sent.
		EscalationDays  int    `json:"escalationDays"`  // Days a submission may wait before the coordinator is escalated.
		DailyJobSpec    string `json:"dailyJobSpec"`    // Cron spec of the reminder scan.
		BatchSendSpec   string `json:"batchSendSpec"`   // Cron spec of the digest flush.
		SupervisorLink  string `json:"supervisorLink"`  // Frontend path template for supervisor signature links.
		DisableDelivery bool   `json:"disableDelivery"` // Skip SMTP entirely and log emails instead.
	} `json:"notification"`
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// initConfig reads ./etc/debug-config.yaml (or PTMS_DEBUG_CONFIG_PATH) in debug mode,
// and the mounted /etc/config/config.yaml otherwise.
func initConfig() *Config {
	config := &Config{}
	var configPath string
	if IsDebugMode() {
		if os.Getenv("PTMS_DEBUG_CONFIG_PATH") != "" {
			configPath = os.Getenv("PTMS_DEBUG_CONFIG_PATH")
		} else {
			configPath = "./etc/debug-config.yaml"
		}
	} else {
		configPath = "/etc/config/config.yaml"
	}
	klog.Info("config path: ", configPath)

	err := readConfig(configPath, config)
	if err != nil {
		klog.Error("init config", err)
		panic(err)
	}
	setDefaults(config)
	return config
}

func readConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return err
	}
	return nil
}

func setDefaults(c *Config) {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8088"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.Auth.AccessTokenExpiryHour == 0 {
		c.Auth.AccessTokenExpiryHour = 24
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = "local"
	}
	if c.Storage.Local.RootDir == "" {
		c.Storage.Local.RootDir = "./data/storage"
	}
	if c.Notification.DefaultLocale == "" {
		c.Notification.DefaultLocale = "id"
	}
	if len(c.Notification.ReminderDays) == 0 {
		c.Notification.ReminderDays = []int{14, 7, 3, 1}
	}
	if c.Notification.EscalationDays == 0 {
		c.Notification.EscalationDays = 7
	}
	if c.Notification.DailyJobSpec == "" {
		c.Notification.DailyJobSpec = "0 7 * * *"
	}
	if c.Notification.BatchSendSpec == "" {
		c.Notification.BatchSendSpec = "*/5 * * * *"
	}
	if c.Notification.SupervisorLink == "" {
		c.Notification.SupervisorLink = "/supervisor/sign/%s"
	}
}
