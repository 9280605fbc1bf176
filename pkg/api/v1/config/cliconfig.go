package config

import (
	"os"
	"strings"
	"sync"
)

type CliConfig struct {
	Server    string `default:"https://nergy.se"`
	APIToken  string
	TokenFile string `default:"/etc/nergytoken"`

	// GateType overrides the gate type from the cloud config when set.
	GateType      string
	ModbusAddress string
	ModbusSlave   int `default:"1"`
	Readonly      bool

	MeterDevice    string `default:"/dev/ttyAMA0"`
	MeterModel     string
	MeterPrimaryID string

	MQTTListen string `default:":1883"`
	HTTPListen string `default:":8080"`
	DBPath     string `default:"/var/lib/hourcontroller/hourcontroller.db"`

	// TomorrowPollSpec is the cron spec used to poll for tomorrow's prices.
	TomorrowPollSpec string `default:"*/10 13-16 * * *"`

	LogLevel string `default:"info"`

	mutex sync.RWMutex
}

func (c *CliConfig) Token() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.APIToken
}

func (c *CliConfig) SetToken(t string) {
	c.mutex.Lock()
	c.APIToken = strings.TrimSpace(t)
	c.mutex.Unlock()
}

func (c *CliConfig) PersistToken() error {
	if c.TokenFile == "" {
		return nil
	}
	return os.WriteFile(c.TokenFile, []byte(c.Token()), 0600)
}

func (c *CliConfig) LoadToken() error {
	if c.TokenFile == "" || c.Token() != "" {
		return nil
	}
	if _, err := os.Stat(c.TokenFile); err == nil {
		b, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return nil // dont load empty token
		}

		c.SetToken(string(b))
	}
	return nil
}
