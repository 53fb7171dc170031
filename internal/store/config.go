package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultMasterURL = "https://margincalculator.angelbroking.com/OpenAPI_File/files/OpenAPIScripMaster.json"

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Broker struct {
		BaseURL        string `yaml:"base_url"`
		APIKeyEnv      string `yaml:"api_key_env"`
		SessionFile    string `yaml:"session_file"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"broker"`
	Instruments struct {
		DBPath    string `yaml:"db_path"`
		MasterURL string `yaml:"master_url"`
	} `yaml:"instruments"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`
	Movers struct {
		URL  string `yaml:"url"`
		TopN int    `yaml:"top_n"`
	} `yaml:"movers"`
	// Courtesy delay between consecutive per-symbol quote/history calls in
	// batch workflows. Advisory only, not a token-bucket guarantee.
	QuoteDelayMs int `yaml:"quote_delay_ms"`
}

func (c *Config) Validate() error {
	if c.LLM.Provider != "OPENAI" && c.LLM.Provider != "NOOP" {
		return fmt.Errorf("invalid llm.provider '%s': must be 'OPENAI' or 'NOOP'", c.LLM.Provider)
	}
	if c.Broker.BaseURL == "" {
		return fmt.Errorf("broker.base_url cannot be empty")
	}
	if c.Movers.TopN <= 0 || c.Movers.TopN > 25 {
		return fmt.Errorf("movers.top_n must be between 1-25, got %d", c.Movers.TopN)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = "https://apiconnect.angelone.in"
	}
	if c.Broker.APIKeyEnv == "" {
		c.Broker.APIKeyEnv = "ANGELONE_TRADING_API_KEY"
	}
	if c.Broker.SessionFile == "" {
		c.Broker.SessionFile = "angel_session.json"
	}
	if c.Broker.TimeoutSeconds == 0 {
		c.Broker.TimeoutSeconds = 30
	}
	if c.Instruments.DBPath == "" {
		c.Instruments.DBPath = "instruments.db"
	}
	if c.Instruments.MasterURL == "" {
		c.Instruments.MasterURL = defaultMasterURL
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "OPENAI"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Movers.URL == "" {
		c.Movers.URL = "https://www.moneycontrol.com/stocks/marketstats/nsegainer/index.php"
	}
	if c.Movers.TopN == 0 {
		c.Movers.TopN = 5
	}
	if c.QuoteDelayMs == 0 {
		c.QuoteDelayMs = 350
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
