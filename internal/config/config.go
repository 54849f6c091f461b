package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/syntra/backend/internal/model/billing"
	"github.com/zhouzirui/syntra/backend/internal/model/chat"
	"github.com/zhouzirui/syntra/backend/internal/model/persona"
)

// AI_PROVIDER 可选的供应商名称。
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Storage StorageConfig
	Billing BillingConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	billingCfg, err := loadBillingConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Storage: StorageConfig{SessionDBPath: strings.TrimSpace(os.Getenv("SESSION_DB_PATH"))},
		Billing: billingCfg,
		Log:     logCfg,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider  string
	PersonaID string

	// Gemini
	GeminiAPIKey string

	// Ark
	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkBaseURL   string
	ArkRegion    string

	// OpenAI 兼容接口
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenRouterReferrer string
	OpenRouterTitle    string

	FlashModel string
	ProModel   string

	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	// ThinkingBudget 仅作用于高级档位。
	ThinkingBudget int
	// StreamIdleTimeout 为流式回复的空闲超时，超时则本轮失败；0 表示不限制。
	StreamIdleTimeout time.Duration
}

// Enabled 表示所选供应商的必需凭证是否齐全。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderArk:
		return c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != "")
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	default:
		return false
	}
}

// ModelFor 返回指定档位配置的模型名称。
func (c AIConfig) ModelFor(tier chat.Tier) string {
	if tier == chat.TierPro {
		return c.ProModel
	}
	return c.FlashModel
}

// NewArkChatModel 使用配置为指定模型创建 Ark 模型实例。
func (c AIConfig) NewArkChatModel(ctx context.Context, modelName string) (model.ChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY or ARK_ACCESS_KEY + ARK_SECRET_KEY")
	}
	if modelName == "" {
		return nil, fmt.Errorf("ark model name is required")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini))
	switch provider {
	case ProviderGemini, ProviderArk, ProviderOpenAI:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		defaultTemperature := 0.7
		temperature = &defaultTemperature
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	thinkingBudget := 2048
	if override, err := parseOptionalIntEnv("AI_THINKING_BUDGET"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		thinkingBudget = *override
	}

	idleTimeout, err := parseDurationEnv("AI_STREAM_IDLE_TIMEOUT", 0)
	if err != nil {
		return AIConfig{}, err
	}

	flashDefault, proDefault := defaultModels(provider)

	return AIConfig{
		Provider:           provider,
		PersonaID:          getEnvOrDefault("AI_PERSONA", persona.DefaultID),
		GeminiAPIKey:       firstEnv("GEMINI_API_KEY", "API_KEY"),
		ArkAPIKey:          strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:       strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:       strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkBaseURL:         getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:          getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:      strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		OpenRouterReferrer: strings.TrimSpace(os.Getenv("OPENROUTER_REFERRER")),
		OpenRouterTitle:    strings.TrimSpace(os.Getenv("OPENROUTER_TITLE")),
		FlashModel:         getEnvOrDefault("AI_FLASH_MODEL", flashDefault),
		ProModel:           getEnvOrDefault("AI_PRO_MODEL", proDefault),
		Temperature:        temperature,
		TopP:               topP,
		MaxTokens:          maxTokens,
		ThinkingBudget:     thinkingBudget,
		StreamIdleTimeout:  idleTimeout,
	}, nil
}

func defaultModels(provider string) (flash, pro string) {
	switch provider {
	case ProviderGemini:
		return "gemini-2.5-flash", "gemini-3-pro-preview"
	case ProviderOpenAI:
		return "gpt-4o-mini", "gpt-4o"
	default:
		// Ark 需要显式的推理接入点 ID。
		return "", ""
	}
}

// StorageConfig 描述会话持久化配置。SessionDBPath 为空时使用内存存储。
type StorageConfig struct {
	SessionDBPath string
}

// BillingConfig 描述模拟支付配置。AdminKey 为空时关闭统计接口。
type BillingConfig struct {
	Plan     billing.Plan
	AdminKey string
}

func loadBillingConfig() (BillingConfig, error) {
	plan := billing.ProPlan

	price, err := parseOptionalFloatEnv("PRO_PLAN_PRICE")
	if err != nil {
		return BillingConfig{}, err
	}
	if price != nil {
		if *price <= 0 {
			return BillingConfig{}, fmt.Errorf("invalid PRO_PLAN_PRICE value %v", *price)
		}
		plan.Price = *price
	}
	plan.Currency = getEnvOrDefault("PRO_PLAN_CURRENCY", plan.Currency)

	return BillingConfig{Plan: plan, AdminKey: strings.TrimSpace(os.Getenv("ADMIN_KEY"))}, nil
}

// LogConfig 描述日志配置。
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig() (LogConfig, error) {
	dev, err := parseBoolEnv("LOG_DEV", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:       strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Development: dev,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
