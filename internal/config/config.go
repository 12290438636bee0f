package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Ai         AIConfig
	Resolution ResolutionConfig
	Session    SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	RouterCachePath    string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "gemini"
	OllamaBaseURL     string
	OllamaEmbedModel  string
	LLMProvider       string
	LLMModel          string
	JinaAPIKey        string // empty disables reranking
	GeminiAPIKey      string
	CallTimeoutSec    int
}

// ResolutionConfig is the single home for every similarity threshold and
// pipeline knob. The source material carried conflicting literals (0.3, 0.35,
// 0.4 in different revisions); this set is the one the engine uses.
type ResolutionConfig struct {
	RouterTopK          int     // candidates returned per routing call
	RouterHighThreshold float64 // >= here means HIGH confidence
	RouterLowThreshold  float64 // >= here means MEDIUM, below is LOW
	RouterTieEpsilon    float64 // top-2 gap below this forces ambiguity
	TopicShiftFloor     float64 // continuity similarity below this triggers clarification

	BroadSearchK     int     // chunks fetched in the broad pass
	BroadSearchFloor float64 // permissive recall floor for broad search
	NucleusFloor     float64 // rerank score below this flags low confidence

	ExpansionWindow    int // adjacent chunks fetched on each side of the nucleus
	FullDocCharBudget  int // documents up to this size are loaded whole
	FullDocumentMode   bool
	MaxContextChars    int // synthesizer prompt budget
	MaxAnswerTokens    int
	ClarificationTurnCap int // forced resolution after this many clarification turns
}

type SessionConfig struct {
	Store      string // "memory" or "redis"
	TTLSeconds int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			RouterCachePath:    getEnv("ROUTER_CACHE_PATH", "data/router_cache.json"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			JinaAPIKey:        getEnv("JINA_API_KEY", ""),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			CallTimeoutSec:    getEnvAsInt("AI_CALL_TIMEOUT_SECONDS", 30),
		},
		Resolution: ResolutionConfig{
			RouterTopK:           getEnvAsInt("ROUTER_TOP_K", 5),
			RouterHighThreshold:  getEnvAsFloat("ROUTER_HIGH_THRESHOLD", 0.80),
			RouterLowThreshold:   getEnvAsFloat("ROUTER_LOW_THRESHOLD", 0.55),
			RouterTieEpsilon:     getEnvAsFloat("ROUTER_TIE_EPSILON", 0.03),
			TopicShiftFloor:      getEnvAsFloat("TOPIC_SHIFT_FLOOR", 0.40),
			BroadSearchK:         getEnvAsInt("BROAD_SEARCH_K", 20),
			BroadSearchFloor:     getEnvAsFloat("BROAD_SEARCH_FLOOR", 0.30),
			NucleusFloor:         getEnvAsFloat("NUCLEUS_FLOOR", 0.35),
			ExpansionWindow:      getEnvAsInt("EXPANSION_WINDOW", 2),
			FullDocCharBudget:    getEnvAsInt("FULL_DOC_CHAR_BUDGET", 12000),
			FullDocumentMode:     getEnvAsBool("FULL_DOCUMENT_MODE", true),
			MaxContextChars:      getEnvAsInt("MAX_CONTEXT_CHARS", 16000),
			MaxAnswerTokens:      getEnvAsInt("MAX_ANSWER_TOKENS", 1024),
			ClarificationTurnCap: getEnvAsInt("CLARIFICATION_TURN_CAP", 4),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", "memory"),
			TTLSeconds: getEnvAsInt("SESSION_TTL_SECONDS", 3600),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
