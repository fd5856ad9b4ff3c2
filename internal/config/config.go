package config

import "os"

// Config is the server configuration read from the environment
type Config struct {
	Port     string
	MongoURI string
	MongoDB  string
	RedisURI string

	// Optional YAML files; empty means built-in defaults.
	RegistryFile  string
	ReadinessFile string

	AI *AIConfig
}

// Load reads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		MongoURI:      getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnvOrDefault("MONGO_DB", "journey_insights"),
		RedisURI:      getEnvOrDefault("REDIS_URI", "localhost:6379"),
		RegistryFile:  os.Getenv("SURVEY_REGISTRY_FILE"),
		ReadinessFile: os.Getenv("READINESS_CONFIG_FILE"),
		AI:            DefaultAIConfig(),
	}
}
