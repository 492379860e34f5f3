package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// MongoDB
	MongoURI     string
	MongoDB      string
	MongoTimeout time.Duration

	// Backend selection
	DataBackend string

	// OpenAI
	OpenAIAPIKey string
	OpenAIModel  string

	// ElevenLabs
	ElevenLabsAPIKey string
	ElevenLabsVoice  string

	// S3 audio storage
	S3Bucket string
	S3Region string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Cloud Vision OCR
	GoogleCredentialsJSON string

	// Month resolution
	FallbackMonth string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8000"),

		MongoURI:     getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGODB_DATABASE", "consumption_db"),
		MongoTimeout: getEnvDuration("MONGODB_TIMEOUT", 10*time.Second),

		DataBackend: getEnv("DATA_BACKEND", "mongo"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoice:  getEnv("ELEVENLABS_VOICE_ID", "uyVNoMrnUku1dZyVEXwD"),

		S3Bucket: getEnv("S3_BUCKET_NAME", ""),
		S3Region: getEnv("AWS_REGION", "ap-northeast-2"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "sobi"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "speech_jobs"),

		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		FallbackMonth: getEnv("FALLBACK_MONTH", "2025-06"),
	}

	return cfg
}

var monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"mongo", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "mongo" {
		if c.MongoURI == "" {
			errors = append(errors, "MongoDB URI cannot be empty when using mongo backend")
		} else if parsedURI, err := url.Parse(c.MongoURI); err != nil {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s': %v", c.MongoURI, err))
		} else if parsedURI.Scheme != "mongodb" && parsedURI.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", parsedURI.Scheme))
		}
		if c.MongoDB == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
		}
		if c.MongoTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid MongoDB timeout %v: must be at least 1 second", c.MongoTimeout))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Speech synthesis needs both the voice provider and a bucket to land
	// the audio in; either both are configured or neither.
	hasTTS := c.ElevenLabsAPIKey != ""
	hasBucket := c.S3Bucket != ""
	if hasTTS != hasBucket {
		errors = append(errors, "ELEVENLABS_API_KEY and S3_BUCKET_NAME must be configured together")
	}
	if hasTTS && c.ElevenLabsVoice == "" {
		errors = append(errors, "ElevenLabs voice ID cannot be empty when the API key is provided")
	}

	if !monthRe.MatchString(c.FallbackMonth) {
		errors = append(errors, fmt.Sprintf("invalid fallback month '%s': must be YYYY-MM", c.FallbackMonth))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
