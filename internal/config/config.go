package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	RedisAddr     string
	RedisDB       int
	RedisPassword string

	Queue         string
	DoingQueue    string
	SuccessQueues []string
	ErrorQueues   []string
	MaxAttempts   int
	SleepTime     time.Duration
	BatchSize     int
	TaskTimeout   time.Duration

	APIKey      string
	Port        string
	MetricsPort string
}

func Load() Config {
	return Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Queue:         getEnv("QUEUE", "tasks"),
		DoingQueue:    getEnv("DOING_QUEUE", "tasks:doing"),
		SuccessQueues: getEnvList("SUCCESS_QUEUES", []string{"tasks:success"}),
		ErrorQueues:   getEnvList("ERROR_QUEUES", []string{"tasks:error"}),
		MaxAttempts:   getEnvInt("MAX_ATTEMPTS", 3),
		SleepTime:     getEnvDuration("SLEEP_TIME", 10*time.Second),
		BatchSize:     getEnvInt("BATCH_SIZE", 1),
		TaskTimeout:   getEnvDuration("TASK_TIMEOUT", 0),
		APIKey:        getEnv("API_KEY", ""),
		Port:          getEnv("PORT", "8080"),
		MetricsPort:   getEnv("METRICS_PORT", "8082"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, err := fmt.Sscanf(v, "%d", &n)
		if err == nil {
			return n
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("30s", "1m") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	var secs int
	if _, err := fmt.Sscanf(v, "%d", &secs); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
