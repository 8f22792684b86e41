package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	FacebookClientID      string
	FacebookClientSecret  string
	FacebookRedirectURI   string
	InstagramClientID     string
	InstagramClientSecret string
	InstagramRedirectURI  string
	TwitterClientID       string
	TwitterClientSecret   string
	TwitterRedirectURI    string
	LinkedinClientID      string
	LinkedinClientSecret  string
	LinkedinRedirectURI   string
	AIAPIKey              string
	AIAPIURL              string
	AIModel               string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	R2                    R2
	SecretKey             string
	EncryptionKey         string
	CookieName            string
}

func LoadConfig() *Config {
	return &Config{
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		FacebookClientID:      getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret:  getEnv("FACEBOOK_CLIENT_SECRET", ""),
		FacebookRedirectURI:   getEnv("FACEBOOK_REDIRECT_URI", ""),
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		InstagramRedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		TwitterClientID:       getEnv("TWITTER_CLIENT_ID", ""),
		TwitterClientSecret:   getEnv("TWITTER_CLIENT_SECRET", ""),
		TwitterRedirectURI:    getEnv("TWITTER_REDIRECT_URI", ""),
		LinkedinClientID:      getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedinClientSecret:  getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedinRedirectURI:   getEnv("LINKEDIN_REDIRECT_URI", ""),
		AIAPIKey:              getEnv("AI_API_KEY", ""),
		AIAPIURL:              getEnv("AI_API_URL", "https://api.openai.com/v1/chat/completions"),
		AIModel:               getEnv("AI_MODEL", "gpt-4o-mini"),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", "127.0.0.1:6379"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:     getEnv("SECRET_KEY", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "postpilot_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
