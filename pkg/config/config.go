package config

import "os"

type Config struct {
	Port            string
	Env             string
	LogLevel        string
	PostgresConnStr string

	// Check-in (OIDC provider and group/role directory)
	CheckinServer   string
	CheckinUsername string
	CheckinPassword string

	// IMS access control
	Vo    string // users must be members of this VO
	Group string // VO group the IMS processes live under
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		PostgresConnStr: getEnv("POSTGRES_CONN_STR", ""),
		CheckinServer:   getEnv("CHECKIN_SERVER", "https://aai.egi.eu/auth/realms/egi"),
		CheckinUsername: getEnv("CHECKIN_USERNAME", ""),
		CheckinPassword: getEnv("CHECKIN_PASSWORD", ""),
		Vo:              getEnv("IMS_VO", "vo.tools.egi.eu"),
		Group:           getEnv("IMS_GROUP", "IMS"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
