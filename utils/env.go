package utils

import "github.com/spf13/viper"

// GetEnv returns the application environment.
func GetEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "development"
	}
	return env
}

// IsProduction checks if the environment is production.
func IsProduction() bool {
	return GetEnv() == "production"
}
