package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	GatewayKeyID      string `mapstructure:"GATEWAY_KEY_ID"`
	GatewaySecret     string `mapstructure:"GATEWAY_SECRET"`
	MerchantName      string `mapstructure:"MERCHANT_NAME"`
	GatewayThemeColor string `mapstructure:"GATEWAY_THEME_COLOR"`

	DiscordBotToken       string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordStaffChannelID string `mapstructure:"DISCORD_STAFF_CHANNEL_ID"`

	SweepIntervalMinutes int `mapstructure:"SWEEP_INTERVAL_MINUTES"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "portal.db")
	viper.SetDefault("GOOGLE_REDIRECT_URL", "http://127.0.0.1:8080/auth/google/callback")
	viper.SetDefault("MERCHANT_NAME", "Seva Sangh")
	viper.SetDefault("GATEWAY_THEME_COLOR", "#7a1f1f")
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 60)

	viper.BindEnv("GOOGLE_CLIENT_ID")
	viper.BindEnv("GOOGLE_CLIENT_SECRET")
	viper.BindEnv("GOOGLE_REDIRECT_URL")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("GATEWAY_KEY_ID")
	viper.BindEnv("GATEWAY_SECRET")
	viper.BindEnv("MERCHANT_NAME")
	viper.BindEnv("GATEWAY_THEME_COLOR")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_STAFF_CHANNEL_ID")
	viper.BindEnv("SWEEP_INTERVAL_MINUTES")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
