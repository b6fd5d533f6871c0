// Package config содержит логику чтения конфигурации сервиса bizscan.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса bizscan.
// Пустой DatabaseURI включает хранение счётчика промокода в памяти процесса.
type Config struct {
	RunAddress       string `env:"RUN_ADDRESS"`
	DatabaseURI      string `env:"DATABASE_URI"`
	AnalyzerAddress  string `env:"ANALYZER_ADDRESS"`
	PaymentAddress   string `env:"PAYMENT_SYSTEM_ADDRESS"`
	PaymentKeyID     string `env:"PAYMENT_KEY_ID"`
	PaymentKeySecret string `env:"PAYMENT_KEY_SECRET"`
	CouponCode       string `env:"COUPON_CODE"`
	CouponMaxUses    int    `env:"COUPON_MAX_USES"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAnalyzerAddress := cfg.AnalyzerAddress
	envPaymentAddress := cfg.PaymentAddress
	envCouponCode := cfg.CouponCode
	envCouponMaxUses := cfg.CouponMaxUses

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (empty keeps the coupon counter in memory)")
	flag.StringVar(&cfg.AnalyzerAddress, "r", "", "analysis processor address")
	flag.StringVar(&cfg.PaymentAddress, "p", "", "payment system address")
	flag.StringVar(&cfg.CouponCode, "c", "GROWTH85", "promotional code")
	flag.IntVar(&cfg.CouponMaxUses, "m", 20, "promotional code redemption limit")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAnalyzerAddress != "" {
		cfg.AnalyzerAddress = envAnalyzerAddress
	}
	if envPaymentAddress != "" {
		cfg.PaymentAddress = envPaymentAddress
	}
	if envCouponCode != "" {
		cfg.CouponCode = envCouponCode
	}
	if envCouponMaxUses != 0 {
		cfg.CouponMaxUses = envCouponMaxUses
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.CouponMaxUses <= 0 {
		cfg.CouponMaxUses = 20
	}

	return cfg, nil
}
