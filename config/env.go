package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	RegisterID string `envconfig:"REGISTER_ID" default:"register-1"`
	HTTPPort   string `envconfig:"HTTP_PORT" default:"8080"`
	GRPCPort   string `envconfig:"GRPC_PORT" default:"50051"`
	TaxRate    string `envconfig:"TAX_RATE" default:"0.10"`

	API       APIConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Catalog   CatalogConfig
	Printer   PrinterConfig
	Report    ReportConfig
}

type APIConfig struct {
	BaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8000/api/"`
	Timeout time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
}

type RateLimitConfig struct {
	// Rate in ulule/limiter format, e.g. "10-M" or "100-H".
	Rate string `envconfig:"RATE_LIMIT" default:"120-M"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`
}

type PrinterConfig struct {
	// Type is one of "none", "usb" or "network".
	Type        string        `envconfig:"PRINTER_TYPE" default:"none"`
	DevicePath  string        `envconfig:"PRINTER_DEVICE" default:"/dev/usb/lp0"`
	Address     string        `envconfig:"PRINTER_ADDRESS" default:"192.168.1.100:9100"`
	DialTimeout time.Duration `envconfig:"PRINTER_TIMEOUT" default:"3s"`
	PaperWidth  int           `envconfig:"PRINTER_PAPER_WIDTH" default:"48"`
}

type ReportConfig struct {
	CompanyName string `envconfig:"COMPANY_NAME" default:"AnyPOS"`
}

// TaxRateDecimal returns the configured rate, falling back to 10% when the
// value cannot be parsed.
func (c Config) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil || rate.IsNegative() {
		log.Printf("Invalid TAX_RATE %q, using 0.10", c.TaxRate)
		return decimal.NewFromFloat(0.10)
	}
	return rate
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}
