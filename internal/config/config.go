package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Auth        Auth

	Backend  Backend  `envPrefix:"BACKEND_"`
	Razorpay Razorpay `envPrefix:"RAZORPAY_"`
	Purchase Purchase `envPrefix:"PURCHASE_"`
	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
}

// Backend is the payment backend that owns orders and signature verification.
type Backend struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:4000/api/v1"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Razorpay struct {
	Key              string        `env:"KEY"`
	ScriptURL        string        `env:"SCRIPT_URL" envDefault:"https://checkout.razorpay.com/v1/checkout.js"`
	ScriptLoadTries  uint          `env:"SCRIPT_LOAD_TRIES" envDefault:"3"`
	ScriptLoadDelay  time.Duration `env:"SCRIPT_LOAD_DELAY" envDefault:"200ms"`
	ScriptLoadMaxGap time.Duration `env:"SCRIPT_LOAD_MAX_DELAY" envDefault:"2s"`
	ScriptLoadLimit  time.Duration `env:"SCRIPT_LOAD_TIMEOUT" envDefault:"20s"`
	BrandName        string        `env:"BRAND_NAME" envDefault:"Course Academy"`
	ThemeColor       string        `env:"THEME_COLOR" envDefault:"#3399cc"`
}

type Purchase struct {
	DiscountRate  string        `env:"DISCOUNT_RATE" envDefault:"0.5"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	VerifyTimeout time.Duration `env:"VERIFY_TIMEOUT" envDefault:"30s"`
	AwaitTimeout  time.Duration `env:"AWAIT_TIMEOUT" envDefault:"45s"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	URL    string `env:"URL" envDefault:"catalog.db"`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"15m"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"course-purchases"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
