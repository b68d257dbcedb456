package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// Planning parameters.
	HorizonDays     int `mapstructure:"HORIZON_DAYS"`
	DayStartHour    int `mapstructure:"DAY_START_HOUR"`
	DayEndHour      int `mapstructure:"DAY_END_HOUR"`
	BufferMinutes   int `mapstructure:"BUFFER_MINUTES"`
	SolveBudgetMS   int `mapstructure:"SOLVE_BUDGET_MS"`
	ResolutionBonus int `mapstructure:"RESOLUTION_BONUS"`
	UrgentWaitDays  int `mapstructure:"URGENT_WAIT_DAYS"`

	// Green-corridor parameters, as percentages of total rooms.
	CorridorReservePct int `mapstructure:"CORRIDOR_RESERVE_PCT"`
	CorridorFloorPct   int `mapstructure:"CORRIDOR_FLOOR_PCT"`
	CorridorQuietHours int `mapstructure:"CORRIDOR_QUIET_HOURS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("HORIZON_DAYS", 7)
	v.SetDefault("DAY_START_HOUR", 8)
	v.SetDefault("DAY_END_HOUR", 20)
	v.SetDefault("BUFFER_MINUTES", 30)
	v.SetDefault("SOLVE_BUDGET_MS", 30000)
	v.SetDefault("RESOLUTION_BONUS", 2)
	v.SetDefault("URGENT_WAIT_DAYS", 7)
	v.SetDefault("CORRIDOR_RESERVE_PCT", 20)
	v.SetDefault("CORRIDOR_FLOOR_PCT", 15)
	v.SetDefault("CORRIDOR_QUIET_HOURS", 24)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("HORIZON_DAYS")
	v.BindEnv("DAY_START_HOUR")
	v.BindEnv("DAY_END_HOUR")
	v.BindEnv("BUFFER_MINUTES")
	v.BindEnv("SOLVE_BUDGET_MS")
	v.BindEnv("RESOLUTION_BONUS")
	v.BindEnv("URGENT_WAIT_DAYS")
	v.BindEnv("CORRIDOR_RESERVE_PCT")
	v.BindEnv("CORRIDOR_FLOOR_PCT")
	v.BindEnv("CORRIDOR_QUIET_HOURS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SolveBudget returns the solver time budget as a duration.
func (c *Config) SolveBudget() time.Duration {
	return time.Duration(c.SolveBudgetMS) * time.Millisecond
}

// Validate checks that the planning parameters form a usable operating
// window and a sane corridor partition. An inverted operating day would
// make every surgery unschedulable, so it is refused at startup instead
// of surfacing later as an empty schedule.
func (c *Config) Validate() error {
	if c.HorizonDays < 1 {
		return fmt.Errorf("HORIZON_DAYS must be at least 1, got %d", c.HorizonDays)
	}
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		return fmt.Errorf("DAY_START_HOUR must be in [0,23], got %d", c.DayStartHour)
	}
	if c.DayEndHour < 1 || c.DayEndHour > 24 {
		return fmt.Errorf("DAY_END_HOUR must be in [1,24], got %d", c.DayEndHour)
	}
	if c.DayEndHour <= c.DayStartHour {
		return fmt.Errorf("operating window is empty: DAY_START_HOUR=%d DAY_END_HOUR=%d", c.DayStartHour, c.DayEndHour)
	}
	if c.BufferMinutes < 0 {
		return fmt.Errorf("BUFFER_MINUTES must not be negative, got %d", c.BufferMinutes)
	}
	if c.SolveBudgetMS <= 0 {
		return fmt.Errorf("SOLVE_BUDGET_MS must be positive, got %d", c.SolveBudgetMS)
	}
	if c.ResolutionBonus < 0 {
		return fmt.Errorf("RESOLUTION_BONUS must not be negative, got %d", c.ResolutionBonus)
	}
	if c.UrgentWaitDays < 1 {
		return fmt.Errorf("URGENT_WAIT_DAYS must be at least 1, got %d", c.UrgentWaitDays)
	}
	if c.CorridorReservePct < 0 || c.CorridorReservePct > 100 {
		return fmt.Errorf("CORRIDOR_RESERVE_PCT must be in [0,100], got %d", c.CorridorReservePct)
	}
	if c.CorridorFloorPct < 0 || c.CorridorFloorPct > c.CorridorReservePct {
		return fmt.Errorf("CORRIDOR_FLOOR_PCT must be in [0,CORRIDOR_RESERVE_PCT], got %d", c.CorridorFloorPct)
	}
	if c.CorridorQuietHours < 1 {
		return fmt.Errorf("CORRIDOR_QUIET_HOURS must be at least 1, got %d", c.CorridorQuietHours)
	}
	return nil
}
