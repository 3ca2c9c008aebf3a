package resilience

import "time"

// Hooks are optional observer callbacks invoked on state transitions.
// They run outside the breaker's critical section; panics are swallowed.
type Hooks struct {
	OnOpen     func(name string, cause error)
	OnClose    func(name string)
	OnHalfOpen func(name string)
}

type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
	CallTimeout      time.Duration
	Hooks            Hooks
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 2,
		CallTimeout:      30 * time.Second,
	}
}

func NormalizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = defaults.RecoveryTimeout
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = defaults.SuccessThreshold
	}
	if cfg.CallTimeout < 0 {
		cfg.CallTimeout = defaults.CallTimeout
	}
	return cfg
}
