package core

// EngineConfig holds runtime configuration for one script engine instance.
type EngineConfig struct {
	MemoryLimitMB    int // per-engine heap limit; negative disables it
	ExecutionTimeout int // milliseconds a single render may spend in script
	MaxScriptSizeKB  int // max diagram library size accepted by the loader
}

// DefaultEngineConfig returns the limits used when the caller sets none.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MemoryLimitMB:    256,
		ExecutionTimeout: 30000,
		MaxScriptSizeKB:  8192,
	}
}

// WithDefaults fills zero fields from DefaultEngineConfig.
func (c EngineConfig) WithDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.MemoryLimitMB == 0 {
		c.MemoryLimitMB = d.MemoryLimitMB
	}
	if c.ExecutionTimeout <= 0 {
		c.ExecutionTimeout = d.ExecutionTimeout
	}
	if c.MaxScriptSizeKB <= 0 {
		c.MaxScriptSizeKB = d.MaxScriptSizeKB
	}
	return c
}
