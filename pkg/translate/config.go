package translate

import (
	"flag"
	"fmt"
)

type Config struct {
	MaxConcurrency         int  `yaml:"max_concurrency"`
	SkipMalformedDebugInfo bool `yaml:"skip_malformed_debug_info"`
	DecodeCacheSize        int  `yaml:"decode_cache_size" category:"advanced"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&cfg.MaxConcurrency, "translate.max-concurrency", 8, "Maximum number of methods whose debug info is built concurrently.")
	f.BoolVar(&cfg.SkipMalformedDebugInfo, "translate.skip-malformed-debug-info", true, "Drop the debug info of a method with a malformed debug_info_item instead of failing the whole run.")
	f.IntVar(&cfg.DecodeCacheSize, "translate.decode-cache-size", 1024, "Number of decoded debug_info_items kept for methods sharing the same item. 0 disables the cache.")
}

func (cfg *Config) Validate() error {
	if cfg.MaxConcurrency < 1 {
		return fmt.Errorf("invalid max-concurrency value, must be positive")
	}
	if cfg.DecodeCacheSize < 0 {
		return fmt.Errorf("invalid decode-cache-size value, must not be negative")
	}
	return nil
}
