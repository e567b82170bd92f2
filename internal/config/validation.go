package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit rps must be > 0")
	}
	if c.EmptyPageLimit <= 0 {
		return fmt.Errorf("empty page limit must be > 0")
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("dedup threshold must be in (0, 1]")
	}
	if c.EnrichWorkers <= 0 {
		return fmt.Errorf("enrich workers must be > 0")
	}
	if c.LockWaitTimeout <= 0 {
		return fmt.Errorf("lock wait timeout must be > 0")
	}
	return nil
}
