// File: internal/services/chat/config.go
package chat

import (
    "fmt"
    "time"
)

type Config struct {
    // Resolved at construction from whether a generator is present.
    GenerationEnabled bool

    GenerationTimeout time.Duration // Bound on one backend call
    RevealDelay       time.Duration // Pause between reveal emissions
    PersistTimeout    time.Duration // Bound on the detached bot-message save

    AutoTitle       bool // Replace placeholder titles with the first user text
    AutoTitleLength int  // Runes kept when auto-titling
}

func (c *Config) Validate() error {
    if c.GenerationTimeout <= 0 {
        return fmt.Errorf("generation_timeout must be positive")
    }
    if c.RevealDelay < 0 {
        return fmt.Errorf("reveal_delay cannot be negative")
    }
    if c.PersistTimeout <= 0 {
        return fmt.Errorf("persist_timeout must be positive")
    }
    if c.AutoTitle && c.AutoTitleLength <= 0 {
        return fmt.Errorf("auto_title_length must be positive when auto_title is on")
    }
    return nil
}

func DefaultConfig() *Config {
    return &Config{
        GenerationTimeout: 60 * time.Second,
        RevealDelay:       20 * time.Millisecond,
        PersistTimeout:    5 * time.Second,
        AutoTitle:         true,
        AutoTitleLength:   30,
    }
}
