package crawl

import (
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/feedpulse/feed"
)

// Unlimited is the cap value meaning "no cap". A crawl whose item cap is
// Unlimited must carry a MaxDuration.
const Unlimited = feed.Infinity

var (
	// ErrUnbounded is returned when a crawl has no item cap and no ceiling.
	ErrUnbounded = errors.New("crawl: unlimited item cap requires max_duration")
	// ErrUnknownPreset is returned alongside the standard preset when a
	// preset name is not recognised.
	ErrUnknownPreset = errors.New("crawl: unknown preset")
)

// Config is one collection request.
type Config struct {
	MaxItems          int `json:"max_items" yaml:"max_items"`
	MaxScrollAttempts int `json:"max_scroll_attempts" yaml:"max_scroll_attempts"`

	MinLikes    int `json:"min_likes" yaml:"min_likes"`
	MinComments int `json:"min_comments" yaml:"min_comments"`
	MinReposts  int `json:"min_reposts" yaml:"min_reposts"`
	MinShares   int `json:"min_shares" yaml:"min_shares"`

	// MaxDuration is a wall-clock ceiling. When it expires the crawl ends
	// normally with the posts gathered so far. Zero means no ceiling.
	MaxDuration time.Duration `json:"max_duration,omitempty" yaml:"max_duration"`
}

// Validate checks caps and minimums.
func (c Config) Validate() error {
	if c.MaxItems <= 0 {
		return fmt.Errorf("crawl: max_items must be positive, got %d", c.MaxItems)
	}
	if c.MaxScrollAttempts <= 0 {
		return fmt.Errorf("crawl: max_scroll_attempts must be positive, got %d", c.MaxScrollAttempts)
	}
	if c.MinLikes < 0 || c.MinComments < 0 || c.MinReposts < 0 || c.MinShares < 0 {
		return fmt.Errorf("crawl: minimum counts must not be negative")
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("crawl: max_duration must not be negative")
	}
	if c.MaxItems >= Unlimited && c.MaxDuration == 0 {
		return ErrUnbounded
	}
	return nil
}

// Keep reports whether rec meets every minimum.
func (c Config) Keep(rec feed.PostRecord) bool {
	return rec.LikeCount >= c.MinLikes &&
		rec.CommentCount >= c.MinComments &&
		rec.RepostCount >= c.MinReposts &&
		rec.ShareCount >= c.MinShares
}

// Preset names.
const (
	PresetQuick    = "quick"
	PresetStandard = "standard"
	PresetDeep     = "deep"
	PresetPopular  = "popular"
	PresetCustom   = "custom"
)

// DeepCeiling bounds the deep preset, whose caps are otherwise unlimited.
const DeepCeiling = 30 * time.Minute

// DefaultMaxDuration is the session ceiling applied to any configuration
// that does not carry its own MaxDuration.
const DefaultMaxDuration = 30 * time.Minute

var presets = map[string]Config{
	PresetQuick:    {MaxItems: 50, MaxScrollAttempts: 10},
	PresetStandard: {MaxItems: 100, MaxScrollAttempts: 20},
	PresetDeep:     {MaxItems: Unlimited, MaxScrollAttempts: Unlimited, MaxDuration: DeepCeiling},
	PresetPopular:  {MaxItems: 100, MaxScrollAttempts: 20, MinLikes: 10},
}

// Preset returns the named configuration. An unknown name yields the
// standard preset together with ErrUnknownPreset, so callers can warn and
// carry on. "custom" has no fixed tuple and is resolved by the caller.
func Preset(name string) (Config, error) {
	if c, ok := presets[name]; ok {
		return c, nil
	}
	return presets[PresetStandard], fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// PresetNames lists the fixed presets.
func PresetNames() []string {
	return []string{PresetQuick, PresetStandard, PresetDeep, PresetPopular}
}
