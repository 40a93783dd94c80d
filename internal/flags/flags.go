package flags

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/spf13/viper"
)

// Flag names.
const (
	InsightEnabled       = "insight_enabled"
	DetailedExplanations = "detailed_explanations"
	DegradedMode         = "degraded_mode"
)

func defaults() map[string]bool {
	return map[string]bool{
		// Kill switches
		InsightEnabled:       true,
		DetailedExplanations: true,

		// Operational
		DegradedMode: false,
	}
}

// Flags is a feature flag store for safe rollouts and kill switches.
// Priority: runtime overrides > FF_* environment variables > defaults.
type Flags struct {
	mutex     sync.RWMutex
	defaults  map[string]bool
	overrides map[string]bool
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Flags {
	if logger == nil {
		logger = slog.Default()
	}

	f := &Flags{
		defaults:  defaults(),
		overrides: make(map[string]bool),
		logger:    logger,
	}

	// FF_INSIGHT_ENABLED=false and friends
	v := viper.New()
	v.SetEnvPrefix("ff")
	v.AutomaticEnv()
	for flag := range f.defaults {
		if v.IsSet(flag) {
			f.overrides[flag] = v.GetBool(flag)
			logger.Info("Flag overridden by environment",
				slog.String("flag", flag),
				slog.Bool("enabled", f.overrides[flag]))
		}
	}

	logger.Info("Feature flags initialized", slog.Int("flags", len(f.defaults)))
	return f
}

// IsEnabled checks whether a flag is on. Unknown flags are off.
func (f *Flags) IsEnabled(flag string) bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	if value, ok := f.overrides[flag]; ok {
		return value
	}
	return f.defaults[flag]
}

// Set applies a runtime override.
func (f *Flags) Set(flag string, enabled bool) {
	f.mutex.Lock()
	f.overrides[flag] = enabled
	f.mutex.Unlock()

	f.logger.Info("Flag set",
		slog.String("flag", flag),
		slog.Bool("enabled", enabled))
}

// All returns every flag's effective value.
func (f *Flags) All() map[string]bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	result := make(map[string]bool, len(f.defaults))
	for flag, value := range f.defaults {
		result[flag] = value
	}
	for flag, value := range f.overrides {
		result[flag] = value
	}
	return result
}

// EnableDegradedMode is the kill switch combo: reduced functionality, no
// insight calls, no detailed explanations.
func (f *Flags) EnableDegradedMode() {
	f.Set(DegradedMode, true)
	f.Set(InsightEnabled, false)
	f.Set(DetailedExplanations, false)
	f.logger.Warn("DEGRADED MODE ENABLED")
}

// Handler serves the effective flag values as JSON.
func (f *Flags) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(f.All()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
