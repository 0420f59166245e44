package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ModelProfile is the fixed model invocation for one media kind. Callers only
// supply the prompt; everything else comes from here.
type ModelProfile struct {
	Model         string         `mapstructure:"model"`
	Input         map[string]any `mapstructure:"input"`
	FallbackModel string         `mapstructure:"fallback_model"`
	FallbackInput map[string]any `mapstructure:"fallback_input"`
}

type GenerationProfiles struct {
	Audio ModelProfile `mapstructure:"audio"`
	Video ModelProfile `mapstructure:"video"`
}

const (
	DefaultAudioModel         = "ardianfe/music-gen-fn-200e:96af46316252ddea4c6614e31861876183b59dce84bad765f38424e87919dd85"
	DefaultVideoModel         = "luma/ray-flash-2-720p"
	DefaultVideoFallbackModel = "anotherjesse/zeroscope-v2-xl:71996d331e8ede8ef7bd76eba9fae076d31792e4ddf4ad057779b443d6aea62f"
)

func DefaultGenerationProfiles() GenerationProfiles {
	return GenerationProfiles{
		Audio: ModelProfile{
			Model: DefaultAudioModel,
			Input: map[string]any{
				"top_k":                    250,
				"top_p":                    0,
				"duration":                 20,
				"temperature":              1,
				"continuation":             false,
				"output_format":            "wav",
				"continuation_start":       0,
				"multi_band_diffusion":     false,
				"normalization_strategy":   "loudness",
				"classifier_free_guidance": 3,
			},
		},
		Video: ModelProfile{
			Model:         DefaultVideoModel,
			Input:         map[string]any{},
			FallbackModel: DefaultVideoFallbackModel,
			FallbackInput: map[string]any{},
		},
	}
}

type GenerationProfilesHolder struct {
	current atomic.Value // holds GenerationProfiles
}

// NewGenerationProfilesHolder loads generation.yml and keeps it hot-reloaded.
// Without a file the built-in profiles are served.
func NewGenerationProfilesHolder(cfg Config, log *zap.Logger) (*GenerationProfilesHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.generation")

	v := viper.New()
	if path := strings.TrimSpace(cfg.Generation.ProfilesPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("generation")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/genstudio")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GENSTUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setGenerationDefaults(v)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	profiles, err := decodeGenerationProfiles(v)
	if err != nil {
		return nil, err
	}

	holder := &GenerationProfilesHolder{}
	holder.current.Store(profiles)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeGenerationProfiles(v)
			if err != nil {
				log.Warn("invalid generation profiles ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("generation profiles reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// NewStaticGenerationProfilesHolder serves fixed profiles; used by tests and tooling.
func NewStaticGenerationProfilesHolder(profiles GenerationProfiles) *GenerationProfilesHolder {
	holder := &GenerationProfilesHolder{}
	holder.current.Store(profiles)
	return holder
}

func (h *GenerationProfilesHolder) Get() GenerationProfiles {
	return h.current.Load().(GenerationProfiles)
}

func setGenerationDefaults(v *viper.Viper) {
	defaults := DefaultGenerationProfiles()
	v.SetDefault("generation.audio.model", defaults.Audio.Model)
	v.SetDefault("generation.audio.input", defaults.Audio.Input)
	v.SetDefault("generation.video.model", defaults.Video.Model)
	v.SetDefault("generation.video.input", defaults.Video.Input)
	v.SetDefault("generation.video.fallback_model", defaults.Video.FallbackModel)
	v.SetDefault("generation.video.fallback_input", defaults.Video.FallbackInput)
}

func decodeGenerationProfiles(v *viper.Viper) (GenerationProfiles, error) {
	var profiles GenerationProfiles
	if err := v.UnmarshalKey("generation", &profiles); err != nil {
		return GenerationProfiles{}, err
	}
	if err := validateGenerationProfiles(profiles); err != nil {
		return GenerationProfiles{}, err
	}
	return profiles, nil
}

func validateGenerationProfiles(p GenerationProfiles) error {
	if strings.TrimSpace(p.Audio.Model) == "" {
		return errors.New("generation.audio.model cannot be empty")
	}
	if strings.TrimSpace(p.Video.Model) == "" {
		return errors.New("generation.video.model cannot be empty")
	}
	if strings.TrimSpace(p.Audio.FallbackModel) != "" {
		return fmt.Errorf("generation.audio.fallback_model is not supported")
	}
	return nil
}
