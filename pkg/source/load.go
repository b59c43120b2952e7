package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// File is the on-disk shape of the source configuration: a map of source
// name to Config under a top-level "sources" key.
type File struct {
	Sources map[string]Config `mapstructure:"sources"`
}

// Load reads source configurations from a YAML file, with environment
// variable overrides (COLETOR_SOURCES_CV_VENDAS_BASE_URL etc.) and
// `${VAR}` expansion in string values so tokens never live in the file.
// Defaults are applied per source after unmarshaling.
func Load(path string) (map[string]Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("coletor")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand ${ENV_VAR} references in string values (auth tokens, emails).
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	configs := make(map[string]Config, len(file.Sources))
	for name, cfg := range file.Sources {
		if cfg.Name == "" {
			cfg.Name = name
		}
		cfg = cfg.withDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating source %s: %w", name, err)
		}
		configs[name] = cfg
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("config %s defines no sources", path)
	}

	return configs, nil
}

// Defaults returns the built-in configurations for the six known sources.
// URLs and rate limits mirror the production pipeline; auth headers are
// resolved from the environment at load time.
func Defaults() map[string]Config {
	cv := func(name, path string, pageSize, safetyCap int) Config {
		return Config{
			Name:    name,
			BaseURL: "https://prestarc.cvcrm.com.br/api/v1/cvdw/" + path,
			Headers: map[string]string{
				"accept": "application/json",
				"email":  os.Getenv("CV_EMAIL"),
				"token":  os.Getenv("CV_TOKEN"),
			},
			RateLimitPerMin: 20,
			PageSize:        pageSize,
			SafetyCap:       safetyCap,
		}.withDefaults()
	}

	configs := map[string]Config{
		"cv_vendas":   cv("cv_vendas", "vendas", 500, 200),
		"cv_leads":    cv("cv_leads", "leads", 500, 500),
		"cv_repasses": cv("cv_repasses", "repasses", 500, 200),
		"cv_repasses_workflow": cv("cv_repasses_workflow", "repasses/workflow/tempo", 500, 200),
		"vgv_empreendimentos":  cv("vgv_empreendimentos", "empreendimentos", 100, 50),
		"sienge_vendas": Config{
			Name:    "sienge_vendas",
			BaseURL: os.Getenv("SIENGE_BASE_URL") + "/sales",
			Headers: map[string]string{
				"accept":        "application/json",
				"Authorization": "Basic " + os.Getenv("SIENGE_BASIC_AUTH"),
			},
			RateLimitPerMin: 10,
			PageSize:        200,
			PageParam:       "page",
			PageSizeParam:   "limit",
			RecordsKey:      "results",
			SafetyCap:       50,
			UnderFillStops:  true,
			// The upstream bills per monitored entity per logical request
			// unit, not per HTTP call; 8 monitored empreendimentos against
			// a 40-unit daily cap.
			QuotaDailyLimit:  40,
			QuotaCostPerCall: 8,
		}.withDefaults(),
	}
	return configs
}
