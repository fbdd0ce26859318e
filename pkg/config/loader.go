package config

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

// apiTokenPattern matches the documented Smartsheet token shape.
var apiTokenPattern = regexp.MustCompile(`^[A-Za-z0-9]{26}$`)

// Load reads .env (when present), environment variables and defaults, then
// unmarshals and validates the result. Env always wins over defaults.
func Load(dotenvPaths ...string) (*Config, error) {
	if len(dotenvPaths) == 0 {
		// Best effort: a missing .env is not an error.
		_ = godotenv.Load()
	} else {
		for _, p := range dotenvPaths {
			if err := godotenv.Load(p); err != nil {
				return nil, core.NewConfigurationError(fmt.Sprintf("cannot load env file %q: %v", p, err))
			}
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, core.WrapError(core.KindConfiguration, "loading defaults", err)
	}

	envToPath := envMappings()
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if path, ok := envToPath[key]; ok {
				return path, value
			}
			// Unmapped variables are not ours.
			return "", nil
		},
	}), nil); err != nil {
		return nil, core.WrapError(core.KindConfiguration, "loading environment", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				sensitiveStringDecodeHook,
			),
		},
	}); err != nil {
		return nil, core.WrapError(core.KindConfiguration, "unmarshaling configuration", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies struct-tag validation plus the custom rules that tags
// cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return core.NewConfigurationError("configuration is nil")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return core.WrapError(core.KindConfiguration, describeValidationError(err), err)
	}
	if !apiTokenPattern.MatchString(cfg.Smartsheet.APIToken.Value()) {
		return core.NewConfigurationError(
			"SMARTSHEET_API_TOKEN must be 26 alphanumeric characters")
	}
	parsed, err := url.Parse(cfg.Source.ProjectOnlineURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return core.NewConfigurationError(
			fmt.Sprintf("PROJECT_ONLINE_URL %q is not an absolute URL", cfg.Source.ProjectOnlineURL))
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return core.NewConfigurationError(
			fmt.Sprintf("PROJECT_ONLINE_URL scheme must be http or https, got %q", parsed.Scheme))
	}
	return nil
}

// TenantRoot returns the scheme+host of the source URL, the base for OAuth
// scopes.
func (c *Config) TenantRoot() string {
	parsed, err := url.Parse(c.Source.ProjectOnlineURL)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errorsAs(err, &verrs) || len(verrs) == 0 {
		return "invalid configuration"
	}
	first := verrs[0]
	if first.Tag() == "required" {
		return fmt.Sprintf("required setting %s is not set", envNameFor(first.StructNamespace()))
	}
	return fmt.Sprintf("setting %s failed %q validation", envNameFor(first.StructNamespace()), first.Tag())
}

func errorsAs(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}

// envNameFor resolves a validator struct namespace like
// "Config.Source.TenantID" back to its env tag.
func envNameFor(namespace string) string {
	parts := strings.Split(namespace, ".")
	t := reflect.TypeOf(Config{})
	var field reflect.StructField
	for _, part := range parts[1:] {
		f, ok := t.FieldByName(part)
		if !ok {
			return namespace
		}
		field = f
		t = f.Type
	}
	if tag := field.Tag.Get("env"); tag != "" {
		return tag
	}
	return namespace
}

// envMappings builds env-var → koanf-path mappings from struct tags.
func envMappings() map[string]string {
	mappings := make(map[string]string)
	collectMappings(reflect.TypeOf(Config{}), "", mappings)
	return mappings
}

func collectMappings(t reflect.Type, prefix string, out map[string]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		koanfTag := field.Tag.Get("koanf")
		if koanfTag == "" || koanfTag == "-" {
			continue
		}
		path := koanfTag
		if prefix != "" {
			path = prefix + "." + koanfTag
		}
		if envTag := field.Tag.Get("env"); envTag != "" && envTag != "-" {
			out[envTag] = path
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			collectMappings(field.Type, path, out)
		}
	}
}

func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(SensitiveString("")) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	default:
		return data, nil
	}
}
