/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"`    // "system" | "light" | "dark"
	SaveDir        string `yaml:"save_dir"` // default output directory for rendered reports
}

// AuthorConfig prefills the author block of new drafts.
type AuthorConfig struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

type RenderConfig struct {
	// PrefetchWorkers bounds how many task images are decoded in parallel before layout.
	PrefetchWorkers int `yaml:"prefetch_workers"`
	// ImageMaxPixels caps the longest edge of embedded images; larger images are downscaled.
	ImageMaxPixels int `yaml:"image_max_pixels"`
	// PollIntervalMs is how often the UI polls a running render.
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

type ImportConfig struct {
	SolutionExt    string `yaml:"solution_ext"`
	ScreenshotsDir string `yaml:"screenshots_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Author        AuthorConfig  `yaml:"author"`
	Render        RenderConfig  `yaml:"render"`
	Import        ImportConfig  `yaml:"import"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system", SaveDir: ""},
		Render:        RenderConfig{PrefetchWorkers: 4, ImageMaxPixels: 2400, PollIntervalMs: 100},
		Import:        ImportConfig{SolutionExt: ".py", ScreenshotsDir: "Screenshots"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn  = "SKR_TELEMETRY_OPT_IN"
	EnvSaveDir         = "SKR_SAVE_DIR"
	EnvAuthorName      = "SKR_AUTHOR_NAME"
	EnvAuthorRole      = "SKR_AUTHOR_ROLE"
	EnvPrefetchWorkers = "SKR_PREFETCH_WORKERS"
	EnvImageMaxPixels  = "SKR_IMAGE_MAX_PIXELS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SKR_LOG_LEVEL"
	EnvLogFormat = "SKR_LOG_FORMAT"
	EnvLogSource = "SKR_LOG_SOURCE"
	EnvLogFile   = "SKR_LOG_FILE"
	// EnvConfigPath points Load/Save at an explicit file instead of the per-user location.
	EnvConfigPath = "SKR_CONFIG"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SkillReport")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SkillReport")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "skillreport")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "skillreport")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A malformed file is ignored rather than failing startup.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.SaveDir) != "" {
		dst.General.SaveDir = strings.TrimSpace(src.General.SaveDir)
	}
	if strings.TrimSpace(src.Author.Name) != "" {
		dst.Author.Name = strings.TrimSpace(src.Author.Name)
	}
	if strings.TrimSpace(src.Author.Role) != "" {
		dst.Author.Role = strings.TrimSpace(src.Author.Role)
	}
	if src.Render.PrefetchWorkers > 0 {
		dst.Render.PrefetchWorkers = src.Render.PrefetchWorkers
	}
	if src.Render.ImageMaxPixels > 0 {
		dst.Render.ImageMaxPixels = src.Render.ImageMaxPixels
	}
	if src.Render.PollIntervalMs > 0 {
		dst.Render.PollIntervalMs = src.Render.PollIntervalMs
	}
	if ext := strings.TrimSpace(src.Import.SolutionExt); ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		dst.Import.SolutionExt = strings.ToLower(ext)
	}
	if strings.TrimSpace(src.Import.ScreenshotsDir) != "" {
		dst.Import.ScreenshotsDir = strings.TrimSpace(src.Import.ScreenshotsDir)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSaveDir)); v != "" {
		cfg.General.SaveDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthorName)); v != "" {
		cfg.Author.Name = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthorRole)); v != "" {
		cfg.Author.Role = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefetchWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Render.PrefetchWorkers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvImageMaxPixels)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Render.ImageMaxPixels = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var name string
	switch key {
	case "general.telemetry_opt_in":
		name = EnvTelemetryOptIn
	case "general.save_dir":
		name = EnvSaveDir
	case "author.name":
		name = EnvAuthorName
	case "author.role":
		name = EnvAuthorRole
	case "render.prefetch_workers":
		name = EnvPrefetchWorkers
	case "render.image_max_pixels":
		name = EnvImageMaxPixels
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.source":
		name = EnvLogSource
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) != "" {
		return name, true
	}
	return "", false
}

// ResolveSaveDir returns the configured output directory, falling back to the working directory.
func (g GeneralConfig) ResolveSaveDir() string {
	if d := strings.TrimSpace(g.SaveDir); d != "" {
		return d
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
