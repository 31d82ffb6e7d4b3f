package config

import (
	"fmt"
	"os"
	"strings"
)

// SettingSource represents where a setting's value comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one effective setting for the status command.
type SettingStatus struct {
	Name   string        `json:"name"`
	Value  string        `json:"value"`
	Source SettingSource `json:"source"`
}

// UploadDirStatus reports whether uploads can be stored.
type UploadDirStatus struct {
	Path     string `json:"path"`
	Exists   bool   `json:"exists"`
	Writable bool   `json:"writable"`
	Error    string `json:"error,omitempty"`
}

// Describe returns the settings operators most often need to check.
func Describe(cfg *Config) []SettingStatus {
	def := Defaults()
	return []SettingStatus{
		describe("Listen Address", cfg.Server.Addr(), def.Server.Addr(), "server.host", "server.port"),
		describe("Upload Directory", cfg.Upload.Dir, def.Upload.Dir, "upload.dir"),
		describe("Allowed Extensions", strings.Join(cfg.Upload.AllowedExtensions, ","), strings.Join(def.Upload.AllowedExtensions, ","), "upload.allowed_extensions"),
		describe("Company", cfg.Company.Name, def.Company.Name, "company.name"),
		describe("Chart DPI", fmt.Sprintf("%g", cfg.Chart.DPI), fmt.Sprintf("%g", def.Chart.DPI), "chart.dpi"),
		describe("Log Level", cfg.Logging.Level, def.Logging.Level, "logging.level"),
	}
}

// describe determines the source of a setting from its viper keys.
func describe(name, value, defaultValue string, keys ...string) SettingStatus {
	s := SettingStatus{Name: name, Value: value, Source: SourceDefault}
	for _, k := range keys {
		if os.Getenv(EnvVar(k)) != "" {
			s.Source = SourceEnv
			return s
		}
	}
	if value != defaultValue {
		s.Source = SourceConfig
	}
	return s
}

// EnvVar returns the environment variable that overrides a config key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// CheckUploadDir verifies that the upload directory exists and accepts files.
// It does not create the directory.
func CheckUploadDir(dir string) UploadDirStatus {
	st := UploadDirStatus{Path: dir}
	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			st.Error = err.Error()
		}
		return st
	}
	if !info.IsDir() {
		st.Error = "not a directory"
		return st
	}
	st.Exists = true

	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		st.Error = err.Error()
		return st
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	st.Writable = true
	return st
}
