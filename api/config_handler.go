package api

import (
	"net/http"

	"github.com/cclenergy/solarquote/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file,omitempty"` // path to the active config file
}

// StatusResponse is returned by GET /api/v1/config/status.
type StatusResponse struct {
	Settings  []config.SettingStatus `json:"settings"`
	UploadDir config.UploadDirStatus `json:"upload_dir"`
}

// handleGetConfig returns the running configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: s.configFile,
		},
	})
}

// handleConfigStatus reports where each key setting came from and whether
// the upload directory is usable.
func (s *Server) handleConfigStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, APIResponse{
		Success: true,
		Data: StatusResponse{
			Settings:  config.Describe(s.cfg),
			UploadDir: config.CheckUploadDir(s.cfg.Upload.Dir),
		},
	})
}
