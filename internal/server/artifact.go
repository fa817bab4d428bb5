package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kartoza/home-advisor/internal/config"
	"github.com/kartoza/home-advisor/internal/forest"
	"github.com/kartoza/home-advisor/internal/httputil"
	"github.com/kartoza/home-advisor/internal/models"
)

// handleModelStatus returns the active model artifact
func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.ModelStatusResponse{Reloads: s.models.Reloads()}

	m, err := s.models.Get()
	if err != nil {
		resp.Error = err.Error()
		httputil.RespondJSON(w, http.StatusOK, resp)
		return
	}
	info := m.Info()
	resp.Loaded = true
	resp.Model = &info

	if settings, err := config.LoadSettings(); err == nil && settings.ModelPath == info.Path {
		resp.InstalledAt = settings.InstalledAt
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// handleModelInstall validates an artifact, copies it into the data store and
// activates it
func (s *Server) handleModelInstall(w http.ResponseWriter, r *http.Request) {
	var req models.ModelInstallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		httputil.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if _, err := os.Stat(req.Path); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("file not found: %s", req.Path))
		return
	}

	// Validate before touching the data store.
	if _, err := forest.Load(req.Path); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid model artifact: %v", err))
		return
	}

	m, err := InstallArtifact(req.Path)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.models.Swap(m)

	info := m.Info()
	log.Info().Str("path", info.Path).Int("trees", info.Trees).Msg("Model artifact installed")
	httputil.RespondJSON(w, http.StatusOK, models.ModelStatusResponse{
		Loaded:  true,
		Model:   &info,
		Reloads: s.models.Reloads(),
	})
}

// InstallArtifact copies the artifact at src into the per-user data store,
// loads the copy and records it in the saved settings so later runs use it.
func InstallArtifact(src string) (*forest.Model, error) {
	storeDir, err := config.DataStoreDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine data directory: %w", err)
	}
	modelDir := filepath.Join(storeDir, "models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create directory: %w", err)
	}

	dst := filepath.Join(modelDir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return nil, fmt.Errorf("copy failed: %w", err)
	}

	m, err := forest.Load(dst)
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings()
	if err != nil {
		settings = &config.Settings{}
	}
	settings.ModelPath = dst
	settings.InstalledAt = time.Now().UTC().Format(time.RFC3339)
	if err := config.SaveSettings(settings); err != nil {
		return nil, fmt.Errorf("could not save settings: %w", err)
	}
	return m, nil
}

// copyFile writes src to a temporary file next to dst and renames it into
// place so a watcher never sees a partial artifact.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".install-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
