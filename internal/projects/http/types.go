package http

import (
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/service"
)

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc            *service.ProjectService
	uploadDir      string
	maxUploadBytes int64
}

func New(svc *service.ProjectService, uploadDir string, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 100 << 20
	}
	return &Handler{svc: svc, uploadDir: uploadDir, maxUploadBytes: maxUploadBytes}
}

type contentReq struct {
	Content string `json:"content"`
}

type guiReq struct {
	Description string `json:"description"`
	ColorScheme string `json:"color_scheme"`
}

type generateReq struct {
	Prompt string `json:"prompt"`
}
