package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/auth"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/service"
)

const ctxProject = "project"

// requireAccess loads the project and hides projects owned by someone
// else behind a 404.
func (h *Handler) requireAccess(c *gin.Context) {
	id := c.Param("id")
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		c.Abort()
		return
	}
	owner := p.Metadata[domain.MetaOwner]
	if uid := auth.Owner(c); owner != "" && uid != "" && owner != uid {
		writeError(c, domain.NotFoundError("get", id))
		c.Abort()
		return
	}
	c.Set(ctxProject, p)
	c.Next()
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	file, err := c.FormFile("apk_file")
	if err != nil || file.Filename == "" {
		badRequest(c, "no file selected")
		return
	}
	name := filepath.Base(file.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".apk") {
		badRequest(c, "please upload an APK file")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		writeError(c, fmt.Errorf("create upload dir: %w", err))
		return
	}
	dest := filepath.Join(h.uploadDir, uuid.New().String()+"_"+sanitizeName(name))
	if err := c.SaveUploadedFile(file, dest); err != nil {
		writeError(c, fmt.Errorf("save upload: %w", err))
		return
	}

	p, err := h.svc.Decompile(c.Request.Context(), service.DecompileInput{
		ArchivePath: dest,
		ProjectID:   strings.TrimSpace(c.PostForm("project_id")),
		Name:        strings.TrimSpace(c.PostForm("project_name")),
		Owner:       auth.Owner(c),
	})
	if err != nil {
		os.Remove(dest)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": projectView(p)})
}

// sanitizeName keeps letters, digits, dot, dash and underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), auth.Owner(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, p := range items {
		out = append(out, projectView(p))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": out})
}

func (h *Handler) get(c *gin.Context) {
	p := c.MustGet(ctxProject).(*domain.Project)
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": projectView(p)})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) beginEdit(c *gin.Context) {
	p, err := h.svc.BeginEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": projectView(p)})
}

func (h *Handler) compile(c *gin.Context) {
	p, err := h.svc.Compile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": projectView(p), "artifact": p.Artifact})
}

func (h *Handler) sign(c *gin.Context) {
	p, err := h.svc.Sign(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": projectView(p), "artifact": p.SignedArtifact})
}

func (h *Handler) download(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	raw := c.Query("signed")
	var (
		p   *domain.Project
		a   *domain.BuildArtifact
		err error
	)
	if raw == "" {
		// Prefer the signed archive and fall back to the compiled one.
		p, a, err = h.svc.Artifact(ctx, id, true)
		if domain.KindOf(err) == domain.KindInput {
			p, a, err = h.svc.Artifact(ctx, id, false)
		}
	} else {
		signed, perr := strconv.ParseBool(raw)
		if perr != nil {
			badRequest(c, "signed must be true or false")
			return
		}
		p, a, err = h.svc.Artifact(ctx, id, signed)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	logging.NewLogger(ctx).LogInfof("download", "serving %s for %s", a.Path, id)
	c.Header("Content-Type", "application/vnd.android.package-archive")
	c.FileAttachment(a.Path, p.Name+"_modified.apk")
}

func (h *Handler) builds(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.svc.Builds(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "builds": runs})
}

// projectView adds the reported status next to the stored state.
func projectView(p *domain.Project) gin.H {
	return gin.H{
		"id":              p.ID,
		"name":            p.Name,
		"state":           p.State,
		"status":          p.Status(),
		"metadata":        p.Metadata,
		"artifact":        p.Artifact,
		"signed_artifact": p.SignedArtifact,
		"failure":         p.Failure,
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
}
