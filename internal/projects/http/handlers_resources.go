package http

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/service"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/resources/patch"
)

func resourceParams(c *gin.Context) (domain.ResourceKind, string) {
	return domain.ResourceKind(c.Param("kind")), strings.TrimPrefix(c.Param("path"), "/")
}

// textContent reads "content" from a JSON body or a form field.
func textContent(c *gin.Context) (string, bool) {
	if c.ContentType() == gin.MIMEJSON {
		var req contentReq
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", false
		}
		return req.Content, true
	}
	return c.PostForm("content"), true
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) resources(c *gin.Context) {
	inv, err := h.svc.Resources(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "resources": inv})
}

func (h *Handler) resourceContent(c *gin.Context) {
	kind, rel := resourceParams(c)
	data, err := h.svc.ResourceContent(c.Request.Context(), c.Param("id"), kind, rel)
	if err != nil {
		writeError(c, err)
		return
	}
	if kind == domain.ResourceImage {
		ct := mime.TypeByExtension(path.Ext(rel))
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Data(http.StatusOK, ct, data)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "type": kind, "path": rel, "content": string(data)})
}

func (h *Handler) saveResource(c *gin.Context) {
	kind, rel := resourceParams(c)

	var content []byte
	if kind == domain.ResourceImage {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
		fh, err := c.FormFile("image_file")
		if err != nil || fh.Filename == "" {
			badRequest(c, "no image selected")
			return
		}
		if content, err = readFormFile(fh); err != nil {
			badRequest(c, "could not read uploaded image")
			return
		}
	} else {
		text, ok := textContent(c)
		if !ok {
			badRequest(c, "invalid body")
			return
		}
		content = []byte(text)
	}

	p, err := h.svc.EditResource(c.Request.Context(), c.Param("id"), kind, rel, content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": projectView(p)})
}

func (h *Handler) preview(c *gin.Context) {
	kind, rel := resourceParams(c)
	text, ok := textContent(c)
	if !ok {
		badRequest(c, "invalid body")
		return
	}
	pv, err := h.svc.Preview(c.Request.Context(), c.Param("id"), kind, rel, text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "preview": pv})
}

// applyGui accepts JSON, or a multipart form whose reference_images are
// paired by position with reference_targets.
func (h *Handler) applyGui(c *gin.Context) {
	var change service.GuiChange

	if c.ContentType() == gin.MIMEJSON {
		var req guiReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
		change.Description, change.ColorScheme = req.Description, req.ColorScheme
	} else {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
		change.Description = c.PostForm("description")
		change.ColorScheme = c.PostForm("color_scheme")
		if form, err := c.MultipartForm(); err == nil {
			targets := form.Value["reference_targets"]
			for i, fh := range form.File["reference_images"] {
				data, err := readFormFile(fh)
				if err != nil {
					badRequest(c, "could not read reference image")
					return
				}
				asset := patch.AssetHandle{Name: fh.Filename, Data: data}
				if i < len(targets) {
					asset.TargetPath = strings.TrimSpace(targets[i])
				}
				change.Assets = append(change.Assets, asset)
			}
		}
	}

	p, res, err := h.svc.ApplyGuiChanges(c.Request.Context(), c.Param("id"), change)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"project":  projectView(p),
		"applied":  res.Applied,
		"changed":  res.Changed,
		"warnings": res.Skipped,
	})
}
