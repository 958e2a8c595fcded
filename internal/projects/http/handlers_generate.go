package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/codegen"
)

const maxDesignImages = 4

func (h *Handler) generate(c *gin.Context) {
	var (
		prompt      string
		attachments []codegen.Attachment
	)

	if c.ContentType() == gin.MIMEJSON {
		var req generateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
		prompt = req.Prompt
	} else {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
		prompt = c.PostForm("function_prompt")
		if prompt == "" {
			prompt = c.PostForm("prompt")
		}
		if form, err := c.MultipartForm(); err == nil {
			for _, fh := range form.File["design_images"] {
				if len(attachments) == maxDesignImages {
					break
				}
				data, err := readFormFile(fh)
				if err != nil {
					badRequest(c, "could not read design image")
					return
				}
				attachments = append(attachments, codegen.Attachment{
					Name:     fh.Filename,
					MimeType: fh.Header.Get("Content-Type"),
					Data:     data,
				})
			}
		}
	}

	gen, err := h.svc.GenerateCode(c.Request.Context(), strings.TrimSpace(prompt), attachments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "generation": gen})
}

func (h *Handler) generation(c *gin.Context) {
	gen, err := h.svc.Generation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "generation": gen})
}

func (h *Handler) downloadGeneration(c *gin.Context) {
	gen, err := h.svc.Generation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="generated_function_`+gen.ID+`.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(gen.Code))
}

const sampleLen = 500

// checkGeneration reports whether the live generation backend answers.
func (h *Handler) checkGeneration(c *gin.Context) {
	gen, err := h.svc.CheckGeneration(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	live := gen.Source == codegen.SourceLive
	message := "generation backend is working"
	if !live {
		message = "generation backend unavailable; answering from templates"
	}
	sample := []rune(gen.Code)
	code := gen.Code
	if len(sample) > sampleLen {
		code = string(sample[:sampleLen]) + "..."
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"live":        live,
		"source":      gen.Source,
		"message":     message,
		"sample_code": code,
	})
}
