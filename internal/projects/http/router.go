package http

import "github.com/gin-gonic/gin"

// Register attaches project and code generation routes to the given
// router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	projects.POST("", h.upload)
	projects.GET("", h.list)

	project := projects.Group("/:id", h.requireAccess)
	project.GET("", h.get)
	project.DELETE("", h.delete)
	project.GET("/resources", h.resources)
	project.GET("/resources/:kind/*path", h.resourceContent)
	project.PUT("/resources/:kind/*path", h.saveResource)
	project.POST("/preview/:kind/*path", h.preview)
	project.POST("/edit", h.beginEdit)
	project.POST("/gui", h.applyGui)
	project.POST("/compile", h.compile)
	project.POST("/sign", h.sign)
	project.GET("/download", h.download)
	project.GET("/builds", h.builds)
	project.GET("/stream", h.stream)

	rg.POST("/generate", h.generate)
	rg.POST("/generate/check", h.checkGeneration)
	rg.GET("/generate/:id", h.generation)
	rg.GET("/generate/:id/download", h.downloadGeneration)
}
