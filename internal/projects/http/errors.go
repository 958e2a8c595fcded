package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindInput:        http.StatusBadRequest,
	domain.KindUpstream:     http.StatusBadGateway,
	domain.KindValidation:   http.StatusUnprocessableEntity,
	domain.KindResourceTree: http.StatusInternalServerError,
}

// writeError renders err as {"ok":false,"code":..,"error":..}. Only the
// user-facing reason leaves the process; causes are logged.
func writeError(c *gin.Context, err error) {
	log := logging.NewLogger(c.Request.Context())

	if errors.Is(err, domain.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "code": "busy", "error": "project is busy, try again shortly"})
		return
	}

	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.LogError("http", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": "internal", "error": "internal server error"})
		return
	}
	if status >= http.StatusInternalServerError {
		log.LogError("http", err)
	}
	c.JSON(status, gin.H{"ok": false, "code": string(kind), "error": domain.ReasonOf(err)})
}

func badRequest(c *gin.Context, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": string(domain.KindInput), "error": reason})
}
