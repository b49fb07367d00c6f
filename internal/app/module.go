package app

import "github.com/gin-gonic/gin"

// Module is a feature that registers its own routes: JSON endpoints on api
// (mounted at /api/v1) and HTML pages on pages (mounted at /).
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}
