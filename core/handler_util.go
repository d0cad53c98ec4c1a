package core

import "github.com/gin-gonic/gin"

// respondMsg sends the {"msg": ...} payload every endpoint uses for non-data responses.
func respondMsg(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"msg": msg})
}
