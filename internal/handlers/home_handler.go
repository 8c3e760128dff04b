package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const homePage = `
        <h1 style="text-align:center;">Main Page</h1>
        <p style="text-align:center;">This is the main page of the backend use other routes to make requests</p>
        `

// Home serves the static landing fragment
func Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homePage))
}

// Health reports liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
