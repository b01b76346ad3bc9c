// Package api provides the REST API server for score2mv2h
package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/james-see/score2mv2h/pkg/converter"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title score2mv2h API
// @version 1.0
// @description API for converting symbolic music (parsed MusicXML, MIDI) into MV2H text
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	r := NewRouter()
	return r.Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the gin engine with all routes registered
func NewRouter() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert/xml2mv2h", handleXMLToMV2H)
		v1.POST("/convert/midi2mv2h", handleMIDIToMV2H)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "score2mv2h",
	})
}

// listFormats godoc
// @Summary List supported input formats
// @Description Returns the input formats the converter accepts
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{string(converter.FormatMusicXML), string(converter.FormatMIDI)},
		"conversions": converter.GetSupportedFormats(),
	})
}

// handleXMLToMV2H godoc
// @Summary Convert parsed MusicXML to MV2H
// @Description Upload a parsed-MusicXML record stream and receive MV2H text
// @Tags convert
// @Accept multipart/form-data
// @Produce text/plain
// @Param file formData file true "Parsed-MusicXML record stream to convert"
// @Param msPerBeat query int false "Milliseconds per beat (default 600)"
// @Param part query bool false "Separate voices by part"
// @Param staff query bool false "Separate voices by staff"
// @Param voice query bool false "Separate voices by voice"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/xml2mv2h [post]
func handleXMLToMV2H(c *gin.Context) {
	handleConversion(c, converter.FormatMusicXML)
}

// handleMIDIToMV2H godoc
// @Summary Convert MIDI to MV2H
// @Description Upload a standard MIDI file and receive MV2H text
// @Tags convert
// @Accept multipart/form-data
// @Produce text/plain
// @Param file formData file true "MIDI file to convert"
// @Param msPerBeat query int false "Milliseconds per beat (default 500)"
// @Param anacrusis query int false "Pickup length in sub beats"
// @Param track query bool false "Separate voices by track"
// @Param channel query bool false "Separate voices by channel"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert/midi2mv2h [post]
func handleMIDIToMV2H(c *gin.Context) {
	handleConversion(c, converter.FormatMIDI)
}

func handleConversion(c *gin.Context, format converter.Format) {
	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	// Read file content
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	cfg := configFromQuery(c)

	src, err := converter.NewSource(format, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	piece, warnings, err := converter.Convert(src, cfg)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	// Generate output filename
	outputName := header.Filename
	if ext := filepath.Ext(outputName); ext != "" {
		outputName = outputName[:len(outputName)-len(ext)]
	}
	if outputName == "" {
		outputName = "converted"
	}
	outputName += ".mv2h"

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Header("X-Conversion-Warnings", strconv.Itoa(len(warnings)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(piece.String()))
}

// configFromQuery reads the conversion options shared by the convert
// endpoints.
func configFromQuery(c *gin.Context) converter.Config {
	boolQuery := func(name string) bool {
		v, _ := strconv.ParseBool(c.DefaultQuery(name, "false"))
		return v
	}
	intQuery := func(name string) int {
		v, _ := strconv.Atoi(c.DefaultQuery(name, "0"))
		return v
	}

	return converter.Config{
		MSPerBeat:         intQuery("msPerBeat"),
		AnacrusisSubBeats: intQuery("anacrusis"),
		UsePart:           boolQuery("part"),
		UseStaff:          boolQuery("staff"),
		UseVoice:          boolQuery("voice"),
		UseTrack:          boolQuery("track"),
		UseChannel:        boolQuery("channel"),
	}
}
