// Package ui serves the server-rendered generation pages.
package ui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Page describes one generation screen.
type Page struct {
	Title       string
	Heading     string
	MediaKind   string
	Endpoint    string
	Placeholder string
}

var (
	MusicPage = Page{
		Title:       "Music Generation",
		Heading:     "Turn your prompt into music.",
		MediaKind:   "audio",
		Endpoint:    "/api/music",
		Placeholder: "Piano solo in a rainy cafe",
	}
	VideoPage = Page{
		Title:       "Video Generation",
		Heading:     "Turn your prompt into a video.",
		MediaKind:   "video",
		Endpoint:    "/api/video",
		Placeholder: "Horse running on a beach at sunset",
	}
)

func Register(r gin.IRouter) {
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/music")
	})
	r.GET("/music", handler(MusicPage))
	r.GET("/video", handler(VideoPage))
}

func handler(page Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Render(http.StatusOK, render.HTML{Template: pages, Name: "generate.html", Data: page})
	}
}
