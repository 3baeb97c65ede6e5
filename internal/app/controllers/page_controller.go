package controllers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/middleware"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} | Attendance</title>
</head>
<body data-page="{{.Page}}"{{if .UserID}} data-user="{{.UserID}}"{{end}}{{if .ID}} data-id="{{.ID}}"{{end}}>
<h1>{{.Title}}</h1>
<div id="app"></div>
</body>
</html>
`

// PageTemplate is the shell rendered for every page route. The client
// script reads data-page and calls the JSON API.
func PageTemplate() *template.Template {
	return template.Must(template.New("page").Parse(pageTemplate))
}

// PageController renders the page shells guarded by the session redirect
type PageController struct{}

// NewPageController creates a new PageController
func NewPageController() *PageController {
	return &PageController{}
}

func (c *PageController) render(page, title string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, _ := middleware.UserIDFrom(ctx)
		ctx.HTML(http.StatusOK, "page", gin.H{
			"Page":   page,
			"Title":  title,
			"UserID": userID,
			"ID":     ctx.Param("id"),
		})
	}
}

// Home is public.
func (c *PageController) Home() gin.HandlerFunc { return c.render("home", "Welcome") }

// Login and Register are only reachable without a session.
func (c *PageController) Login() gin.HandlerFunc    { return c.render("login", "Sign in") }
func (c *PageController) Register() gin.HandlerFunc { return c.render("register", "Create account") }

// Dashboard and the rest need a session.
func (c *PageController) Dashboard() gin.HandlerFunc  { return c.render("dashboard", "Dashboard") }
func (c *PageController) University() gin.HandlerFunc { return c.render("university", "University") }
func (c *PageController) Structure() gin.HandlerFunc  { return c.render("structure", "Structure") }
func (c *PageController) Section() gin.HandlerFunc    { return c.render("section", "Section") }
