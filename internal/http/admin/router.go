package admin

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"menu-service/internal/data/models"
	"menu-service/internal/images"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

type Catalogue interface {
	ListItems(ctx context.Context) []models.Item
	AddItem(ctx context.Context, fields models.ItemFields, upload *images.Upload) (models.Item, error)
	UpdateItem(ctx context.Context, id int64, patch models.ItemPatch, upload *images.Upload) error
	DeleteItem(ctx context.Context, id int64) error
}

type Sessions interface {
	Login(username, password string) (string, error)
	Logout(token string)
	Authenticated(token string) bool
}

type Options struct {
	Cookie       string
	SecureCookie bool
	SessionTTL   time.Duration
	MaxUpload    int64

	// Images, when set, is served read-only under ImagesPrefix.
	Images       afero.Fs
	ImagesPrefix string

	// Realtime, when set, is mounted at /api/items/ws.
	Realtime http.Handler
}

type handler struct {
	log       *slog.Logger
	catalogue Catalogue
	sessions  Sessions
	opts      Options
}

// NewRouter builds the gin engine serving the public menu and the admin pages.
func NewRouter(log *slog.Logger, catalogue Catalogue, sessions Sessions, opts Options) *gin.Engine {
	if opts.Cookie == "" {
		opts.Cookie = "sid"
	}
	if opts.ImagesPrefix == "" {
		opts.ImagesPrefix = "/images"
	}

	h := &handler{
		log:       log,
		catalogue: catalogue,
		sessions:  sessions,
		opts:      opts,
	}

	r := gin.New()
	r.Use(RequestLogger(log), Recovery(log))
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"price": func(it models.Item) string { return it.Price.StringFixed(2) },
	}).ParseFS(templatesFS, "templates/*.gohtml")))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	{
		api.GET("/items", h.listItems)
		if opts.Realtime != nil {
			api.GET("/items/ws", gin.WrapH(opts.Realtime))
		}
	}

	if opts.Images != nil {
		r.StaticFS(opts.ImagesPrefix, afero.NewHttpFs(afero.NewReadOnlyFs(opts.Images)))
	}

	adm := r.Group("/admin")
	{
		adm.GET("", h.page)
		adm.POST("/login", h.login)
		adm.POST("/logout", h.logout)

		protected := adm.Group("")
		protected.Use(h.RequireAdmin(), h.limitBody())
		protected.POST("/add-item", h.addItem)
		protected.POST("/edit-item", h.editItem)
		protected.POST("/delete-item", h.deleteItem)
	}

	return r
}

// RequireAdmin rejects requests without a live admin session before the body is read.
func (h *handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.authenticated(c) {
			c.String(http.StatusForbidden, "Not authorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *handler) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.opts.MaxUpload > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUpload)
		}
		c.Next()
	}
}

func (h *handler) authenticated(c *gin.Context) bool {
	token, err := c.Cookie(h.opts.Cookie)
	if err != nil || token == "" {
		return false
	}

	return h.sessions.Authenticated(token)
}
