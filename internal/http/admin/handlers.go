package admin

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"menu-service/internal/data/models"
	"menu-service/internal/images"
	"menu-service/internal/sl"
	"menu-service/internal/storage"
)

const invalidCredentials = `Invalid credentials. <a href="/admin">Try again</a>`

var (
	errInvalidPrice = errors.New("invalid price")
	errInvalidID    = errors.New("invalid id")
)

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// GET /api/items
func (h *handler) listItems(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalogue.ListItems(c.Request.Context()))
}

// GET /admin
func (h *handler) page(c *gin.Context) {
	if !h.authenticated(c) {
		c.HTML(http.StatusOK, "login.gohtml", nil)
		return
	}

	c.HTML(http.StatusOK, "dashboard.gohtml", gin.H{
		"Items": h.catalogue.ListItems(c.Request.Context()),
	})
}

// POST /admin/login
func (h *handler) login(c *gin.Context) {
	const op = "admin.login"

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug("unreadable login body", slog.String("op", op), sl.Err(err))
	}

	token, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		h.log.Info("login rejected", slog.String("op", op), slog.String("remote_addr", c.ClientIP()))
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(invalidCredentials))
		return
	}

	h.setSessionCookie(c, token, int(h.opts.SessionTTL.Seconds()))
	c.Redirect(http.StatusFound, "/admin")
}

// POST /admin/logout
func (h *handler) logout(c *gin.Context) {
	if token, err := c.Cookie(h.opts.Cookie); err == nil && token != "" {
		h.sessions.Logout(token)
	}

	h.setSessionCookie(c, "", -1)
	c.Redirect(http.StatusFound, "/admin")
}

// POST /admin/add-item
func (h *handler) addItem(c *gin.Context) {
	const op = "admin.addItem"

	price, err := decimal.NewFromString(c.PostForm("price"))
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid price")
		return
	}

	fields := models.ItemFields{
		Name:        c.PostForm("name"),
		Price:       price,
		Category:    c.PostForm("category"),
		Description: c.PostForm("description"),
	}

	upload, closeUpload, err := formUpload(c)
	if err != nil {
		h.log.Warn("unreadable upload", slog.String("op", op), sl.Err(err))
		c.String(http.StatusBadRequest, "Invalid upload")
		return
	}
	defer closeUpload()

	ctx := c.Request.Context()
	if _, err := h.catalogue.AddItem(ctx, fields, upload); err != nil {
		c.String(http.StatusInternalServerError, "Could not save item")
		return
	}

	c.Redirect(http.StatusFound, "/admin")
}

// POST /admin/edit-item
func (h *handler) editItem(c *gin.Context) {
	const op = "admin.editItem"

	id, err := formID(c)
	if err != nil {
		c.String(http.StatusNotFound, "Item not found")
		return
	}

	patch, err := formPatch(c)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid price")
		return
	}

	upload, closeUpload, err := formUpload(c)
	if err != nil {
		h.log.Warn("unreadable upload", slog.String("op", op), sl.Err(err))
		c.String(http.StatusBadRequest, "Invalid upload")
		return
	}
	defer closeUpload()

	ctx := c.Request.Context()
	if err := h.catalogue.UpdateItem(ctx, id, patch, upload); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			c.String(http.StatusNotFound, "Item not found")
			return
		}
		c.String(http.StatusInternalServerError, "Could not update item")
		return
	}

	c.Redirect(http.StatusFound, "/admin")
}

// POST /admin/delete-item
func (h *handler) deleteItem(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		c.String(http.StatusNotFound, "Item not found")
		return
	}

	ctx := c.Request.Context()
	if err := h.catalogue.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			c.String(http.StatusNotFound, "Item not found")
			return
		}
		c.String(http.StatusInternalServerError, "Could not delete item")
		return
	}

	c.Redirect(http.StatusFound, "/admin")
}

func (h *handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.opts.Cookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.opts.SecureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// formID reads the item id from the id field, falling back to the older index field.
func formID(c *gin.Context) (int64, error) {
	raw, ok := c.GetPostForm("id")
	if !ok || raw == "" {
		raw = c.PostForm("index")
	}
	if raw == "" {
		return 0, errInvalidID
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}

	return id, nil
}

// formPatch sets every text field that was submitted, empty or not. Fields
// missing from the form keep their stored value, and so does a blank price.
func formPatch(c *gin.Context) (models.ItemPatch, error) {
	var patch models.ItemPatch

	if v, ok := c.GetPostForm("name"); ok {
		patch.Name = &v
	}
	if v, ok := c.GetPostForm("category"); ok {
		patch.Category = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		patch.Description = &v
	}
	if v, ok := c.GetPostForm("price"); ok && v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return models.ItemPatch{}, errInvalidPrice
		}
		patch.Price = &price
	}

	return patch, nil
}

// formUpload returns the submitted image, or nil when the request carries none.
func formUpload(c *gin.Context) (*images.Upload, func(), error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}

	return newUpload(fh, f), func() { f.Close() }, nil
}

func newUpload(fh *multipart.FileHeader, f multipart.File) *images.Upload {
	return &images.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}
}
