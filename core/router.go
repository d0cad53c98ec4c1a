package core

import (
	"errors"
	"fmt"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	msgUserCreated   = "Usuario cadastrado com sucesso"
	msgUserExists    = "Usuario ja cadastrado"
	msgInvalidBody   = "Dados invalidos"
	msgAuthInternal  = "Erro ao processar a solicitação"
	msgNotRegistered = "Usuário não registrado!"
	msgWrongPassword = "Senha incorreta"
	msgPostCreated   = "Blog post added successfully"
	msgPostUpdated   = "Blog post updated successfully"
	msgPostNotFound  = "Blog post not found"
	msgMissingFile   = "arquivo nao encontrado"
	msgFileTooLarge  = "arquivo muito grande"
	msgUnauthorized  = "Usuário não autorizado"
	msgInternal      = "Error processing request"
)

const (
	photoField        = "photo"
	listSecretHeader  = "secret"
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20 // text fields and part headers on top of the photo
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, authService AuthService, blog *BlogService, uploads *Uploader, status *StatusReporter) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = multipartMemory

	r.Use(CORSMiddleware(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if status != nil {
		r.GET("/status", func(c *gin.Context) {
			st := status.Collect(c.Request.Context())
			code := http.StatusOK
			if !st.Healthy() {
				code = http.StatusServiceUnavailable
			}
			c.JSON(code, st)
		})
	}

	r.POST("/register", func(c *gin.Context) {
		var req struct {
			Usuario string `json:"usuario"`
			Senha   string `json:"senha"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, msgInvalidBody)
			return
		}

		err := authService.Register(c.Request.Context(), req.Usuario, req.Senha)
		switch {
		case err == nil:
			respondMsg(c, http.StatusCreated, msgUserCreated)
		case errors.Is(err, ErrDuplicateUser):
			respondMsg(c, http.StatusBadRequest, msgUserExists)
		case errors.Is(err, ErrInvalidInput):
			respondMsg(c, http.StatusBadRequest, msgInvalidBody)
		default:
			log.Printf("register %q: %v", req.Usuario, err)
			respondMsg(c, http.StatusInternalServerError, msgAuthInternal)
		}
	})

	// Login failures are reported with 200 unless LegacyLoginStatus is off.
	loginFailureStatus := http.StatusUnauthorized
	if cfg.LegacyLoginStatus {
		loginFailureStatus = http.StatusOK
	}
	r.POST("/login", func(c *gin.Context) {
		var req struct {
			Usuario string `json:"usuario"`
			Senha   string `json:"senha"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMsg(c, http.StatusBadRequest, msgInvalidBody)
			return
		}

		token, err := authService.Login(c.Request.Context(), req.Usuario, req.Senha)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"token": token})
		case errors.Is(err, ErrNotRegistered):
			respondMsg(c, loginFailureStatus, msgNotRegistered)
		case errors.Is(err, ErrWrongPassword):
			respondMsg(c, loginFailureStatus, msgWrongPassword)
		default:
			log.Printf("login %q: %v", req.Usuario, err)
			respondMsg(c, http.StatusInternalServerError, msgAuthInternal)
		}
	})

	limitBody := uploadBodyLimit(cfg.MaxUploadBytes)

	r.POST("/blog", limitBody, func(c *gin.Context) {
		photo, closePhoto, err := formAttachment(c)
		if err != nil {
			respondBlogError(c, "read photo", err)
			return
		}
		defer closePhoto()

		_, err = blog.Create(c.Request.Context(), CreatePostInput{
			News:        c.PostForm("news"),
			FriendlyURL: c.PostForm("friendly_url"),
			NewsTitle:   c.PostForm("news_title"),
			Photo:       photo,
		})
		if err != nil {
			respondBlogError(c, "create post", err)
			return
		}
		respondMsg(c, http.StatusCreated, msgPostCreated)
	})

	r.GET("/blog", func(c *gin.Context) {
		items, err := blog.List(c.Request.Context(), c.GetHeader(listSecretHeader))
		if err != nil {
			respondBlogError(c, "list posts", err)
			return
		}
		c.JSON(http.StatusOK, items)
	})

	r.GET("/blog/:friendly_url", func(c *gin.Context) {
		post, err := blog.GetBySlug(c.Request.Context(), c.Param("friendly_url"))
		if err != nil {
			respondBlogError(c, "get post", err)
			return
		}
		c.JSON(http.StatusOK, post)
	})

	// friendly_url is taken from the path only; the route cannot rename a post.
	r.PUT("/blog/:friendly_url", limitBody, func(c *gin.Context) {
		photo, closePhoto, err := formAttachment(c)
		if err != nil {
			respondBlogError(c, "read photo", err)
			return
		}
		defer closePhoto()

		err = blog.Update(c.Request.Context(), c.Param("friendly_url"), UpdatePostInput{
			News:      c.PostForm("news"),
			NewsTitle: c.PostForm("news_title"),
			Photo:     photo,
		})
		if err != nil {
			respondBlogError(c, "update post", err)
			return
		}
		respondMsg(c, http.StatusOK, msgPostUpdated)
	})

	r.GET("/uploads/:name", func(c *gin.Context) {
		name := c.Param("name")
		rc, err := uploads.Open(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, ErrAttachmentNotFound) {
				respondMsg(c, http.StatusNotFound, msgMissingFile)
				return
			}
			log.Printf("open attachment %s: %v", name, err)
			respondMsg(c, http.StatusInternalServerError, msgInternal)
			return
		}
		defer rc.Close()

		contentType := mime.TypeByExtension(filepath.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
	})

	return r
}

// uploadBodyLimit caps the request body of write routes so an oversized upload
// fails while it is being read. maxBytes <= 0 disables the cap.
func uploadBodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
		}
		c.Next()
	}
}

// formAttachment reads the optional photo file of a multipart request.
// A missing photo is (nil, noop, nil). The returned func closes the opened file.
func formAttachment(c *gin.Context) (*Attachment, func(), error) {
	fileHeader, err := c.FormFile(photoField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, func() {}, ErrAttachmentTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, func() {}, nil
		default:
			return nil, func() {}, fmt.Errorf("read %s form file: %w", photoField, err)
		}
	}
	return attachmentFromHeader(fileHeader)
}

func attachmentFromHeader(h *multipart.FileHeader) (*Attachment, func(), error) {
	f, err := h.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s form file: %w", photoField, err)
	}
	a := &Attachment{Filename: strings.TrimSpace(h.Filename), Size: h.Size, Content: f}
	return a, func() { _ = f.Close() }, nil
}

// respondBlogError maps blog errors to the coarse status/message table; anything unknown is logged and a 500.
func respondBlogError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrMissingAttachment):
		respondMsg(c, http.StatusBadRequest, msgMissingFile)
	case errors.Is(err, ErrAttachmentTooLarge):
		respondMsg(c, http.StatusRequestEntityTooLarge, msgFileTooLarge)
	case errors.Is(err, ErrUnauthorized):
		respondMsg(c, http.StatusForbidden, msgUnauthorized)
	case errors.Is(err, ErrPostNotFound):
		respondMsg(c, http.StatusNotFound, msgPostNotFound)
	default:
		log.Printf("%s: %v", op, err)
		respondMsg(c, http.StatusInternalServerError, msgInternal)
	}
}
