// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api exposes the CRUD pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/dams-relsync/pkg/constants"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/crud"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/document"
	"github.com/united-manufacturing-hub/dams-relsync/pkg/persistence"
)

// DocumentService is the CRUD pipeline behind the HTTP routes.
type DocumentService interface {
	CreateDocument(ctx context.Context, collection string, doc *document.Document, actor string, opts document.HookOptions) (*document.Document, error)
	GetDocument(ctx context.Context, collection, id string) (*document.Document, error)
	ReplaceDocument(ctx context.Context, collection, id string, doc *document.Document, actor string, opts document.HookOptions) (*document.Document, error)
	PatchDocument(ctx context.Context, collection, id string, partial *document.Document, actor string, opts document.HookOptions) (*document.Document, error)
	DeleteDocument(ctx context.Context, collection, id string, opts document.HookOptions) error
}

type Options struct {
	// DryRunHeader is a request header that enables dry run like ?dry_run=true.
	DryRunHeader string
	// ActorHeader names the editor recorded in the audit fields.
	ActorHeader string
}

type handler struct {
	service DocumentService
	opts    Options
	logger  *zap.Logger
}

type documentURI struct {
	Collection string `uri:"collection" binding:"required"`
	ID         string `uri:"id"`
}

// NewRouter builds the gin engine serving the document routes.
func NewRouter(service DocumentService, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "online")
	})

	h := &handler{service: service, opts: opts, logger: logger}

	router.POST("/:collection", h.create)
	router.GET("/:collection/:id", h.get)
	router.PUT("/:collection/:id", h.replace)
	router.PATCH("/:collection/:id", h.patch)
	router.DELETE("/:collection/:id", h.delete)

	return router
}

// NewServer wraps router in an http.Server listening on addr.
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *handler) create(c *gin.Context) {
	var uri documentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.fail(c, errors.Join(crud.ErrInvalidDocument, err))

		return
	}

	doc, ok := h.bindDocument(c)
	if !ok {
		return
	}

	created, err := h.service.CreateDocument(c.Request.Context(), uri.Collection, doc, h.actor(c), h.hookOptions(c))
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *handler) get(c *gin.Context) {
	var uri documentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.fail(c, errors.Join(crud.ErrInvalidDocument, err))

		return
	}

	doc, err := h.service.GetDocument(c.Request.Context(), uri.Collection, uri.ID)
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *handler) replace(c *gin.Context) {
	var uri documentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.fail(c, errors.Join(crud.ErrInvalidDocument, err))

		return
	}

	doc, ok := h.bindDocument(c)
	if !ok {
		return
	}

	updated, err := h.service.ReplaceDocument(c.Request.Context(), uri.Collection, uri.ID, doc, h.actor(c), h.hookOptions(c))
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *handler) patch(c *gin.Context) {
	var uri documentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.fail(c, errors.Join(crud.ErrInvalidDocument, err))

		return
	}

	partial, ok := h.bindDocument(c)
	if !ok {
		return
	}

	updated, err := h.service.PatchDocument(c.Request.Context(), uri.Collection, uri.ID, partial, h.actor(c), h.hookOptions(c))
	if err != nil {
		h.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *handler) delete(c *gin.Context) {
	var uri documentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.fail(c, errors.Join(crud.ErrInvalidDocument, err))

		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), uri.Collection, uri.ID, h.hookOptions(c)); err != nil {
		h.fail(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) bindDocument(c *gin.Context) (*document.Document, bool) {
	body, err := c.GetRawData()
	if err != nil {
		h.fail(c, err)

		return nil, false
	}

	var doc document.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		h.fail(c, errors.Join(crud.ErrInvalidDocument, err))

		return nil, false
	}

	return &doc, true
}

func (h *handler) hookOptions(c *gin.Context) document.HookOptions {
	dryRun, _ := strconv.ParseBool(c.Query("dry_run"))

	if !dryRun && h.opts.DryRunHeader != "" {
		dryRun, _ = strconv.ParseBool(c.GetHeader(h.opts.DryRunHeader))
	}

	return document.HookOptions{DryRun: dryRun}
}

func (h *handler) actor(c *gin.Context) string {
	if h.opts.ActorHeader != "" {
		if actor := c.GetHeader(h.opts.ActorHeader); actor != "" {
			return actor
		}
	}

	return constants.DefaultActor
}

func (h *handler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, persistence.ErrNotFound), errors.Is(err, crud.ErrUnknownCollection):
		return http.StatusNotFound
	case errors.Is(err, persistence.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, crud.ErrInvalidDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
