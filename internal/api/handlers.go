// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-bridge/internal/bridge"
	"github.com/mtreilly/arc-bridge/internal/library"
)

const maxBodyBytes = 8 << 20

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Ping())
}

// handleCreate creates an item.
// Request: {itemType, fields?, creators?, tags?, collections?}
// Response (201): {key, itemID, version, itemType}
func (s *Server) handleCreate(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	req, err := bridge.DecodeCreateRequest(body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	resp, err := s.svc.Create(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// handleItem dispatches get, update and delete on the action field.
func (s *Server) handleItem(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	req, err := bridge.DecodeItemRequest(body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case bridge.ActionGet:
		item, err := s.svc.Get(ctx, req.Key)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	case bridge.ActionUpdate:
		resp, err := s.svc.Update(ctx, req)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	case bridge.ActionDelete:
		if err := s.svc.Delete(ctx, req.Key); err != nil {
			s.respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleSearch runs a condition search.
// Request: {conditions?, limit?, includeFullData?}
// Response (200): {total, limit, items}
func (s *Server) handleSearch(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	req, err := bridge.DecodeSearchRequest(body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	resp, err := s.svc.Search(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return nil, false
	}
	return body, true
}

// respondError maps bridge errors onto the {error, ...context} envelope.
func (s *Server) respondError(c *gin.Context, err error) {
	var verr *bridge.ValidationError
	var nf *bridge.NotFoundError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message}
		for k, v := range verr.Details {
			body[k] = v
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found", "key": nf.Key})
	case errors.Is(err, library.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
