// Package handler holds the gin handlers of the liquidaciones API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finanzas/liquidaciones/internal/domain/shared"
	"github.com/finanzas/liquidaciones/internal/infrastructure/logger"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/dto"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/middleware"
)

const msgUnexpected = "Ocurrió un error inesperado, intente de nuevo"

// BaseHandler provides the envelope helpers shared by every handler
type BaseHandler struct{}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// currentUser returns the acting user. Mutating routes require one.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	return middleware.GetUserID(c)
}

func (h *BaseHandler) write(c *gin.Context, status int, env dto.Envelope) {
	c.JSON(status, env.WithRequestID(requestID(c)))
}

// Success sends a 200 success envelope
func (h *BaseHandler) Success(c *gin.Context, datos any) {
	h.write(c, http.StatusOK, dto.Success(datos))
}

// Created sends a 201 success envelope
func (h *BaseHandler) Created(c *gin.Context, datos any) {
	h.write(c, http.StatusCreated, dto.Success(datos))
}

// SuccessMessage sends a 200 success envelope with a confirmation message
func (h *BaseHandler) SuccessMessage(c *gin.Context, datos any, mensaje string) {
	h.write(c, http.StatusOK, dto.SuccessMessage(datos, mensaje))
}

// NotFound sends a 404 info envelope
func (h *BaseHandler) NotFound(c *gin.Context, mensaje string) {
	h.write(c, http.StatusNotFound, dto.Info(mensaje))
}

// BadRequest sends a 400 fail envelope
func (h *BaseHandler) BadRequest(c *gin.Context, mensaje string) {
	h.write(c, http.StatusBadRequest, dto.Fail(dto.CodeBadRequest, mensaje))
}

// UserRequired rejects a mutating call without an acting user
func (h *BaseHandler) UserRequired(c *gin.Context) {
	h.write(c, http.StatusBadRequest,
		dto.Fail("INVALID_USER", "Se requiere el usuario que realiza la operación (X-User-ID)"))
}

// BindError answers a request whose body or query could not be bound
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if msgs := middleware.ValidationMessages(err); len(msgs) > 0 {
		h.write(c, http.StatusBadRequest, dto.Fail(dto.CodeValidation, msgs...))
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.write(c, http.StatusRequestEntityTooLarge,
			dto.Fail(dto.CodeRequestTooLarge, "La solicitud excede el tamaño máximo permitido"))
		return
	}
	h.BadRequest(c, "El cuerpo de la solicitud no es válido")
}

// HandleError translates an application error into an envelope. notFound is
// the message sent when the resource does not exist.
func (h *BaseHandler) HandleError(c *gin.Context, err error, notFound string) {
	if err == nil {
		return
	}

	var verrs shared.ValidationErrors
	if errors.As(err, &verrs) {
		h.write(c, http.StatusBadRequest, dto.Fail(dto.CodeValidation, verrs.Messages()...))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Code == dto.CodeNotFound {
			h.NotFound(c, notFound)
			return
		}
		h.write(c, dto.HTTPStatus(domainErr.Code), dto.Fail(domainErr.Code, domainErr.Message))
		return
	}

	_ = c.Error(err)
	logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
	h.write(c, http.StatusInternalServerError, dto.Error(msgUnexpected))
}

// uuidParam parses a path parameter, answering 400 when it is malformed
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "El identificador '"+name+"' no es válido")
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds a JSON body that may be absent
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}
