package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/staybook/internal/bookings"
	"github.com/MarcoPoloResearchLab/staybook/internal/docstore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	userIDContextKey = "staybook_user_id"
	ownerField       = "userId"
	maxPayloadBytes  = 1 << 20
)

// Documents in these collections are visible to their owner only.
var privateCollections = map[docstore.CollectionName]struct{}{
	bookings.CollectionName: {},
}

var (
	errMissingTokenValidator = errors.New("token validator dependency required")
	errMissingDocumentStore  = errors.New("document store dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenValidator returns the subject of a valid bearer token.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

type Dependencies struct {
	Tokens    TokenValidator
	Documents *docstore.Service
	Logger    *zap.Logger
}

// NewHTTPHandler exposes the document store under /v1/collections.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Tokens == nil {
		return nil, errMissingTokenValidator
	}
	if deps.Documents == nil {
		return nil, errMissingDocumentStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		tokens:    deps.Tokens,
		documents: deps.Documents,
		logger:    logger,
	}

	protected := router.Group("/v1/collections")
	protected.Use(handler.authorizeRequest)
	protected.GET("/:collection", handler.handleList)
	protected.POST("/:collection", handler.handleCreate)
	protected.GET("/:collection/:id", handler.handleGet)
	protected.PUT("/:collection/:id", handler.handleReplace)
	protected.DELETE("/:collection/:id", handler.handleDelete)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	tokens    TokenValidator
	documents *docstore.Service
	logger    *zap.Logger
}

type createResponsePayload struct {
	Name string `json:"name"`
}

func (h *httpHandler) handleList(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}
	filter := docstore.Filter{
		Field: strings.TrimSpace(c.Query("orderBy")),
		Value: c.Query("equalTo"),
	}

	stored, err := h.documents.List(c.Request.Context(), collection, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	_, private := privateCollections[collection]
	subject := c.GetString(userIDContextKey)
	response := make(map[string]json.RawMessage, len(stored))
	for _, document := range stored {
		if private && !ownedBy(document.PayloadJSON, subject) {
			continue
		}
		response[document.DocumentID] = json.RawMessage(document.PayloadJSON)
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleGet(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}
	documentID, ok := h.documentIDParam(c)
	if !ok {
		return
	}

	document, err := h.documents.Get(c.Request.Context(), collection, documentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if _, private := privateCollections[collection]; private && !ownedBy(document.PayloadJSON, c.GetString(userIDContextKey)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner_mismatch"})
		return
	}
	c.Data(http.StatusOK, gin.MIMEJSON, []byte(document.PayloadJSON))
}

func (h *httpHandler) handleCreate(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}
	payload, ok := h.payloadBody(c)
	if !ok {
		return
	}

	document, err := h.documents.Create(c.Request.Context(), collection, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, createResponsePayload{Name: document.DocumentID})
}

func (h *httpHandler) handleReplace(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}
	documentID, ok := h.documentIDParam(c)
	if !ok {
		return
	}
	payload, ok := h.payloadBody(c)
	if !ok {
		return
	}
	if _, ok := h.existingOwned(c, collection, documentID); !ok {
		return
	}

	document, err := h.documents.Replace(c.Request.Context(), collection, documentID, payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, gin.MIMEJSON, []byte(document.PayloadJSON))
}

func (h *httpHandler) handleDelete(c *gin.Context) {
	collection, ok := h.collectionParam(c)
	if !ok {
		return
	}
	documentID, ok := h.documentIDParam(c)
	if !ok {
		return
	}

	found, ok := h.existingOwned(c, collection, documentID)
	if !ok {
		return
	}
	if !found {
		c.Data(http.StatusOK, gin.MIMEJSON, []byte("null"))
		return
	}

	if err := h.documents.Delete(c.Request.Context(), collection, documentID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, gin.MIMEJSON, []byte("null"))
}

func (h *httpHandler) collectionParam(c *gin.Context) (docstore.CollectionName, bool) {
	collection, err := docstore.NewCollectionName(c.Param("collection"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_collection"})
		return "", false
	}
	return collection, true
}

func (h *httpHandler) documentIDParam(c *gin.Context) (docstore.DocumentID, bool) {
	documentID, err := docstore.NewDocumentID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_document_id"})
		return "", false
	}
	return documentID, true
}

// payloadBody reads a JSON object whose userId must be the caller.
func (h *httpHandler) payloadBody(c *gin.Context) (docstore.Payload, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil || len(raw) > maxPayloadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return "", false
	}
	payload, err := docstore.NewPayload(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return "", false
	}
	if !ownedBy(payload.String(), c.GetString(userIDContextKey)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner_mismatch"})
		return "", false
	}
	return payload, true
}

// existingOwned loads the stored document and rejects callers other than its owner.
// A missing document is reported as found=false and passes.
func (h *httpHandler) existingOwned(c *gin.Context, collection docstore.CollectionName, documentID docstore.DocumentID) (found bool, ok bool) {
	stored, err := h.documents.Get(c.Request.Context(), collection, documentID)
	if errors.Is(err, docstore.ErrDocumentNotFound) {
		return false, true
	}
	if err != nil {
		h.respondError(c, err)
		return false, false
	}
	if !ownedBy(stored.PayloadJSON, c.GetString(userIDContextKey)) {
		h.logger.Warn("foreign document write rejected",
			zap.String("collection", collection.String()),
			zap.String("document_id", documentID.String()),
			zap.String("user_id", c.GetString(userIDContextKey)))
		c.JSON(http.StatusForbidden, gin.H{"error": "owner_mismatch"})
		return true, false
	}
	return true, true
}

// ownedBy reports whether payloadJSON carries a string userId equal to subject.
func ownedBy(payloadJSON string, subject string) bool {
	if subject == "" {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payloadJSON), &fields); err != nil {
		return false
	}
	rawOwner, present := fields[ownerField]
	if !present {
		return false
	}
	var owner string
	if err := json.Unmarshal(rawOwner, &owner); err != nil {
		return false
	}
	return owner == subject
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	body := gin.H{}
	var serviceErr *docstore.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code()
	}

	switch {
	case errors.Is(err, docstore.ErrDocumentNotFound):
		body["error"] = "document_not_found"
		c.JSON(http.StatusNotFound, body)
	case errors.Is(err, docstore.ErrInvalidPayload):
		body["error"] = "invalid_payload"
		c.JSON(http.StatusBadRequest, body)
	default:
		h.logger.Error("document store request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		body["error"] = "store_failed"
		c.JSON(http.StatusInternalServerError, body)
	}
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}
