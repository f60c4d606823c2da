package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/printquote/internal/common"
	"github.com/noah-isme/printquote/internal/obs"
)

// KeyPrefix is where browser uploads land in the model bucket.
const KeyPrefix = "models/"

// Presigner issues upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PresignHandler serves presigned upload URLs for model files.
type PresignHandler struct {
	Presigner Presigner
	TTL       time.Duration
	Logger    zerolog.Logger
	validate  *validator.Validate
}

// NewPresignHandler constructs a presign handler.
func NewPresignHandler(p Presigner, ttl time.Duration, logger zerolog.Logger) *PresignHandler {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PresignHandler{Presigner: p, TTL: ttl, Logger: logger, validate: validator.New()}
}

type presignRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
}

type presignResponse struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// Presign handles POST /api/generate-presigned-url.
func (h *PresignHandler) Presign(w http.ResponseWriter, r *http.Request) {
	if h.Presigner == nil {
		obs.ObservePresign("disabled")
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUpstreamUnavailable, "model uploads are not configured", nil)
		return
	}
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		obs.ObservePresign("invalid")
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid request body", nil)
		return
	}
	req.FileName = strings.TrimSpace(req.FileName)
	if err := h.validate.Struct(req); err != nil {
		obs.ObservePresign("invalid")
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "file_name is required", map[string]string{"file_name": err.Error()})
		return
	}

	key := ObjectKey(uuid.NewString(), req.FileName)
	url, err := h.Presigner.PresignPut(r.Context(), key, h.TTL)
	if err != nil {
		obs.ObservePresign("error")
		h.Logger.Error().Err(err).Str("key", key).Msg("presign upload url")
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUpstreamUnavailable, "could not create upload url", nil)
		return
	}
	obs.ObservePresign("ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": presignResponse{
		URL:       url,
		Key:       key,
		ExpiresIn: int(h.TTL / time.Second),
	}})
}

// ObjectKey builds the bucket key for an upload.
func ObjectKey(id, fileName string) string {
	return fmt.Sprintf("%s%s-%s", KeyPrefix, id, SanitizeFileName(fileName))
}

// SanitizeFileName strips directories and replaces anything outside [A-Za-z0-9._-].
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "model.stl"
	}
	return out
}
