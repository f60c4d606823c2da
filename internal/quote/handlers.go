package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/printquote/internal/common"
	"github.com/noah-isme/printquote/internal/obs"
	"github.com/noah-isme/printquote/internal/security"
	"github.com/noah-isme/printquote/internal/storage"
)

const multipartMemory = 8 << 20

// Quoter computes quotes.
type Quoter interface {
	Quote(ctx context.Context, req OrderRequest) (QuoteResult, error)
}

// Handler exposes the quote pipeline over HTTP.
type Handler struct {
	Service       Quoter
	MaxModelBytes int64
	Logger        zerolog.Logger
	validate      *validator.Validate
}

// NewHandler constructs a quote handler.
func NewHandler(svc Quoter, maxModelBytes int64, logger zerolog.Logger) *Handler {
	if maxModelBytes <= 0 {
		maxModelBytes = storage.DefaultMaxBytes
	}
	return &Handler{Service: svc, MaxModelBytes: maxModelBytes, Logger: logger, validate: validator.New()}
}

type quoteRequest struct {
	ZipCode             string   `json:"zip_code" validate:"required,max=16"`
	FilamentType        string   `json:"filament_type" validate:"required,max=64"`
	Quantity            flexInt  `json:"quantity"`
	RushOrder           flexBool `json:"rush_order"`
	UseLocalDelivery    flexBool `json:"use_local_delivery"`
	UseUSPSConnectLocal flexBool `json:"use_usps_connect_local"`
	FileURL             string   `json:"file_url" validate:"omitempty,url,max=2048"`
	ModelKey            string   `json:"model_key" validate:"omitempty,max=1024"`
	model               []byte
}

type geometryResponse struct {
	VolumeMM3 float64 `json:"volume_mm3"`
	X         float64 `json:"x_mm"`
	Y         float64 `json:"y_mm"`
	Z         float64 `json:"z_mm"`
}

type quoteResponse struct {
	TotalCostWithTax    float64          `json:"total_cost_with_tax"`
	SalesTax            float64          `json:"sales_tax"`
	BaseCost            float64          `json:"base_cost"`
	MaterialCost        float64          `json:"material_cost"`
	FullVolumeSurcharge float64          `json:"full_volume_surcharge"`
	ShippingCost        float64          `json:"shipping_cost"`
	RushOrderSurcharge  float64          `json:"rush_order_surcharge"`
	Subtotal            float64          `json:"subtotal"`
	SizeCategory        string           `json:"size_category"`
	MaterialWeightG     float64          `json:"material_weight_g"`
	ShippingWeightKg    float64          `json:"shipping_weight_kg"`
	State               string           `json:"state"`
	TaxRate             float64          `json:"tax_rate"`
	Geometry            geometryResponse `json:"geometry"`
}

// Quote handles POST /api/quote with either a JSON or a multipart body.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "quote service not configured", nil)
		return
	}
	quoteID := uuid.NewString()
	ctx := obs.WithQuoteID(r.Context(), quoteID)
	w.Header().Set("X-Quote-ID", quoteID)

	req, err := h.decode(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, validationError(err))
		return
	}

	res, err := h.Service.Quote(ctx, req.order())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toResponse(res)})
}

func (h *Handler) decode(r *http.Request) (quoteRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		return h.decodeForm(r)
	default:
		var req quoteRequest
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			if security.IsTooLarge(err) {
				return req, err
			}
			return req, fail(ErrInvalidInput, "invalid request body", err)
		}
		return req, nil
	}
}

func (h *Handler) decodeForm(r *http.Request) (quoteRequest, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		if security.IsTooLarge(err) {
			return quoteRequest{}, err
		}
		return quoteRequest{}, fail(ErrInvalidInput, "invalid form body", err)
	}

	req := quoteRequest{
		ZipCode:      strings.TrimSpace(r.FormValue("zip_code")),
		FilamentType: strings.TrimSpace(r.FormValue("filament_type")),
		FileURL:      strings.TrimSpace(r.FormValue("file_url")),
		ModelKey:     strings.TrimSpace(r.FormValue("model_key")),
	}
	fields := map[string]string{}
	if raw, ok := formValue(r, "quantity"); ok {
		v, perr := parseInt(raw)
		if perr != nil {
			fields["quantity"] = perr.Error()
		}
		req.Quantity = flexInt{Value: v, Set: perr == nil}
	}
	for name, dst := range map[string]*flexBool{
		"rush_order":             &req.RushOrder,
		"use_local_delivery":     &req.UseLocalDelivery,
		"use_usps_connect_local": &req.UseUSPSConnectLocal,
	} {
		raw, ok := formValue(r, name)
		if !ok {
			continue
		}
		v, perr := parseBool(raw)
		if perr != nil {
			fields[name] = perr.Error()
			continue
		}
		*dst = flexBool{Value: v, Set: true}
	}
	if len(fields) > 0 {
		return req, fail(ErrInvalidInput, "invalid form fields", nil).WithDetails(fields)
	}

	if r.MultipartForm != nil {
		if file, _, ferr := r.FormFile("model_file"); ferr == nil {
			defer file.Close()
			data, rerr := io.ReadAll(io.LimitReader(file, h.MaxModelBytes+1))
			if rerr != nil {
				return req, fail(ErrInvalidInput, "could not read model_file", rerr)
			}
			if int64(len(data)) > h.MaxModelBytes {
				return req, fail(ErrInvalidInput, "model file is too large", nil).
					WithDetails(map[string]int64{"limit_bytes": h.MaxModelBytes})
			}
			req.model = data
		} else if !errors.Is(ferr, http.ErrMissingFile) {
			return req, fail(ErrInvalidInput, "invalid model_file part", ferr)
		}
	}
	return req, nil
}

func formValue(r *http.Request, name string) (string, bool) {
	if r.Form == nil {
		return "", false
	}
	values, ok := r.Form[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (q quoteRequest) order() OrderRequest {
	quantity := 1
	if q.Quantity.Set {
		quantity = q.Quantity.Value
	}
	ref := q.ModelKey
	if ref == "" {
		ref = q.FileURL
	}
	return OrderRequest{
		ZipCode:       strings.TrimSpace(q.ZipCode),
		Filament:      strings.TrimSpace(q.FilamentType),
		Quantity:      quantity,
		RushOrder:     q.RushOrder.Value,
		LocalDelivery: q.UseLocalDelivery.Value || q.UseUSPSConnectLocal.Value,
		Model:         ModelSource{Bytes: q.model, Reference: ref},
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(ErrInvalidInput, "invalid request", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe.Field())] = fmt.Sprintf("failed %s", fe.Tag())
	}
	return fail(ErrInvalidInput, "invalid request fields", err).WithDetails(fields)
}

func jsonName(field string) string {
	switch field {
	case "ZipCode":
		return "zip_code"
	case "FilamentType":
		return "filament_type"
	case "FileURL":
		return "file_url"
	case "ModelKey":
		return "model_key"
	default:
		return strings.ToLower(field)
	}
}

func toResponse(res QuoteResult) quoteResponse {
	return quoteResponse{
		TotalCostWithTax:    money(res.TotalWithTax),
		SalesTax:            money(res.SalesTax),
		BaseCost:            money(res.BaseCost),
		MaterialCost:        money(res.MaterialCost),
		FullVolumeSurcharge: money(res.FullVolumeSurcharge),
		ShippingCost:        money(res.ShippingCost),
		RushOrderSurcharge:  money(res.RushOrderSurcharge),
		Subtotal:            money(res.Subtotal),
		SizeCategory:        string(res.SizeCategory),
		MaterialWeightG:     round(res.MaterialWeightGrams, 3),
		ShippingWeightKg:    round(res.ShippingWeightKg, 4),
		State:               res.State,
		TaxRate:             res.TaxRate,
		Geometry: geometryResponse{
			VolumeMM3: round(res.Geometry.VolumeMM3, 3),
			X:         round(res.Geometry.Extents.X, 3),
			Y:         round(res.Geometry.Extents.Y, 3),
			Z:         round(res.Geometry.Extents.Z, 3),
		},
	}
}

// money rounds half away from zero to cents.
func money(v float64) float64 {
	return round(v, 2)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if security.IsTooLarge(err) {
		security.WriteTooLarge(w, h.MaxModelBytes)
		return
	}
	if appErr, ok := common.AsAppError(err); ok {
		if appErr.Code == common.CodeConfiguration {
			// never leak which catalog entry is broken
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, "pricing is temporarily unavailable", nil)
			return
		}
		common.WriteError(w, appErr)
		return
	}
	h.Logger.Error().Err(err).Msg("quote handler")
	common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
}
