// Package quote turns an order request into an itemised price. The pipeline is
// fixed: receive, extract geometry, classify size, price, tax, respond. Any
// failing stage aborts the quote and no partial result is returned.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/printquote/internal/catalog"
	"github.com/noah-isme/printquote/internal/common"
	"github.com/noah-isme/printquote/internal/geometry"
	"github.com/noah-isme/printquote/internal/obs"
	"github.com/noah-isme/printquote/internal/pricing"
	"github.com/noah-isme/printquote/internal/storage"
)

const (
	defaultGeometryTimeout = 10 * time.Second
	defaultFetchTimeout    = 15 * time.Second
)

// ModelSource carries either inline model bytes or a reference to stored bytes.
type ModelSource struct {
	Bytes     []byte
	Reference string
}

// Empty reports whether neither bytes nor a reference were supplied.
func (m ModelSource) Empty() bool {
	return len(m.Bytes) == 0 && strings.TrimSpace(m.Reference) == ""
}

// OrderRequest is the input to a quote.
type OrderRequest struct {
	ZipCode       string
	Filament      string
	Quantity      int
	RushOrder     bool
	LocalDelivery bool
	Model         ModelSource
}

// QuoteResult is the itemised price for one order. Amounts are unrounded.
type QuoteResult struct {
	BaseCost            float64
	MaterialCost        float64
	FullVolumeSurcharge float64
	ShippingCost        float64
	RushOrderSurcharge  float64
	Subtotal            float64
	SalesTax            float64
	TotalWithTax        float64
	SizeCategory        pricing.SizeCategory

	MaterialWeightGrams float64
	ShippingWeightKg    float64
	State               string
	TaxRate             float64
	Geometry            geometry.ModelGeometry
}

// Materials resolves filament keys.
type Materials interface {
	Lookup(name string) (catalog.MaterialSpec, error)
}

// Dependencies wires a Service.
type Dependencies struct {
	Materials       Materials
	Rates           pricing.TaxRates
	Extractor       geometry.Extractor
	Models          storage.Getter
	MaxModelBytes   int64
	GeometryTimeout time.Duration
	FetchTimeout    time.Duration
	Logger          zerolog.Logger
}

// Service computes quotes. It holds only read-only collaborators and is safe for
// concurrent use.
type Service struct {
	materials       Materials
	rates           pricing.TaxRates
	extractor       geometry.Extractor
	models          storage.Getter
	maxModelBytes   int64
	geometryTimeout time.Duration
	fetchTimeout    time.Duration
	logger          zerolog.Logger
	tracer          trace.Tracer
}

// NewService constructs a quote service.
func NewService(deps Dependencies) *Service {
	s := &Service{
		materials:       deps.Materials,
		rates:           deps.Rates,
		extractor:       deps.Extractor,
		models:          deps.Models,
		maxModelBytes:   deps.MaxModelBytes,
		geometryTimeout: deps.GeometryTimeout,
		fetchTimeout:    deps.FetchTimeout,
		logger:          deps.Logger,
		tracer:          otel.Tracer("printquote/quote"),
	}
	if s.extractor == nil {
		s.extractor = geometry.STLExtractor{}
	}
	if s.maxModelBytes <= 0 {
		s.maxModelBytes = storage.DefaultMaxBytes
	}
	if s.geometryTimeout <= 0 {
		s.geometryTimeout = defaultGeometryTimeout
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	return s
}

// Quote runs the full pipeline for req.
func (s *Service) Quote(ctx context.Context, req OrderRequest) (QuoteResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "quote.Quote", trace.WithAttributes(
		attribute.String("quote.filament", req.Filament),
		attribute.Int("quote.quantity", req.Quantity),
		attribute.Bool("quote.rush", req.RushOrder),
		attribute.Bool("quote.local", req.LocalDelivery),
	))
	defer span.End()

	res, err := s.quote(ctx, req)
	label := resultLabel(err)
	obs.ObserveQuote(label, obs.DurationMillis(time.Since(start)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, label)
		s.logFailure(ctx, req, err)
		return QuoteResult{}, err
	}
	span.SetAttributes(
		attribute.String("quote.size_category", string(res.SizeCategory)),
		attribute.Float64("quote.total", res.TotalWithTax),
	)
	return res, nil
}

func (s *Service) quote(ctx context.Context, req OrderRequest) (QuoteResult, error) {
	var material catalog.MaterialSpec
	if err := s.stage(ctx, "receive", func(context.Context) error {
		var err error
		material, err = s.receive(req)
		return err
	}); err != nil {
		return QuoteResult{}, err
	}

	var geo geometry.ModelGeometry
	if err := s.stage(ctx, "extract_geometry", func(ctx context.Context) error {
		data, err := s.modelBytes(ctx, req.Model)
		if err != nil {
			return err
		}
		geo, err = s.extract(ctx, data)
		return err
	}); err != nil {
		return QuoteResult{}, err
	}

	var size pricing.SizeCategory
	if err := s.stage(ctx, "classify_size", func(context.Context) error {
		var over pricing.OverBy
		size, over = pricing.Classify(geo.Extents.X, geo.Extents.Y, geo.Extents.Z)
		obs.ObserveSizeCategory(string(size))
		if size == pricing.SizeTooLarge {
			return fail(ErrModelTooLarge, "model exceeds the printable build volume", nil).WithDetails(map[string]any{
				"over_by":      over,
				"max_build_mm": pricing.MaxBuildMM,
				"extents":      geo.Extents,
			})
		}
		return nil
	}); err != nil {
		return QuoteResult{}, err
	}

	var breakdown pricing.Breakdown
	_ = s.stage(ctx, "compute_pricing", func(context.Context) error {
		breakdown = pricing.Compute(pricing.Input{
			VolumeCm3:      geo.VolumeCm3(),
			Material:       pricing.Material{DensityGPerCm3: material.DensityGPerCm3, PricePerKg: material.PricePerKg},
			Quantity:       req.Quantity,
			RushOrder:      req.RushOrder,
			LocalDelivery:  req.LocalDelivery,
			DestinationZip: req.ZipCode,
			Size:           size,
		})
		return nil
	})

	var tax pricing.TaxResult
	_ = s.stage(ctx, "apply_tax", func(context.Context) error {
		tax = pricing.ApplyTax(s.rates, req.ZipCode, breakdown.Subtotal)
		return nil
	})

	return QuoteResult{
		BaseCost:            breakdown.BaseCost,
		MaterialCost:        breakdown.MaterialCost,
		FullVolumeSurcharge: breakdown.FullVolumeSurcharge,
		ShippingCost:        breakdown.ShippingCost,
		RushOrderSurcharge:  breakdown.RushOrderSurcharge,
		Subtotal:            breakdown.Subtotal,
		SalesTax:            tax.Tax,
		TotalWithTax:        tax.Total,
		SizeCategory:        size,
		MaterialWeightGrams: breakdown.MaterialWeightGrams,
		ShippingWeightKg:    breakdown.ShippingWeightKg,
		State:               tax.State,
		TaxRate:             tax.Rate,
		Geometry:            geo,
	}, nil
}

func (s *Service) receive(req OrderRequest) (catalog.MaterialSpec, error) {
	if req.Quantity < 1 {
		return catalog.MaterialSpec{}, fail(ErrInvalidInput, "quantity must be at least 1", nil).
			WithDetails(map[string]any{"quantity": req.Quantity})
	}
	if strings.TrimSpace(req.ZipCode) == "" {
		return catalog.MaterialSpec{}, fail(ErrInvalidInput, "zip_code is required", nil)
	}
	if req.Model.Empty() {
		return catalog.MaterialSpec{}, fail(ErrInvalidInput, "a model file or model reference is required", nil)
	}
	if s.materials == nil {
		return catalog.MaterialSpec{}, fail(ErrConfiguration, "pricing is temporarily unavailable", errors.New("materials catalog not configured"))
	}
	material, err := s.materials.Lookup(req.Filament)
	switch {
	case err == nil:
		return material, nil
	case errors.Is(err, catalog.ErrUnknownMaterial):
		return catalog.MaterialSpec{}, fail(ErrInvalidInput, "unknown filament type", err).
			WithDetails(map[string]string{"filament_type": req.Filament})
	case errors.Is(err, catalog.ErrIncompleteMaterial):
		return catalog.MaterialSpec{}, fail(ErrConfiguration, "pricing is temporarily unavailable", err)
	default:
		return catalog.MaterialSpec{}, fail(ErrInternal, "internal error", err)
	}
}

func (s *Service) modelBytes(ctx context.Context, src ModelSource) ([]byte, error) {
	if len(src.Bytes) > 0 {
		if int64(len(src.Bytes)) > s.maxModelBytes {
			return nil, fail(ErrInvalidInput, "model file is too large", nil).
				WithDetails(map[string]int64{"limit_bytes": s.maxModelBytes})
		}
		return src.Bytes, nil
	}
	if s.models == nil {
		return nil, fail(ErrInvalidInput, "model references are not supported, upload the file instead", storage.ErrNotConfigured)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	data, err := s.models.Get(fetchCtx, src.Reference)
	if err == nil {
		return data, nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, fail(ErrInvalidInput, "model reference not found", err)
	case errors.Is(err, storage.ErrTooLarge):
		return nil, fail(ErrInvalidInput, "model file is too large", err).
			WithDetails(map[string]int64{"limit_bytes": s.maxModelBytes})
	case errors.Is(err, storage.ErrRejected), errors.Is(err, storage.ErrNotConfigured):
		return nil, fail(ErrInvalidInput, "model reference could not be used", err)
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fail(ErrUpstreamUnavailable, "model storage timed out", err).
			WithDetails(map[string]string{"reason": "timeout"})
	default:
		return nil, fail(ErrUpstreamUnavailable, "model storage is unavailable", err)
	}
}

type extraction struct {
	geo geometry.ModelGeometry
	err error
}

// extract runs the extractor under the geometry timeout. Parsing is CPU bound and
// may ignore ctx, so the call is raced against the deadline.
func (s *Service) extract(ctx context.Context, data []byte) (geometry.ModelGeometry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.geometryTimeout)
	defer cancel()

	done := make(chan extraction, 1)
	go func() {
		g, err := s.extractor.Extract(ctx, data)
		done <- extraction{geo: g, err: err}
	}()

	var res extraction
	select {
	case res = <-done:
	case <-ctx.Done():
		res = extraction{err: ctx.Err()}
	}

	switch err := res.err; {
	case err == nil:
		return res.geo, nil
	case errors.Is(err, context.DeadlineExceeded):
		return geometry.ModelGeometry{}, fail(ErrUpstreamUnavailable, "geometry extraction timed out", err).
			WithDetails(map[string]string{"reason": "timeout"})
	case errors.Is(err, context.Canceled):
		return geometry.ModelGeometry{}, fail(ErrUpstreamUnavailable, "geometry extraction cancelled", err).
			WithDetails(map[string]string{"reason": "canceled"})
	case errors.Is(err, geometry.ErrUnreadable), errors.Is(err, geometry.ErrEmptyMesh):
		return geometry.ModelGeometry{}, fail(ErrUnreadableModel, "model file could not be read", err)
	default:
		return geometry.ModelGeometry{}, fail(ErrInternal, "internal error", fmt.Errorf("extract geometry: %w", err))
	}
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "quote."+name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	obs.ObserveQuoteStage(name, obs.DurationMillis(time.Since(start)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, resultLabel(err))
	}
	return err
}

func (s *Service) logFailure(ctx context.Context, req OrderRequest, err error) {
	evt := s.logger.Warn()
	code := common.CodeInternal
	if appErr, ok := common.AsAppError(err); ok {
		code = appErr.Code
	}
	switch code {
	case common.CodeConfiguration, common.CodeInternal, common.CodeUpstreamUnavailable:
		evt = s.logger.Error()
	}
	if id := obs.QuoteIDFromContext(ctx); id != "" {
		evt = evt.Str("quote_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Err(err).
		Str("code", code).
		Str("filament", req.Filament).
		Str("zip", req.ZipCode).
		Int("quantity", req.Quantity).
		Msg("quote_failed")
}
