package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"readyrent/internal/domain/product"
	"readyrent/internal/domain/shared/datespan"
)

// Invalidator drops cached availability results for a product.
type Invalidator interface {
	Invalidate(ctx context.Context, productID product.ProductID, span *datespan.DateSpan) error
}

// CatalogEventHandler listens to the marketplace catalog topic and drops
// cached availability whenever a product changes status there. Unknown event
// types and malformed payloads are skipped, not retried.
type CatalogEventHandler struct {
	Cache  Invalidator
	Logger *slog.Logger
}

type catalogEnvelope struct {
	Type string `json:"type"`
	Data struct {
		ProductID string `json:"product_id"`
	} `json:"data"`
}

func (h *CatalogEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var envelope catalogEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("catalog event decode failed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
		return nil
	}
	if !strings.HasPrefix(envelope.Type, "catalog.product.") || envelope.Data.ProductID == "" {
		return nil
	}
	if err := h.Cache.Invalidate(ctx, product.ProductID(envelope.Data.ProductID), nil); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("availability cache invalidation failed", "product_id", envelope.Data.ProductID, "error", err)
		}
		return err
	}
	return nil
}

var _ MessageHandler = (*CatalogEventHandler)(nil)
