package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("trigger", "scheduled"),
		attribute.String("seller_id", "456"),
		attribute.String("category", "PRICE_VIOLATION"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "trigger" && attrs[1].Key != "trigger" {
		t.Fatalf("expected trigger to be retained")
	}
	if attrs[0].Key != "category" && attrs[1].Key != "category" {
		t.Fatalf("expected category to be retained")
	}
}
