package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsTokenKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/v1/verify/:token"),
		attribute.String("qr_token", "v1.secret"),
		attribute.String("http.target", "/api/v1/verify/v1.secret"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorRedactsToken(t *testing.T) {
	err := SafeError(errors.New("resolve v1.abcdef failed"))
	assert.Equal(t, "resolve [redacted]", err.Error())
	assert.Nil(t, SafeError(nil))
}
