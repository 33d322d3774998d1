package logcontext

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCtx_DoesNotMutateParent(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("requestId", "r-1"))
	child := AppendCtx(parent, slog.String("paymentId", "123"))

	assert.Len(t, Attrs(parent), 1)
	assert.Len(t, Attrs(child), 2)
}

func TestHandler_EmitsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Handler{Handler: slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("requestId", "r-1"), slog.String("saleId", "42"))
	logger.InfoContext(ctx, "webhook received")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "webhook received", record["msg"])
	assert.Equal(t, "r-1", record["requestId"])
	assert.Equal(t, "42", record["saleId"])
}
