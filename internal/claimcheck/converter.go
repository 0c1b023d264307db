package claimcheck

import (
	"net/http"

	"go.temporal.io/sdk/converter"
)

// DataConverter wraps the SDK default converter with codec.
func DataConverter(codec converter.PayloadCodec) converter.DataConverter {
	return converter.NewCodecDataConverter(converter.GetDefaultDataConverter(), codec)
}

// NewHTTPHandler exposes codec over the remote codec protocol used by the Temporal
// UI and CLI (POST {prefix}/encode and {prefix}/decode).
func NewHTTPHandler(codec converter.PayloadCodec) http.Handler {
	return converter.NewPayloadCodecHTTPHandler(codec)
}
