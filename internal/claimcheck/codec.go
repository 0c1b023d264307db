// Package claimcheck implements a Temporal payload codec that moves payloads into an
// external payloadstore.Store and leaves a small reference envelope in their place.
package claimcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	commonpb "go.temporal.io/api/common/v1"
	"go.temporal.io/sdk/converter"
	"google.golang.org/protobuf/proto"

	"wealth/internal/payloadstore"
)

const (
	// EncodingClaimChecked is the metadata encoding marking a reference envelope.
	EncodingClaimChecked = "claim-checked"
	// VersionMetadataKey carries the envelope format version.
	VersionMetadataKey = "temporal.io/claim-check-codec"
	// Version is the envelope format this codec writes.
	Version = "v1"

	// DefaultTimeout bounds each store call.
	DefaultTimeout = 10 * time.Second

	opEncode = "encode"
	opDecode = "decode"
)

// Codec is a converter.PayloadCodec backed by a payloadstore.Store.
type Codec struct {
	store   payloadstore.Store
	policy  OffloadPolicy
	timeout time.Duration
	metrics *Metrics
	newKey  func() string
}

// Option configures a Codec.
type Option func(*Codec)

// WithPolicy sets the offload policy. The default offloads every payload.
func WithPolicy(p OffloadPolicy) Option {
	return func(c *Codec) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithTimeout bounds each Put/Get against the store.
func WithTimeout(d time.Duration) Option {
	return func(c *Codec) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Codec) {
		c.metrics = m
	}
}

// WithKeyGenerator replaces the UUID key generator.
func WithKeyGenerator(fn func() string) Option {
	return func(c *Codec) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// NewCodec constructs a claim-check codec over store.
func NewCodec(store payloadstore.Store, opts ...Option) *Codec {
	c := &Codec{
		store:   store,
		policy:  Always(),
		timeout: DefaultTimeout,
		newKey:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsClaimChecked reports whether p is a reference envelope.
func IsClaimChecked(p *commonpb.Payload) bool {
	if p == nil {
		return false
	}
	return string(p.GetMetadata()[converter.MetadataEncoding]) == EncodingClaimChecked
}

// Encode offloads each payload selected by the policy and replaces it with an envelope.
func (c *Codec) Encode(payloads []*commonpb.Payload) ([]*commonpb.Payload, error) {
	out := make([]*commonpb.Payload, len(payloads))
	for i, p := range payloads {
		encoded, err := c.encodeOne(p)
		if err != nil {
			c.metrics.recordFailure(opEncode)
			return nil, err
		}
		out[i] = encoded
	}
	return out, nil
}

func (c *Codec) encodeOne(p *commonpb.Payload) (*commonpb.Payload, error) {
	if IsClaimChecked(p) {
		c.metrics.recordPassthrough(opEncode)
		return p, nil
	}
	size := proto.Size(p)
	if !c.policy.ShouldOffload(p, size) {
		c.metrics.recordInline()
		return p, nil
	}

	key := c.newKey()
	data, err := proto.Marshal(p)
	if err != nil {
		return nil, &StoreWriteError{Key: key, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.store.Put(ctx, key, data); err != nil {
		return nil, &StoreWriteError{Key: key, Err: err}
	}

	c.metrics.recordOffload(len(data))
	return &commonpb.Payload{
		Metadata: map[string][]byte{
			converter.MetadataEncoding: []byte(EncodingClaimChecked),
			VersionMetadataKey:         []byte(Version),
		},
		Data: []byte(key),
	}, nil
}

// Decode resolves reference envelopes and returns every other payload unchanged.
func (c *Codec) Decode(payloads []*commonpb.Payload) ([]*commonpb.Payload, error) {
	out := make([]*commonpb.Payload, len(payloads))
	for i, p := range payloads {
		decoded, err := c.decodeOne(p)
		if err != nil {
			c.metrics.recordFailure(opDecode)
			return nil, err
		}
		out[i] = decoded
	}
	return out, nil
}

func (c *Codec) decodeOne(p *commonpb.Payload) (*commonpb.Payload, error) {
	if !IsClaimChecked(p) {
		c.metrics.recordPassthrough(opDecode)
		return p, nil
	}

	key := string(p.GetData())
	// Envelopes written without a version key are read as v1.
	if v, ok := p.GetMetadata()[VersionMetadataKey]; ok && string(v) != Version {
		return nil, &DecodeError{Key: key, Err: fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)}
	}
	if key == "" {
		return nil, &DecodeError{Err: ErrEmptyKey}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}

	original := &commonpb.Payload{}
	if err := proto.Unmarshal(data, original); err != nil {
		return nil, &DecodeError{Key: key, Err: fmt.Errorf("unmarshal stored payload: %w", err)}
	}
	c.metrics.recordRehydrate()
	return original, nil
}

var _ converter.PayloadCodec = (*Codec)(nil)
