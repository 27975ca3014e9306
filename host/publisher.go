package host

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/celestiaorg/go-square/v2/share"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/celestia"
	"github.com/celestiaorg/celestia-da-challenge/metrics"
	"github.com/celestiaorg/celestia-da-challenge/square"
)

// BlobNode submits and locates blobs. *celestia.Client satisfies it.
type BlobNode interface {
	SubmitBlobs(ctx context.Context, blobs []*celestia.Blob, options *celestia.SubmitOptions) (uint64, error)
	GetBlob(ctx context.Context, height uint64, namespace, commitment []byte) (*celestia.Blob, error)
	HeaderByHeight(ctx context.Context, height uint64) (*celestia.ExtendedHeader, error)
}

var _ BlobNode = (*celestia.Client)(nil)

// Publication lists the span sequences of published blobs and of the index
// blob committing to them.
type Publication struct {
	Blobs []blob.SpanSequence
	Index blob.SpanSequence
}

// Publisher posts payloads as blobs and commits to them with an index blob.
type Publisher struct {
	node    BlobNode
	metrics *metrics.Metrics
	logger  log.Logger

	Policy  RetryPolicy
	Options *celestia.SubmitOptions
}

// NewPublisher returns a Publisher letting the node pick the fee.
func NewPublisher(node BlobNode, m *metrics.Metrics, logger log.Logger) *Publisher {
	return &Publisher{
		node:    node,
		metrics: m,
		logger:  logger.With("module", "publisher"),
		Policy:  DefaultRetryPolicy(),
	}
}

// Publish submits payloads under namespace, then an index blob listing them.
func (p *Publisher) Publish(ctx context.Context, namespace share.Namespace, payloads [][]byte) (*Publication, error) {
	if len(payloads) == 0 {
		return nil, ErrNoPayloads
	}
	blobs := make([]*celestia.Blob, len(payloads))
	for i, payload := range payloads {
		b, err := celestia.NewBlob(namespace, payload)
		if err != nil {
			return nil, fmt.Errorf("blob %d: %w", i, err)
		}
		blobs[i] = b
	}

	spans, err := p.submit(ctx, blobs)
	if err != nil {
		return nil, err
	}

	payload, err := blob.NewIndex(spans...).Marshal()
	if err != nil {
		return nil, err
	}
	indexBlob, err := celestia.NewBlob(namespace, payload)
	if err != nil {
		return nil, fmt.Errorf("index blob: %w", err)
	}
	indexSpans, err := p.submit(ctx, []*celestia.Blob{indexBlob})
	if err != nil {
		return nil, err
	}

	p.logger.Info("published index blob", "index", indexSpans[0], "blobs", len(spans))
	return &Publication{Blobs: spans, Index: indexSpans[0]}, nil
}

// submit posts blobs in one transaction and locates each in the ODS.
// Submission is not retried, a resend could post the blobs twice.
func (p *Publisher) submit(ctx context.Context, blobs []*celestia.Blob) ([]blob.SpanSequence, error) {
	height, err := p.node.SubmitBlobs(ctx, blobs, p.Options)
	if err != nil {
		return nil, err
	}
	header, err := Retry(ctx, p.Policy, p.metrics, p.logger, "header.GetByHeight", func() (*celestia.ExtendedHeader, error) {
		return p.node.HeaderByHeight(ctx, height)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get header at height %d: %w", height, err)
	}

	spans := make([]blob.SpanSequence, len(blobs))
	for i, b := range blobs {
		included, err := Retry(ctx, p.Policy, p.metrics, p.logger, "blob.Get", func() (*celestia.Blob, error) {
			return p.node.GetBlob(ctx, height, b.Namespace().Bytes(), b.Commitment)
		})
		if err != nil {
			return nil, err
		}
		start, err := square.EDSShareToODS(uint64(included.Index()), header.SquareWidth())
		if err != nil {
			return nil, errorsmod.Wrapf(err, "blob %x at height %d", b.Commitment, height)
		}
		spans[i] = blob.SpanSequence{Height: height, Start: start, Size: celestia.SharesLength(b)}
		p.logger.Debug("blob included", "span", spans[i], "eds_index", included.Index())
	}
	return spans, nil
}
