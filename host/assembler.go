package host

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"golang.org/x/sync/errgroup"

	"github.com/celestiaorg/celestia-da-challenge/blob"
	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/celestia"
	"github.com/celestiaorg/celestia-da-challenge/challenge"
	"github.com/celestiaorg/celestia-da-challenge/metrics"
	"github.com/celestiaorg/celestia-da-challenge/square"
)

// DefaultMaxConcurrentFetches bounds the share proofs requested at once.
const DefaultMaxConcurrentFetches = 8

// Assembler fetches everything a challenge needs from the DA node and the
// Blobstream events. Data that cannot exist is left out of the bundle so the
// engine can prove it missing.
type Assembler struct {
	node        DANode
	commitments Commitments
	metrics     *metrics.Metrics
	logger      log.Logger

	Policy               RetryPolicy
	MaxConcurrentFetches int
}

// NewAssembler returns an Assembler with the default retry policy.
func NewAssembler(node DANode, commitments Commitments, m *metrics.Metrics, logger log.Logger) *Assembler {
	return &Assembler{
		node:                 node,
		commitments:          commitments,
		metrics:              m,
		logger:               logger.With("module", "assembler"),
		Policy:               DefaultRetryPolicy(),
		MaxConcurrentFetches: DefaultMaxConcurrentFetches,
	}
}

// Assemble builds the bundle for a challenge of challenged against index.
func (a *Assembler) Assemble(ctx context.Context, index, challenged blob.SpanSequence) (*challenge.Bundle, error) {
	var (
		head  uint64
		first blobstream.Attestation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		header, err := Retry(gctx, a.Policy, a.metrics, a.logger, "header.LocalHead", func() (*celestia.ExtendedHeader, error) {
			return a.node.LocalHead(gctx)
		})
		if err != nil {
			return fmt.Errorf("failed to get local head: %w", err)
		}
		head = header.Height()
		return nil
	})
	g.Go(func() error {
		attestation, err := a.firstAttestation(gctx)
		if err != nil {
			return fmt.Errorf("failed to get first Blobstream attestation: %w", err)
		}
		first = attestation
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundle := &challenge.Bundle{
		IndexBlob:        index,
		ChallengedBlob:   challenged,
		FirstAttestation: first,
	}
	inRange := func(height uint64) bool {
		return height >= first.Height && height <= head
	}

	if !inRange(index.Height) {
		a.logger.Info("index blob height out of range", "height", index.Height, "first", first.Height, "head", head)
		return bundle, nil
	}

	indexHeader, err := a.header(ctx, index.Height)
	if err != nil {
		return nil, err
	}
	indexProof, err := a.blockProof(ctx, indexHeader)
	switch {
	case errorsmod.IsOf(err, blobstream.ErrEventNotFound):
		a.logger.Info("index blob height not attested", "height", index.Height)
		return bundle, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get block proof of index blob: %w", err)
	}
	bundle.SetBlockProof(index.Height, indexProof)

	if index == challenged {
		return bundle, nil
	}

	proofData, err := a.proofData(ctx, index, indexHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to get index blob shares: %w", err)
	}
	bundle.IndexBlobProofData = proofData

	shares, err := proofData.SpanShares(index)
	if err != nil {
		return nil, err
	}
	blobIndex, err := blob.ReconstructIndex(shares, proofData.AppVersion)
	if err != nil {
		a.logger.Info("index blob cannot be read", "err", err)
		return bundle, nil
	}

	if !inRange(challenged.Height) {
		a.logger.Info("challenged blob height out of range", "height", challenged.Height, "first", first.Height, "head", head)
		return bundle, nil
	}
	if !blobIndex.Contains(challenged) {
		a.logger.Info("challenged blob is not listed in the index", "blob", challenged)
		return bundle, nil
	}

	challengedHeader, err := a.header(ctx, challenged.Height)
	if err != nil {
		return nil, err
	}
	challengedProof, err := a.blockProof(ctx, challengedHeader)
	switch {
	case errorsmod.IsOf(err, blobstream.ErrEventNotFound):
		// not yet committed by Blobstream, the engine decides from the bounds
		a.logger.Info("challenged blob height not attested", "height", challenged.Height)
	case err != nil:
		return nil, fmt.Errorf("failed to get block proof of challenged blob: %w", err)
	default:
		bundle.SetBlockProof(challenged.Height, challengedProof)
	}
	return bundle, nil
}

func (a *Assembler) header(ctx context.Context, height uint64) (*celestia.ExtendedHeader, error) {
	header, err := Retry(ctx, a.Policy, a.metrics, a.logger, "header.GetByHeight", func() (*celestia.ExtendedHeader, error) {
		return a.node.HeaderByHeight(ctx, height)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get header at height %d: %w", height, err)
	}
	return header, nil
}

// firstAttestation attests the first block of the nonce 1 commitment, at
// index 0 of its tuple tree.
func (a *Assembler) firstAttestation(ctx context.Context) (blobstream.Attestation, error) {
	commitment, err := a.commitments.First(ctx)
	if err != nil {
		return blobstream.Attestation{}, err
	}
	header, err := a.header(ctx, commitment.StartBlock)
	if err != nil {
		return blobstream.Attestation{}, err
	}
	return a.attest(ctx, header, commitment)
}

func (a *Assembler) attest(ctx context.Context, header *celestia.ExtendedHeader, commitment blobstream.DataCommitment) (blobstream.Attestation, error) {
	height := header.Height()
	dataRoot, err := header.DataRoot()
	if err != nil {
		return blobstream.Attestation{}, err
	}
	proof, err := Retry(ctx, a.Policy, a.metrics, a.logger, "blobstream.GetDataRootTupleInclusionProof", func() (square.MerkleProof, error) {
		return a.node.DataRootTupleInclusionProof(ctx, height, commitment.StartBlock, commitment.EndBlock)
	})
	if err != nil {
		return blobstream.Attestation{}, fmt.Errorf("failed to get data root tuple proof at height %d: %w", height, err)
	}

	attestation := blobstream.Attestation{
		DataRoot: dataRoot,
		Height:   height,
		Nonce:    commitment.Nonce,
		Proof:    proof,
	}
	if err := attestation.VerifyInclusion(commitment.Root); err != nil {
		return blobstream.Attestation{}, errorsmod.Wrapf(ErrInvalidAttestation, "height %d against nonce %d: %s", height, commitment.Nonce, err)
	}
	return attestation, nil
}

// blockProof attests the block and proves its first row root.
func (a *Assembler) blockProof(ctx context.Context, header *celestia.ExtendedHeader) (blobstream.AttestationAndRowProof, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveBlockProofFetch(time.Since(start).Seconds()) }()

	commitment, err := a.commitments.Get(ctx, header.Height())
	if err != nil {
		return blobstream.AttestationAndRowProof{}, err
	}
	attestation, err := a.attest(ctx, header, commitment)
	if err != nil {
		return blobstream.AttestationAndRowProof{}, err
	}
	rowProof, rowRoot, err := header.RowProof(0)
	if err != nil {
		return blobstream.AttestationAndRowProof{}, err
	}
	return blobstream.AttestationAndRowProof{
		Attestation: attestation,
		RowProof:    rowProof,
		RowRoot:     rowRoot,
	}, nil
}

// proofData fetches one share proof per share of span, in ODS coordinates.
func (a *Assembler) proofData(ctx context.Context, span blob.SpanSequence, header *celestia.ExtendedHeader) (*blob.ProofData, error) {
	end, err := span.EndIndexODS()
	if err != nil {
		return nil, err
	}
	edsWidth := header.SquareWidth()
	if odsSize := square.ODSSize(edsWidth / 2); uint64(end) > odsSize {
		return nil, errorsmod.Wrapf(blob.ErrShareIndexOutOfBounds, "index blob ends at %d > %d, challenge the index blob itself", end, odsSize)
	}

	proofs := make([]square.ShareProof, span.Size)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.MaxConcurrentFetches, 1))
	for i := range proofs {
		index := span.Start + uint32(i)
		g.Go(func() error {
			proof, err := Retry(gctx, a.Policy, a.metrics, a.logger, "share.GetRange", func() (square.ShareProof, error) {
				return a.node.ShareRange(gctx, header, index, index+1)
			})
			if err != nil {
				return fmt.Errorf("share %d: %w", index, err)
			}
			proofs[i] = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := blob.NewProofData(header.AppVersion())
	for i, proof := range proofs {
		data.Set(span.Start+uint32(i), proof)
	}
	return data, nil
}
