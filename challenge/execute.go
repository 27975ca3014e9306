package challenge

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
	"github.com/celestiaorg/celestia-da-challenge/evmstate"
)

// Execute judges an encoded bundle against committed settlement chain state
// without network access. It returns the journal of a proven challenge;
// input errors and ErrBlobAvailable abort without one.
func Execute(snapshot *evmstate.Snapshot, bundleBytes []byte) (*Journal, Verdict, error) {
	commitment, storage, err := snapshot.Verify()
	if err != nil {
		return nil, Verdict{}, err
	}
	bundle, err := UnmarshalBundle(bundleBytes)
	if err != nil {
		return nil, Verdict{}, err
	}

	bridge, err := blobstream.NewStateBridge(storage, blobstream.Implementation(snapshot.Implementation))
	if err != nil {
		return nil, Verdict{}, err
	}

	verdict, err := Judge(bridge, bundle)
	if err != nil {
		return nil, Verdict{}, errorsmod.Wrap(err, "invalid input")
	}
	if !verdict.Proven {
		return nil, verdict, ErrBlobAvailable
	}

	return &Journal{
		Commitment:        commitment,
		BlobstreamAddress: snapshot.Bridge,
		IndexBlob:         bundle.IndexBlob,
		IndexBlobHash:     verdict.IndexBlobHash,
	}, verdict, nil
}
