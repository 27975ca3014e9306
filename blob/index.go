package blob

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/celestiaorg/go-square/v2/share"
	"github.com/ethereum/go-ethereum/rlp"
)

// App versions of the DA network whose share format can be parsed.
const (
	AppVersionV1 uint64 = 1
	AppVersionV2 uint64 = 2
	AppVersionV3 uint64 = 3
	AppVersionV4 uint64 = 4
)

// Index is a blob whose payload lists other blobs. It lets a publisher commit
// to many blobs with a single on-chain reference.
type Index struct {
	Blobs []SpanSequence
}

// NewIndex returns an index over the given blobs.
func NewIndex(blobs ...SpanSequence) Index {
	return Index{Blobs: blobs}
}

// Contains reports whether the index lists exactly span.
func (i Index) Contains(span SpanSequence) bool {
	for _, listed := range i.Blobs {
		if listed == span {
			return true
		}
	}
	return false
}

// Marshal encodes the index as a blob payload.
func (i Index) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(i)
}

// UnmarshalIndex decodes a blob payload into an index.
func UnmarshalIndex(payload []byte) (Index, error) {
	var index Index
	if err := rlp.DecodeBytes(payload, &index); err != nil {
		return Index{}, errorsmod.Wrap(ErrIndexDeserialization, err.Error())
	}
	return index, nil
}

// ValidateAppVersion checks that shares of the given app version can be parsed.
func ValidateAppVersion(appVersion uint64) error {
	if appVersion < AppVersionV1 || appVersion > AppVersionV4 {
		return errorsmod.Wrapf(ErrUnsupportedAppVersion, "%d", appVersion)
	}
	return nil
}

// ReconstructBlob reassembles the payload of the single blob stored in the
// given raw shares.
func ReconstructBlob(rawShares [][]byte, appVersion uint64) ([]byte, error) {
	if err := ValidateAppVersion(appVersion); err != nil {
		return nil, err
	}

	shares, err := share.FromBytes(rawShares)
	if err != nil {
		return nil, errorsmod.Wrap(ErrIndexReconstruction, err.Error())
	}
	blobs, err := parseBlobs(shares)
	if err != nil {
		return nil, errorsmod.Wrap(ErrIndexReconstruction, err.Error())
	}
	if len(blobs) != 1 {
		return nil, errorsmod.Wrapf(ErrIndexReconstruction, "expected one blob, found %d", len(blobs))
	}
	return blobs[0].Data(), nil
}

// ReconstructIndex rebuilds an index from the raw shares of its blob. Both
// failure modes (ErrIndexReconstruction and ErrIndexDeserialization) mean the
// index is unreadable.
func ReconstructIndex(rawShares [][]byte, appVersion uint64) (Index, error) {
	payload, err := ReconstructBlob(rawShares, appVersion)
	if err != nil {
		return Index{}, err
	}
	return UnmarshalIndex(payload)
}

// parseBlobs recovers from parser panics on truncated sequences, which the
// shares of a span are not guaranteed to avoid.
func parseBlobs(shares []share.Share) (blobs []*share.Blob, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed share sequence: %v", r)
		}
	}()
	return share.ParseBlobs(shares)
}
