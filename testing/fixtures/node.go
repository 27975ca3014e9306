package fixtures

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/celestiaorg/go-square/v2/share"

	"github.com/celestiaorg/celestia-da-challenge/celestia"
	"github.com/celestiaorg/celestia-da-challenge/square"
)

// Node serves the DA node JSON-RPC methods used by the challenger from
// in-memory blocks and Blobstream batches.
type Node struct {
	Blobstream *Blobstream
	AppVersion uint64
	// Head overrides the local head height when non-zero.
	Head uint64
	// SubmitWidth is the ODS width of the blocks built by blob.Submit.
	SubmitWidth uint32

	mu     sync.Mutex
	blocks map[uint64]*Block
	blobs  map[string]*celestia.Blob
	calls  map[string]int
}

// NewNode returns a node serving the given blocks.
func NewNode(bs *Blobstream, appVersion uint64, blocks ...*Block) *Node {
	n := &Node{
		Blobstream:  bs,
		AppVersion:  appVersion,
		SubmitWidth: 4,
		blocks:      make(map[uint64]*Block),
		blobs:       make(map[string]*celestia.Blob),
		calls:       make(map[string]int),
	}
	for _, block := range blocks {
		n.blocks[block.Height] = block
	}
	return n
}

// Block returns the block at height.
func (n *Node) Block(height uint64) (*Block, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	block, ok := n.blocks[height]
	return block, ok
}

// Calls returns the number of requests made to method.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	result, err := n.handle(req.Method, req.Params)
	n.mu.Unlock()

	resp := rpcResponse{Version: "2.0", ID: req.ID, Result: result}
	if err != nil {
		resp.Result = nil
		resp.Error = &rpcError{Code: -32000, Message: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func decodeParams(params []json.RawMessage, out ...any) error {
	if len(params) < len(out) {
		return fmt.Errorf("expected %d params, got %d", len(out), len(params))
	}
	for i, o := range out {
		if err := json.Unmarshal(params[i], o); err != nil {
			return fmt.Errorf("param %d: %w", i, err)
		}
	}
	return nil
}

func (n *Node) handle(method string, params []json.RawMessage) (any, error) {
	switch method {
	case "header.GetByHeight":
		var height uint64
		if err := decodeParams(params, &height); err != nil {
			return nil, err
		}
		return n.header(height)
	case "header.LocalHead":
		return n.header(n.head())
	case "share.GetRange":
		var (
			height     uint64
			start, end uint32
		)
		if err := decodeParams(params, &height, &start, &end); err != nil {
			return nil, err
		}
		block, ok := n.blocks[height]
		if !ok {
			return nil, fmt.Errorf("header: not found")
		}
		proof, err := block.RangeProof(start, end)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Shares": proof.Data, "Proof": shareProofWire(proof)}, nil
	case "blobstream.GetDataRootTupleInclusionProof":
		var height, start, end uint64
		if err := decodeParams(params, &height, &start, &end); err != nil {
			return nil, err
		}
		return n.tupleProof(height, start, end)
	case "blob.Submit":
		var blobs []*celestia.Blob
		if err := decodeParams(params, &blobs); err != nil {
			return nil, err
		}
		return n.submit(blobs)
	case "blob.Get":
		var (
			height     uint64
			namespace  []byte
			commitment []byte
		)
		if err := decodeParams(params, &height, &namespace, &commitment); err != nil {
			return nil, err
		}
		b, ok := n.blobs[blobKey(height, commitment)]
		if !ok || !bytes.Equal(b.Namespace().Bytes(), namespace) {
			return nil, fmt.Errorf("blob: not found")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("method %s not found", method)
	}
}

func (n *Node) head() uint64 {
	if n.Head != 0 {
		return n.Head
	}
	var head uint64
	for height := range n.blocks {
		head = max(head, height)
	}
	return head
}

// header encodes the block header the way the node does: 64-bit integers as
// decimal strings and hashes as upper case hex.
func (n *Node) header(height uint64) (any, error) {
	block, ok := n.blocks[height]
	if !ok {
		return nil, fmt.Errorf("header: not found")
	}
	return map[string]any{
		"header": map[string]any{
			"version": map[string]string{
				"block": "11",
				"app":   strconv.FormatUint(n.AppVersion, 10),
			},
			"chain_id":  "private",
			"height":    strconv.FormatUint(height, 10),
			"data_hash": strings.ToUpper(hex.EncodeToString(block.DataRoot[:])),
		},
		"commit":        map[string]any{},
		"validator_set": map[string]any{},
		"dah": map[string]any{
			"row_roots":    block.RowRoots,
			"column_roots": block.ColRoots,
		},
	}, nil
}

func (n *Node) tupleProof(height, start, end uint64) (any, error) {
	if n.Blobstream == nil {
		return nil, fmt.Errorf("blobstream: no commitments")
	}
	for _, batch := range n.Blobstream.Batches {
		if batch.Start != start || batch.End != end {
			continue
		}
		attestation, err := n.Blobstream.Attest(height)
		if err != nil {
			return nil, err
		}
		return merkleProofWire(attestation.Proof), nil
	}
	return nil, fmt.Errorf("blobstream: no commitment over [%d, %d)", start, end)
}

// submit lays the blobs out in a new block after a row of reserved padding,
// so that their EDS and ODS indexes differ.
func (n *Node) submit(blobs []*celestia.Blob) (uint64, error) {
	if len(blobs) == 0 {
		return 0, fmt.Errorf("no blobs")
	}
	slices.SortStableFunc(blobs, func(a, b *celestia.Blob) int {
		return bytes.Compare(a.Namespace().Bytes(), b.Namespace().Bytes())
	})

	shares := share.ReservedPaddingShares(int(n.SubmitWidth))
	starts := make([]int, len(blobs))
	namespaces := make([]share.Namespace, len(blobs))
	for i, b := range blobs {
		ns, err := share.NewNamespaceFromBytes(b.Namespace().Bytes())
		if err != nil {
			return 0, err
		}
		blobShares, err := BlobShares(ns, b.Data)
		if err != nil {
			return 0, err
		}
		namespaces[i] = ns
		starts[i] = len(shares)
		shares = append(shares, blobShares...)
	}

	height := n.head() + 1
	block, err := NewBlock(height, n.SubmitWidth, shares)
	if err != nil {
		return 0, err
	}
	n.blocks[height] = block

	for i, b := range blobs {
		stored, err := celestia.NewBlob(namespaces[i], b.Data)
		if err != nil {
			return 0, err
		}
		row, col := starts[i]/int(n.SubmitWidth), starts[i]%int(n.SubmitWidth)
		stored.Index = row*2*int(n.SubmitWidth) + col
		n.blobs[blobKey(height, stored.Commitment)] = stored
	}
	return height, nil
}

func blobKey(height uint64, commitment []byte) string {
	return fmt.Sprintf("%d/%x", height, commitment)
}

func merkleProofWire(p square.MerkleProof) map[string]any {
	return map[string]any{
		"total":     p.Total,
		"index":     p.Index,
		"leaf_hash": p.LeafHash,
		"aunts":     p.Aunts,
	}
}

func shareProofWire(p square.ShareProof) map[string]any {
	nmtProofs := make([]map[string]any, len(p.ShareProofs))
	for i, proof := range p.ShareProofs {
		nmtProofs[i] = map[string]any{
			"start": proof.Start,
			"end":   proof.End,
			"nodes": proof.Nodes,
		}
	}
	proofs := make([]map[string]any, len(p.RowProof.Proofs))
	for i, proof := range p.RowProof.Proofs {
		proofs[i] = merkleProofWire(proof)
	}
	return map[string]any{
		"data":         p.Data,
		"share_proofs": nmtProofs,
		"namespace_id": p.NamespaceID,
		// row roots are read from the header
		"row_proof": map[string]any{
			"proofs":    proofs,
			"start_row": p.RowProof.StartRow,
			"end_row":   p.RowProof.EndRow,
		},
		"namespace_version": p.NamespaceVersion,
	}
}
