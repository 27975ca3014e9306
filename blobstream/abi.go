package blobstream

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BridgeABI covers both historical Blobstream implementations: the RISC Zero
// one exposes latestHeight, the SP1 one latestBlock. Both implement the
// IDAOracle verifyAttestation call and emit DataCommitmentStored.
const BridgeABI = `[
	{
		"type": "function",
		"name": "verifyAttestation",
		"stateMutability": "view",
		"inputs": [
			{"name": "_tupleRootNonce", "type": "uint256"},
			{"name": "_tuple", "type": "tuple", "components": [
				{"name": "height", "type": "uint256"},
				{"name": "dataRoot", "type": "bytes32"}
			]},
			{"name": "_proof", "type": "tuple", "components": [
				{"name": "sideNodes", "type": "bytes32[]"},
				{"name": "key", "type": "uint256"},
				{"name": "numLeaves", "type": "uint256"}
			]}
		],
		"outputs": [{"name": "", "type": "bool"}]
	},
	{
		"type": "function",
		"name": "latestHeight",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint64"}]
	},
	{
		"type": "function",
		"name": "latestBlock",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint64"}]
	},
	{
		"type": "event",
		"name": "DataCommitmentStored",
		"anonymous": false,
		"inputs": [
			{"name": "proofNonce", "type": "uint256", "indexed": false},
			{"name": "startBlock", "type": "uint64", "indexed": true},
			{"name": "endBlock", "type": "uint64", "indexed": true},
			{"name": "dataCommitment", "type": "bytes32", "indexed": true}
		]
	}
]`

const (
	methodVerifyAttestation = "verifyAttestation"
	methodLatestHeight      = "latestHeight"
	methodLatestBlock       = "latestBlock"
	eventDataCommitment     = "DataCommitmentStored"
)

// ParsedABI returns the parsed bridge ABI.
func ParsedABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(BridgeABI))
}
