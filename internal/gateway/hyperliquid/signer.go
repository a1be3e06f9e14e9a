package hyperliquid

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer produces the wallet signature attached to every exchange action.
// The venue verifies an EIP-712 "Agent" struct whose connectionId commits to
// the action payload and nonce, so a signature can neither be replayed with
// a different nonce nor attached to a different action.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(privateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
	}, nil
}

// Address is the wallet address the venue attributes actions to.
func (s *Signer) Address() common.Address { return s.address }

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// connectionID commits the signature to one exact action and nonce.
func connectionID(actionJSON []byte, nonce uint64) common.Hash {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	return crypto.Keccak256Hash(actionJSON, nonceBytes[:])
}

func (s *Signer) typedData(connID common.Hash) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": []apitypes.Type{
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           (*math.HexOrDecimal256)(s.chainID),
			VerifyingContract: common.Address{}.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"source":       "a",
			"connectionId": connID.Hex(),
		},
	}
}

// digest computes keccak256("\x19\x01" || domainSeparator || structHash).
func (s *Signer) digest(connID common.Hash) ([]byte, error) {
	typed := s.typedData(connID)
	domainSeparator, err := typed.HashStruct("EIP712Domain", typed.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hashing domain failed: %w", err)
	}
	structHash, err := typed.HashStruct(typed.PrimaryType, typed.Message)
	if err != nil {
		return nil, fmt.Errorf("hashing agent struct failed: %w", err)
	}
	return crypto.Keccak256([]byte("\x19\x01"), domainSeparator, structHash), nil
}

// Signature is the wire form of a signed action.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V uint8  `json:"v"`
}

// SignAction signs the canonical action JSON under the given nonce.
func (s *Signer) SignAction(actionJSON []byte, nonce uint64) (Signature, error) {
	digest, err := s.digest(connectionID(actionJSON, nonce))
	if err != nil {
		return Signature{}, err
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("signing action failed: %w", err)
	}
	return Signature{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}

// Verify recovers the signing address for a signed action; used in tests
// and available for pre-flight sanity checks.
func (s *Signer) Verify(actionJSON []byte, nonce uint64, sig Signature) (common.Address, error) {
	digest, err := s.digest(connectionID(actionJSON, nonce))
	if err != nil {
		return common.Address{}, err
	}
	r, err := hexutil.Decode(sig.R)
	if err != nil {
		return common.Address{}, fmt.Errorf("bad r: %w", err)
	}
	sb, err := hexutil.Decode(sig.S)
	if err != nil {
		return common.Address{}, fmt.Errorf("bad s: %w", err)
	}
	raw := make([]byte, 65)
	copy(raw[32-len(r):32], r)
	copy(raw[64-len(sb):64], sb)
	raw[64] = sig.V - 27
	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering signer failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
