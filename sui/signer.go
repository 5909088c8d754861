package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// ed25519Flag is the Sui signature-scheme flag for ed25519 keys.
const ed25519Flag byte = 0x00

// privateKeyHRP is the bech32 human-readable part of exported Sui keys.
const privateKeyHRP = "suiprivkey"

// Signer holds the operator credential used exclusively for settlement
// submission.
type Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewSigner parses an operator private key. Accepted encodings: the
// bech32 "suiprivkey..." export format, base64, or hex, each carrying a
// 32-byte ed25519 seed.
func NewSigner(key string) (*Signer, error) {
	seed, err := decodeSeed(key)
	if err != nil {
		return nil, err
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	// Sui addresses are the blake2b-256 hash of flag || public key.
	payload := append([]byte{ed25519Flag}, pub...)
	digest := blake2b.Sum256(payload)

	return &Signer{
		priv:    priv,
		pub:     pub,
		address: "0x" + hex.EncodeToString(digest[:]),
	}, nil
}

func decodeSeed(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("empty private key")
	}

	if strings.HasPrefix(key, privateKeyHRP) {
		hrp, data, err := bech32.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bech32 private key: %w", err)
		}
		if hrp != privateKeyHRP {
			return nil, fmt.Errorf("unexpected bech32 prefix %q", hrp)
		}
		decoded, err := bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("failed to convert bech32 payload: %w", err)
		}
		if len(decoded) != ed25519.SeedSize+1 {
			return nil, fmt.Errorf("unexpected private key length %d", len(decoded))
		}
		if decoded[0] != ed25519Flag {
			return nil, fmt.Errorf("unsupported signature scheme flag 0x%02x", decoded[0])
		}
		return decoded[1:], nil
	}

	if decoded, err := base64.StdEncoding.DecodeString(key); err == nil && len(decoded) == ed25519.SeedSize {
		return decoded, nil
	}
	if decoded, err := hex.DecodeString(strings.TrimPrefix(key, "0x")); err == nil && len(decoded) == ed25519.SeedSize {
		return decoded, nil
	}

	return nil, fmt.Errorf("private key is not a suiprivkey, base64, or hex encoded 32-byte seed")
}

// Address returns the signer's Sui address
func (s *Signer) Address() string {
	return s.address
}

// PublicKey returns the raw ed25519 public key
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}

// SignTransaction signs base64 transaction bytes under the transaction-data
// intent and returns the serialized signature (flag || sig || pubkey) in
// base64, ready for sui_executeTransactionBlock.
func (s *Signer) SignTransaction(txBytesB64 string) (string, error) {
	txBytes, err := base64.StdEncoding.DecodeString(txBytesB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode transaction bytes: %w", err)
	}

	// Intent: scope TransactionData, version V0, app ID Sui.
	message := append([]byte{0, 0, 0}, txBytes...)
	digest := blake2b.Sum256(message)
	sig := ed25519.Sign(s.priv, digest[:])

	serialized := make([]byte, 0, 1+len(sig)+len(s.pub))
	serialized = append(serialized, ed25519Flag)
	serialized = append(serialized, sig...)
	serialized = append(serialized, s.pub...)

	return base64.StdEncoding.EncodeToString(serialized), nil
}
