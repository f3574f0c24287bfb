package chain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/scrypt"

	"github.com/estate-protocol/tokenization-node/internal/utils"
)

// keyFile is the on-disk format of an encrypted signer key
// (scrypt-derived AES-256-GCM).
type keyFile struct {
	Address      string `json:"address"`
	EncryptedKey string `json:"encrypted_key"` // hex
	Salt         string `json:"salt"`          // hex
	Nonce        string `json:"nonce"`         // hex
	CreatedAt    int64  `json:"created_at"`
}

// LoadSignerKey resolves the server-held signing key. The DEPLOYER_PRIVATE_KEY
// environment variable wins; an encrypted key file configured via
// signer_keystore_file is the fallback. The raw key never leaves this package
// except as the parsed *ecdsa.PrivateKey handed to the gateway.
func LoadSignerKey(config *utils.ConfigManager) (*ecdsa.PrivateKey, error) {
	if pk := os.Getenv("DEPLOYER_PRIVATE_KEY"); pk != "" {
		if !strings.HasPrefix(pk, "0x") || len(pk) != 66 {
			return nil, fmt.Errorf("invalid DEPLOYER_PRIVATE_KEY: expected 0x-prefixed 32-byte hex")
		}
		key, err := crypto.HexToECDSA(pk[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid DEPLOYER_PRIVATE_KEY: %v", err)
		}
		return key, nil
	}

	keystorePath := config.GetConfigWithDefault("signer_keystore_file", "")
	if keystorePath == "" {
		return nil, ErrSignerKeyMissing
	}

	passphrase := config.GetConfigWithDefault("signer_keystore_passphrase", "")
	if passphrase == "" {
		return nil, fmt.Errorf("signer_keystore_file configured but no passphrase provided")
	}

	return readKeyFile(keystorePath, passphrase)
}

// SaveSignerKey encrypts a private key with the passphrase and writes it to
// path in the key file format.
func SaveSignerKey(path string, key *ecdsa.PrivateKey, passphrase string, createdAt int64) error {
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %v", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, 32768, 8, 1, 32)
	if err != nil {
		return fmt.Errorf("failed to derive key: %v", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %v", err)
	}

	encrypted := gcm.Seal(nil, nonce, crypto.FromECDSA(key), nil)

	kf := keyFile{
		Address:      crypto.PubkeyToAddress(key.PublicKey).Hex(),
		EncryptedKey: hex.EncodeToString(encrypted),
		Salt:         hex.EncodeToString(salt),
		Nonce:        hex.EncodeToString(nonce),
		CreatedAt:    createdAt,
	}

	data, err := json.MarshalIndent(&kf, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func readKeyFile(path string, passphrase string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %v", err)
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("invalid key file format: %v", err)
	}

	salt, err := hex.DecodeString(kf.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt in key file: %v", err)
	}
	nonce, err := hex.DecodeString(kf.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce in key file: %v", err)
	}
	encrypted, err := hex.DecodeString(kf.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted key in key file: %v", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, 32768, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %v", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	keyBytes, err := gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt signer key (wrong passphrase?): %v", err)
	}

	return crypto.ToECDSA(keyBytes)
}
