// Package identity provisions and loads the ed25519 keypairs used to
// derive bot and agent public identifiers.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	privateKeyFile = "id_ed25519"
	publicKeyFile  = "id_ed25519.pub"

	privateKeyMode = 0o600
	publicKeyMode  = 0o644

	// botKeyDirPrefix names the subdirectory of the work dir a bot's
	// keypair (and everything keyed off its public id) lives under:
	// {work_dir}/bot-pkey{public_id}/.
	botKeyDirPrefix = "bot-pkey"
)

// Identity is a loaded or freshly provisioned ed25519 keypair.
type Identity struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// PublicID returns the hex-encoded public key, used as the bot/agent's
// stable public identifier in directory names.
func (id Identity) PublicID() string { return hex.EncodeToString(id.Public) }

// KeyDir returns the directory a bot's keypair (and everything keyed off
// its public id) lives under, given the work dir and the bot's public id:
// {workDir}/bot-pkey{publicID}/.
func KeyDir(workDir, publicID string) string {
	return filepath.Join(workDir, botKeyDirPrefix+publicID)
}

// LoadOrCreate loads an existing keypair from workDir's bot-pkey{id}
// subdirectory, or generates and persists a new one (minting a fresh
// bot-pkey{id} directory from the generated public key) if none exists yet.
// Private key material is written with mode 0600, public key material with
// 0644.
func LoadOrCreate(workDir string) (Identity, error) {
	existing, err := findKeyDir(workDir)
	if err != nil {
		return Identity{}, err
	}
	if existing == "" {
		return create(workDir)
	}

	privRaw, privErr := os.ReadFile(filepath.Join(existing, privateKeyFile))
	pubRaw, pubErr := os.ReadFile(filepath.Join(existing, publicKeyFile))
	if privErr != nil || pubErr != nil {
		return Identity{}, fmt.Errorf("identity: inconsistent keypair state in %s", existing)
	}
	return load(privRaw, pubRaw)
}

// findKeyDir looks for a single bot-pkey* subdirectory of workDir holding
// both key files, returning "" if none exists yet.
func findKeyDir(workDir string) (string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), botKeyDirPrefix) {
			continue
		}
		candidate := filepath.Join(workDir, e.Name())
		if _, err := os.Stat(filepath.Join(candidate, privateKeyFile)); err == nil {
			if _, err := os.Stat(filepath.Join(candidate, publicKeyFile)); err == nil {
				return candidate, nil
			}
		}
	}
	return "", nil
}

func load(privRaw, pubRaw []byte) (Identity, error) {
	if len(privRaw) != ed25519.SeedSize {
		return Identity{}, fmt.Errorf("identity: private key seed has wrong length %d", len(privRaw))
	}
	if len(pubRaw) != ed25519.PublicKeySize {
		return Identity{}, fmt.Errorf("identity: public key has wrong length %d", len(pubRaw))
	}
	priv := ed25519.NewKeyFromSeed(privRaw)
	pub := ed25519.PublicKey(pubRaw)
	derived := priv.Public().(ed25519.PublicKey)
	if !derived.Equal(pub) {
		return Identity{}, fmt.Errorf("identity: public key does not match private key seed")
	}
	return Identity{Public: pub, Private: priv}, nil
}

// create generates a fresh keypair in memory, derives its public id, and
// only then creates workDir/bot-pkey{publicID}/ to persist it into; the
// directory name depends on the key it will hold.
func create(workDir string) (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{Public: pub, Private: priv}

	dir := KeyDir(workDir, id.PublicID())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Identity{}, err
	}
	seed := priv.Seed()
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), seed, privateKeyMode); err != nil {
		return Identity{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), pub, publicKeyMode); err != nil {
		return Identity{}, err
	}
	return id, nil
}
