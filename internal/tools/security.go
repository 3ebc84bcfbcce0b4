// ABOUTME: Security pack: file encryption and secure storage scaffolding.
// ABOUTME: Uses scrypt key derivation with secretbox authenticated encryption.

package tools

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/envelope"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// encSuffix marks encrypted output files.
const encSuffix = ".enc"

// SecurityPack creates the security capabilities.
func SecurityPack() []*capability.Descriptor {
	s := &securityHandlers{}
	return []*capability.Descriptor{
		{
			Name:        "encrypt_sensitive_data",
			Description: "Encrypt or decrypt a project file with a passphrase",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file_path":  {Type: "string", Description: "File to process, relative to the project root"},
					"passphrase": {Type: "string"},
					"mode": {
						Type:    "string",
						Enum:    []any{"encrypt", "decrypt"},
						Default: json.RawMessage(`"encrypt"`),
					},
				},
				Required: []string{"file_path", "passphrase"},
			},
			Class:   capability.ClassInteractive,
			Handler: s.encryptSensitiveData,
		},
		{
			Name:        "setup_secure_storage",
			Description: "Generate a Kotlin helper backed by EncryptedSharedPreferences",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file_path":    {Type: "string", Description: "Path for the helper, relative to the project root"},
					"package_name": {Type: "string"},
				},
				Required: []string{"file_path", "package_name"},
			},
			Class:   capability.ClassInteractive,
			Handler: s.setupSecureStorage,
		},
	}
}

type securityHandlers struct{}

func (s *securityHandlers) encryptSensitiveData(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	path, err := resolveUnderRoot(inv.ProjectRoot, stringArg(args, "file_path"))
	if err != nil {
		return nil, err
	}
	passphrase := stringArg(args, "passphrase")
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	if stringArg(args, "mode") == "decrypt" {
		plain, decErr := decrypt(data, passphrase)
		if decErr != nil {
			return nil, decErr
		}
		target := strings.TrimSuffix(path, encSuffix)
		if target == path {
			target = path + ".dec"
		}
		if writeErr := os.WriteFile(target, plain, 0600); writeErr != nil {
			return nil, fmt.Errorf("writing output: %w", writeErr)
		}
		return &envelope.Result{Success: true, Data: map[string]any{"decrypted": filepath.Base(target)}}, nil
	}

	sealed, err := encrypt(data, passphrase)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path+encSuffix, sealed, 0600); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return &envelope.Result{Success: true, Data: map[string]any{"encrypted": filepath.Base(path) + encSuffix}}, nil
}

// encrypt seals plaintext as salt || nonce || box.
func encrypt(plain []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func decrypt(sealed []byte, passphrase string) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("input too short to be an encrypted file")
	}
	key, err := deriveKey(passphrase, sealed[:saltSize])
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[saltSize:saltSize+nonceSize])

	plain, ok := secretbox.Open(nil, sealed[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("decryption failed: wrong passphrase or corrupted file")
	}
	return plain, nil
}

func deriveKey(passphrase string, salt []byte) (*[keySize]byte, error) {
	raw, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

func (s *securityHandlers) setupSecureStorage(ctx context.Context, inv *capability.Invocation, args map[string]any) (*envelope.Result, error) {
	path, err := resolveUnderRoot(inv.ProjectRoot, stringArg(args, "file_path"))
	if err != nil {
		return nil, err
	}
	pkg := stringArg(args, "package_name")

	source := fmt.Sprintf(`package %s

import android.content.Context
import android.content.SharedPreferences
import androidx.security.crypto.EncryptedSharedPreferences
import androidx.security.crypto.MasterKey

class SecureStorage(context: Context) {

    private val prefs: SharedPreferences

    init {
        val masterKey = MasterKey.Builder(context)
            .setKeyScheme(MasterKey.KeyScheme.AES256_GCM)
            .build()
        prefs = EncryptedSharedPreferences.create(
            context,
            "secure_prefs",
            masterKey,
            EncryptedSharedPreferences.PrefKeyEncryptionScheme.AES256_SIV,
            EncryptedSharedPreferences.PrefValueEncryptionScheme.AES256_GCM,
        )
    }

    fun putString(key: String, value: String) {
        prefs.edit().putString(key, value).apply()
    }

    fun getString(key: String): String? = prefs.getString(key, null)

    fun remove(key: String) {
        prefs.edit().remove(key).apply()
    }
}
`, pkg)

	if err := writeFile(path, source); err != nil {
		return nil, err
	}
	return &envelope.Result{Success: true, Data: map[string]any{"created": stringArg(args, "file_path")}}, nil
}
