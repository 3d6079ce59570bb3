package checksum

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

type signingFixture struct {
	dir         string
	payload     string
	armoredSig  string
	binarySig   string
	armoredRing string
	binaryRing  string
}

func newSigningFixture(t *testing.T) *signingFixture {
	t.Helper()

	entity, err := openpgp.NewEntity("xulpack test", "", "test@example.org", nil)
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}

	dir := t.TempDir()
	f := &signingFixture{dir: dir}
	content := []byte("runtime archive bytes")

	f.payload = filepath.Join(dir, "runtime.tar.gz")
	mustWrite(t, f.payload, content)

	var armoredSig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&armoredSig, entity, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("ArmoredDetachSign() error = %v", err)
	}
	f.armoredSig = filepath.Join(dir, "runtime.tar.gz.asc")
	mustWrite(t, f.armoredSig, armoredSig.Bytes())

	var binarySig bytes.Buffer
	if err := openpgp.DetachSign(&binarySig, entity, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("DetachSign() error = %v", err)
	}
	f.binarySig = filepath.Join(dir, "runtime.tar.gz.sig")
	mustWrite(t, f.binarySig, binarySig.Bytes())

	var binaryRing bytes.Buffer
	if err := entity.Serialize(&binaryRing); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	f.binaryRing = filepath.Join(dir, "keyring.gpg")
	mustWrite(t, f.binaryRing, binaryRing.Bytes())

	var armoredRing bytes.Buffer
	w, err := armor.Encode(&armoredRing, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor.Encode() error = %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close armor: %v", err)
	}
	f.armoredRing = filepath.Join(dir, "keyring.asc")
	mustWrite(t, f.armoredRing, armoredRing.Bytes())

	return f
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestVerifyDetached(t *testing.T) {
	f := newSigningFixture(t)

	tests := []struct {
		name    string
		sig     string
		keyring string
	}{
		{"armored sig, armored keyring", f.armoredSig, f.armoredRing},
		{"binary sig, armored keyring", f.binarySig, f.armoredRing},
		{"armored sig, binary keyring", f.armoredSig, f.binaryRing},
		{"binary sig, binary keyring", f.binarySig, f.binaryRing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyDetached(f.payload, tt.sig, tt.keyring); err != nil {
				t.Errorf("VerifyDetached() error = %v", err)
			}
		})
	}
}

func TestVerifyDetachedTampered(t *testing.T) {
	f := newSigningFixture(t)
	mustWrite(t, f.payload, []byte("tampered bytes"))

	err := VerifyDetached(f.payload, f.armoredSig, f.armoredRing)
	if err == nil || !strings.Contains(err.Error(), "verify signature") {
		t.Errorf("VerifyDetached() error = %v, want signature failure", err)
	}
}

func TestLoadKeyringErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadKeyring(filepath.Join(dir, "missing.gpg")); err == nil {
		t.Error("LoadKeyring() of missing file should fail")
	}

	junk := filepath.Join(dir, "junk.gpg")
	mustWrite(t, junk, []byte("not a keyring"))
	if _, err := LoadKeyring(junk); err == nil {
		t.Error("LoadKeyring() of junk should fail")
	}

	empty := filepath.Join(dir, "empty.gpg")
	mustWrite(t, empty, nil)
	if _, err := LoadKeyring(empty); err == nil {
		t.Error("LoadKeyring() of empty file should fail")
	}
}
