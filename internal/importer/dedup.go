package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

// messageHash identifies an order message by its normalized text, so the
// same order pasted twice (or exported twice) is ingested once.
func messageHash(text string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(orderparse.Clean(text)), " "))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
