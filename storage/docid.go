package storage

import (
	"crypto/sha1"
	"encoding/hex"

	"bizlist-scraper/utils"
)

// DocID is the document key used by the Firestore and BigQuery sinks:
// the hex SHA-1 of the normalised listing URL. Raw URLs contain "/" which
// Firestore does not allow in document IDs.
func DocID(url string) string {
	sum := sha1.Sum([]byte(utils.NormalizeURL(url)))
	return hex.EncodeToString(sum[:])
}
