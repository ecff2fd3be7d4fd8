package report

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const ticketAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewTicket returns the creation date as YYYYMMDD followed by five random
// alphanumeric characters
func NewTicket(at time.Time) (string, error) {
	suffix := make([]byte, 5)
	max := big.NewInt(int64(len(ticketAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate ticket: %w", err)
		}
		suffix[i] = ticketAlphabet[n.Int64()]
	}
	return at.Format("20060102") + string(suffix), nil
}
